// Package config loads the lumen configuration: built-in defaults overlaid
// with config.yml from the user's config directory.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/lumenaudio/lumen"
	yaml2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BPM        float64 `yaml:"bpm"`
	Scale      string  `yaml:"scale"`
	Key        string  `yaml:"key"`
	Density    float64 `yaml:"density"`
	Volume     float64 `yaml:"volume"`
	DrumVolume float64 `yaml:"drumVolume"`
	Drums      bool    `yaml:"drums"`
	Pattern    string  `yaml:"pattern"`
	Engine     string  `yaml:"engine"`
	Chaos      bool    `yaml:"chaos"`
	Ambience   float64 `yaml:"ambience"`
	// Seed of the random source; 0 picks one at startup.
	Seed uint64 `yaml:"seed,omitempty"`

	SampleDir  string `yaml:"sampleDir,omitempty"`
	PatternDir string `yaml:"patternDir,omitempty"`
	LibraryDir string `yaml:"libraryDir,omitempty"`
	MIDIPort   string `yaml:"midiPort,omitempty"`
	Listen     string `yaml:"listen"`
}

const FileName = "config.yml"

//go:embed config.yml
var defaultConfigYaml []byte

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := yaml2.UnmarshalStrict(defaultConfigYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Dir returns the directory holding the user's lumen files.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lumen"), nil
}

// Load overlays the file at path on the defaults. A missing file is not an
// error; the defaults are returned as they are.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fault.Wrap(err, fmsg.With("read config"))
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Default(), fault.Wrap(err, fmsg.WithDesc("parse config", "Could not parse "+path))
	}
	return c, c.Validate()
}

// LoadUser loads config.yml from Dir.
func LoadUser() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Default(), err
	}
	return Load(filepath.Join(dir, FileName))
}

// Save writes c to path, creating its directory.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the names in c. Numeric values are clamped by the engine
// and are not checked here.
func (c Config) Validate() error {
	if _, err := lumen.LookupScale(c.Scale); err != nil {
		return err
	}
	if _, err := lumen.ParsePitchClass(c.Key); err != nil {
		return err
	}
	if _, err := c.EngineID(); err != nil {
		return err
	}
	return nil
}

func (c Config) EngineID() (lumen.EngineID, error) {
	return lumen.ParseEngine(c.Engine)
}
