// Package patterns holds the drum pattern library: the built-in patterns,
// patterns imported from a directory and the user's custom patterns.
package patterns

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenaudio/lumen"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"
)

//go:embed library/*.yml
var builtinFS embed.FS

// Category tells where a pattern came from.
type Category int

const (
	Builtin Category = iota
	Imported
	Custom
)

// DefaultPattern is the key of the pattern selected at startup.
const DefaultPattern = "basic"

func (c Category) String() string {
	switch c {
	case Imported:
		return "imported"
	case Custom:
		return "custom"
	}
	return "builtin"
}

// BuiltinPatterns returns the patterns compiled into the binary.
func BuiltinPatterns() ([]lumen.Pattern, error) {
	var ret []lumen.Pattern
	err := fs.WalkDir(builtinFS, "library", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(builtinFS, path)
		if err != nil {
			return err
		}
		var p lumen.Pattern
		if err := yamlv2.UnmarshalStrict(data, &p); err != nil {
			return fmt.Errorf("built-in pattern %v: %w", path, err)
		}
		ret = append(ret, p)
		return nil
	})
	return ret, err
}

// ReadDir reads every .yml and .yaml file in dir as a pattern. Files that
// fail to parse are reported but do not stop the others from loading.
func ReadDir(dir string) ([]lumen.Pattern, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("reading pattern directory: %w", err)}
	}
	var ret []lumen.Pattern
	var errs []error
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		p, err := readFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		ret = append(ret, p)
	}
	return ret, errs
}

func readFile(path string) (lumen.Pattern, error) {
	var p lumen.Pattern
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("could not read pattern: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("could not parse pattern %v: %w", path, err)
	}
	return p, nil
}
