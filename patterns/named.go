package patterns

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/lumenaudio/lumen"
	"gopkg.in/yaml.v3"
)

type (
	// NamedStore persists custom patterns under a name.
	NamedStore interface {
		Save(name string, p lumen.Pattern) error
		Load(name string) (lumen.Pattern, error)
		List() ([]string, error)
	}

	// FileStore keeps each pattern as a YAML file in a directory.
	FileStore struct {
		Dir string
	}

	// MemStore keeps patterns in memory.
	MemStore struct {
		mu       sync.Mutex
		patterns map[string]lumen.Pattern
	}
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fault.New("invalid pattern name", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(name, "Pattern names use letters, digits, space, dot, dash and underscore"))
	}
	return nil
}

// DefaultDir returns the directory custom patterns are saved in.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lumen", "patterns"), nil
}

func (s FileStore) path(name string) string {
	return filepath.Join(s.Dir, name+".yml")
}

func (s FileStore) Save(name string, p lumen.Pattern) error {
	if err := checkName(name); err != nil {
		return err
	}
	p.Name = name
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("could not marshal pattern: %w", err)
	}
	if err := os.MkdirAll(s.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create pattern directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0644); err != nil {
		return fmt.Errorf("could not write pattern: %w", err)
	}
	return nil
}

func (s FileStore) Load(name string) (lumen.Pattern, error) {
	if err := checkName(name); err != nil {
		return lumen.Pattern{}, err
	}
	p, err := readFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return p, fault.Wrap(err, ftag.With(ftag.NotFound), fmsg.WithDesc("no such custom pattern", "No saved pattern named "+name))
	}
	p.Name = name
	return p, err
}

func (s FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not list patterns: %w", err)
	}
	var ret []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yml") {
			ret = append(ret, strings.TrimSuffix(e.Name(), ".yml"))
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func NewMemStore() *MemStore {
	return &MemStore{patterns: map[string]lumen.Pattern{}}
}

func (s *MemStore) Save(name string, p lumen.Pattern) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Copy()
	p.Name = name
	s.patterns[name] = p
	return nil
}

func (s *MemStore) Load(name string) (lumen.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return p, fault.New("no such custom pattern", ftag.With(ftag.NotFound), fmsg.WithDesc(name, "No saved pattern named "+name))
	}
	return p.Copy(), nil
}

func (s *MemStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, 0, len(s.patterns))
	for k := range s.patterns {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret, nil
}
