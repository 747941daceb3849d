package patterns

import (
	"fmt"
	"log"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/lumenaudio/lumen"
)

// Store is the live pattern library plus the current pattern pointer. The
// records it hands out are the live ones: drum tasks read the current record
// on every tick, and step edits change that record in place. Only the
// engine's player goroutine edits steps; the lock protects the maps for
// readers listing keys from other goroutines.
type Store struct {
	mu         sync.RWMutex
	patterns   map[string]*lumen.Pattern
	originals  map[string]lumen.Pattern
	categories map[string]Category
	order      []string
	current    *lumen.Pattern
	currentKey string
	named      NamedStore
}

// NewStore loads the built-in patterns and every pattern saved in named,
// which may be nil, and selects DefaultPattern.
func NewStore(named NamedStore) (*Store, error) {
	s := &Store{
		patterns:   map[string]*lumen.Pattern{},
		originals:  map[string]lumen.Pattern{},
		categories: map[string]Category{},
		named:      named,
	}
	builtins, err := BuiltinPatterns()
	if err != nil {
		return nil, err
	}
	for _, p := range builtins {
		if err := s.Add(p, Builtin); err != nil {
			return nil, err
		}
	}
	if named != nil {
		names, err := named.List()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			p, err := named.Load(name)
			if err != nil {
				log.Printf("skipping custom pattern %v: %v", name, err)
				continue
			}
			p.Custom = true
			if err := s.Add(p, Custom); err != nil {
				log.Printf("skipping custom pattern %v: %v", name, err)
			}
		}
	}
	if err := s.Select(DefaultPattern); err != nil {
		return nil, err
	}
	return s, nil
}

// Add puts a pattern into the library under its name.
func (s *Store) Add(p lumen.Pattern, c Category) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[p.Name]; ok {
		return fault.New("pattern already exists", ftag.With(ftag.AlreadyExists), fmsg.WithDesc(p.Name, "A pattern named "+p.Name+" already exists"))
	}
	rec := p.Copy()
	rec.Modified = false
	s.patterns[p.Name] = &rec
	s.originals[p.Name] = p.Copy()
	s.categories[p.Name] = c
	s.order = append(s.order, p.Name)
	return nil
}

// Import adds the patterns found in dir to the Imported category and
// returns how many were added.
func (s *Store) Import(dir string) (int, error) {
	ps, errs := ReadDir(dir)
	n := 0
	for _, p := range ps {
		if err := s.Add(p, Imported); err != nil {
			errs = append(errs, fmt.Errorf("importing %v: %w", p.Name, err))
			continue
		}
		n++
	}
	if len(errs) > 0 {
		return n, errs[0]
	}
	return n, nil
}

func (s *Store) ByKey(key string) (*lumen.Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[key]
	return p, ok
}

// Keys lists the patterns of a category in the order they were added.
func (s *Store) Keys(c Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []string
	for _, k := range s.order {
		if s.categories[k] == c {
			ret = append(ret, k)
		}
	}
	return ret
}

// Category returns the category of a pattern.
func (s *Store) Category(key string) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[key]
	return c, ok
}

// Current returns the live record of the selected pattern.
func (s *Store) Current() *lumen.Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) CurrentKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentKey
}

// Select points the current pattern at another record. An unknown key
// leaves the selection unchanged.
func (s *Store) Select(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[key]
	if !ok {
		return fault.New("unknown pattern", ftag.With(ftag.NotFound), fmsg.WithDesc(key, "No such drum pattern: "+key))
	}
	s.current = p
	s.currentKey = key
	return nil
}

// SetStep edits a step of the current pattern in place.
func (s *Store) SetStep(v lumen.Voice, step int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fault.New("no pattern selected", ftag.With(ftag.NotFound))
	}
	return s.current.SetStep(v, step, on)
}

// SaveCustom stores a copy of the current pattern as a new custom pattern
// and persists it. The current selection does not change.
func (s *Store) SaveCustom(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fault.New("no pattern selected", ftag.With(ftag.NotFound))
	}
	if err := checkName(name); err != nil {
		return err
	}
	if c, ok := s.categories[name]; ok && c != Custom {
		return fault.New("pattern already exists", ftag.With(ftag.AlreadyExists), fmsg.WithDesc(name, "Cannot overwrite the "+c.String()+" pattern "+name))
	}
	p := s.current.Copy()
	p.Name = name
	p.Custom = true
	p.Modified = false
	if s.named != nil {
		if err := s.named.Save(name, p); err != nil {
			return fault.Wrap(err, fmsg.With("could not save custom pattern"))
		}
	}
	if rec, ok := s.patterns[name]; ok {
		*rec = p
	} else {
		rec := p
		s.patterns[name] = &rec
		s.categories[name] = Custom
		s.order = append(s.order, name)
	}
	s.originals[name] = p.Copy()
	return nil
}

// Reset restores the current pattern to the definition it was loaded or
// saved with. The record is overwritten in place so the current pointer
// stays valid.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fault.New("no pattern selected", ftag.With(ftag.NotFound))
	}
	orig, ok := s.originals[s.currentKey]
	if !ok {
		return fault.New("no original for pattern", ftag.With(ftag.NotFound), fmsg.WithDesc(s.currentKey, "Pattern has no saved definition"))
	}
	*s.current = orig.Copy()
	s.current.Modified = false
	return nil
}

// Snapshot returns a copy of the current pattern.
func (s *Store) Snapshot() lumen.Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return lumen.Pattern{}
	}
	return s.current.Copy()
}
