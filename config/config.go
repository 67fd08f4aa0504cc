// Package config is a typed settings store backed by TOML files.
//
// Every entry has a fixed Kind. Values may be stored into an entry of a wider
// kind (an int8 into an int32, an int64 into a float64) but never narrowed.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// ErrNotFound is returned for entry names that aren't in a Config.
var ErrNotFound = errors.New("config entry not found")

// Config is a loaded config file. It is not safe for concurrent use.
type Config struct {
	GUID string
	Path string

	store   *Store
	entries map[string]*Entry
	order   []string
}

func (c *Config) Entry(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Get returns the value of the named entry.
func (c *Config) Get(name string) (Value, error) {
	e, ok := c.entries[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.Value(), nil
}

// Set stores v in the named entry. See Entry.Set.
func (c *Config) Set(name string, v Value) error {
	e, ok := c.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.Set(v)
}

// Names returns entry names in file order.
func (c *Config) Names() []string {
	return append([]string(nil), c.order...)
}

// Reload replaces the entries with the file's current contents.
func (c *Config) Reload() error {
	fresh, err := c.store.Load(c.Path)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("%s: %w", c.Path, os.ErrNotExist)
	}
	c.GUID, c.entries, c.order = fresh.GUID, fresh.entries, fresh.order
	return nil
}

// Save writes the entries back to the file.
func (c *Config) Save() error {
	f := file{GUID: c.GUID}
	for _, name := range c.order {
		e := c.entries[name]
		fe, err := newFileEntry(e.Name, e.Desc, e.Kind, e.Default, e.value)
		if err != nil {
			return err
		}
		f.Entries = append(f.Entries, fe)
	}
	return c.store.write(c.Path, &f)
}

// Definition returns a definition of the config's entries. Entries without
// a default use their current value as the default.
func (c *Config) Definition() *Definition {
	d := NewDefinition(c.GUID, c.Path)
	for _, name := range c.order {
		e := c.entries[name]
		def := e.Default
		if !def.IsValid() {
			def = e.value
		}
		d.Entries = append(d.Entries, EntryDefinition{
			Name:    e.Name,
			Desc:    e.Desc,
			Kind:    e.Kind,
			Default: def,
		})
	}
	return d
}

// Store reads and writes config files under a root directory. Paths given
// to a Store are relative to Dir and may contain subdirectories, which are
// created as needed.
type Store struct {
	Dir string

	mu sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Load reads the config file at path. It returns nil and no error if the
// file doesn't exist.
func (s *Store) Load(path string) (*Config, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(full)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", full, err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", full, err)
	}

	c := &Config{
		GUID:    f.GUID,
		Path:    path,
		store:   s,
		entries: make(map[string]*Entry, len(f.Entries)),
	}
	for i, fe := range f.Entries {
		e, err := fe.entry()
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", full, i, err)
		}
		if _, dup := c.entries[e.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate entry %q", full, e.Name)
		}
		c.entries[e.Name] = e
		c.order = append(c.order, e.Name)
	}

	return c, nil
}

// Create writes a new config file from def with every entry set to its
// default. An existing file is left alone unless overwrite is set. Create
// reports whether it wrote the file.
func (s *Store) Create(def *Definition, overwrite bool) (bool, error) {
	full, err := s.resolve(def.Path)
	if err != nil {
		return false, err
	}
	if !overwrite {
		if _, err := os.Stat(full); err == nil {
			return false, nil
		}
	}

	f, err := definitionFile(def, nil)
	if err != nil {
		return false, err
	}
	if err := s.write(def.Path, f); err != nil {
		return false, err
	}
	return true, nil
}

// Merge rewrites the file for def, keeping the value of every entry of
// existing that def still defines, and returns the reloaded config. Kept
// values that no longer cast to the defined kind are reset to the default.
func (s *Store) Merge(existing *Config, def *Definition) (*Config, error) {
	f, err := definitionFile(def, existing)
	if err != nil {
		return nil, err
	}
	if err := s.write(def.Path, f); err != nil {
		return nil, err
	}
	return s.Load(def.Path)
}

func (s *Store) resolve(path string) (string, error) {
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("config path %q must be relative to the config directory", path)
	}
	return filepath.Join(s.Dir, path), nil
}

func (s *Store) write(path string, f *file) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding %s: %w", full, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, buf.Bytes(), 0o644)
}

func definitionFile(def *Definition, existing *Config) (*file, error) {
	f := &file{GUID: def.GUID}
	for _, ed := range def.Entries {
		value := ed.Default
		if existing != nil {
			if old, err := existing.Get(ed.Name); err == nil {
				if cv, err := old.Convert(ed.Kind); err == nil {
					value = cv
				}
			}
		}

		fe, err := newFileEntry(ed.Name, ed.Desc, ed.Kind, ed.Default, value)
		if err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, fe)
	}
	return f, nil
}

// file is the on-disk layout:
//
//	guid = "com.example.plugin"
//
//	[[entry]]
//	name = "speed"
//	desc = "Movement speed"
//	type = "float32"
//	default = 1.5
//	value = 2.0
type file struct {
	GUID    string      `toml:"guid"`
	Entries []fileEntry `toml:"entry"`
}

type fileEntry struct {
	Name    string `toml:"name"`
	Desc    string `toml:"desc,omitempty"`
	Type    string `toml:"type"`
	Default any    `toml:"default"`
	Value   any    `toml:"value"`
}

func newFileEntry(name, desc string, kind Kind, def, value Value) (fileEntry, error) {
	fe := fileEntry{Name: name, Desc: desc, Type: kind.String()}

	var err error
	if def.IsValid() {
		if fe.Default, err = def.raw(); err != nil {
			return fileEntry{}, fmt.Errorf("default for %q: %w", name, err)
		}
	}
	if fe.Value, err = value.raw(); err != nil {
		return fileEntry{}, fmt.Errorf("value for %q: %w", name, err)
	}
	return fe, nil
}

func (fe fileEntry) entry() (*Entry, error) {
	if fe.Name == "" {
		return nil, errors.New("missing name")
	}
	kind, err := ParseKind(fe.Type)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", fe.Name, err)
	}
	if fe.Value == nil {
		return nil, fmt.Errorf("%q: missing value", fe.Name)
	}

	var def Value
	if fe.Default != nil {
		if def, err = valueOf(kind, fe.Default); err != nil {
			return nil, fmt.Errorf("%q default: %w", fe.Name, err)
		}
	}
	value, err := valueOf(kind, fe.Value)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", fe.Name, err)
	}

	return NewEntry(fe.Name, fe.Desc, kind, def, value)
}
