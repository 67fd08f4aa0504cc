package config

import "fmt"

// Entry is one named, typed setting.
type Entry struct {
	Name string
	Desc string
	Kind Kind

	// Default is the zero Value when the entry has no default.
	Default Value

	value Value
}

// NewEntry returns an entry holding value. value and def (if valid) must cast
// to kind.
func NewEntry(name, desc string, kind Kind, def, value Value) (*Entry, error) {
	e := &Entry{Name: name, Desc: desc, Kind: kind}

	if def.IsValid() {
		d, err := def.Convert(kind)
		if err != nil {
			return nil, fmt.Errorf("default for %q: %w", name, err)
		}
		e.Default = d
	}

	if err := e.Set(value); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Entry) Value() Value {
	return e.value
}

// Set stores v, widening it to the entry's kind. Values that can't be
// widened are rejected with ErrInvalidCast.
func (e *Entry) Set(v Value) error {
	cv, err := v.Convert(e.Kind)
	if err != nil {
		return fmt.Errorf("setting %q: %w", e.Name, err)
	}
	e.value = cv
	return nil
}

// EntryDefinition describes an entry to be created with its default value.
type EntryDefinition struct {
	Name    string
	Desc    string
	Kind    Kind
	Default Value
}

// Definition describes a config file.
type Definition struct {
	GUID    string
	Path    string
	Entries []EntryDefinition
}

func NewDefinition(guid, path string) *Definition {
	return &Definition{GUID: guid, Path: path}
}

// Add appends an entry. def is required and must cast to kind.
func (d *Definition) Add(name, desc string, kind Kind, def Value) error {
	cv, err := def.Convert(kind)
	if err != nil {
		return fmt.Errorf("default for %q: %w", name, err)
	}
	d.Entries = append(d.Entries, EntryDefinition{
		Name:    name,
		Desc:    desc,
		Kind:    kind,
		Default: cv,
	})
	return nil
}
