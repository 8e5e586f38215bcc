// Package admin holds the static table describing which catalog entities are
// manageable, which fields their list views show, and which related records can
// be edited inline under a parent.
//
// The table is embedded from admin.yaml and parsed once at startup.
package admin

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed admin.yaml
var defaultRegistry []byte

var ErrUnknownEntity = errors.New("unknown admin entity")

// Inline describes a child entity edited inside its parent's detail view.
type Inline struct {
	Entity     string `yaml:"entity" json:"entity"`
	ForeignKey string `yaml:"foreign_key" json:"foreign_key"`
	CanAdd     bool   `yaml:"can_add" json:"can_add"`
	CanChange  bool   `yaml:"can_change" json:"can_change"`
	CanDelete  bool   `yaml:"can_delete" json:"can_delete"`
}

type Entity struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	ListDisplay []string `yaml:"list_display" json:"list_display"`
	ListFilter  []string `yaml:"list_filter" json:"list_filter,omitempty"`
	Inlines     []Inline `yaml:"inlines" json:"inlines,omitempty"`
}

// Inline returns the inline configuration for child, if the entity declares one.
func (e *Entity) Inline(child string) (*Inline, bool) {
	for i := range e.Inlines {
		if e.Inlines[i].Entity == child {
			return &e.Inlines[i], true
		}
	}
	return nil, false
}

// Project keeps only the list_display columns of row, in no particular order.
// Columns missing from row are reported as nil so every row has the same keys.
func (e *Entity) Project(row map[string]any) map[string]any {
	projected := lo.PickByKeys(row, e.ListDisplay)
	for _, field := range e.ListDisplay {
		if _, ok := projected[field]; !ok {
			projected[field] = nil
		}
	}
	return projected
}

// Registry is the parsed admin table.
type Registry struct {
	Entities []Entity `yaml:"entities" json:"entities"`

	byName map[string]*Entity
}

// Load parses and validates a registry document.
func Load(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse admin registry: %w", err)
	}
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Default returns the embedded registry. It panics if admin.yaml is invalid,
// which can only happen at build time.
func Default() *Registry {
	reg, err := Load(defaultRegistry)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Registry) index() error {
	if len(r.Entities) == 0 {
		return errors.New("admin registry declares no entities")
	}

	r.byName = make(map[string]*Entity, len(r.Entities))
	for i := range r.Entities {
		entity := &r.Entities[i]
		if entity.Name == "" {
			return fmt.Errorf("admin entity #%d has no name", i)
		}
		if _, dup := r.byName[entity.Name]; dup {
			return fmt.Errorf("admin entity %q declared twice", entity.Name)
		}
		if len(entity.ListDisplay) == 0 {
			return fmt.Errorf("admin entity %q has an empty list_display", entity.Name)
		}
		r.byName[entity.Name] = entity
	}

	for _, entity := range r.Entities {
		for _, inline := range entity.Inlines {
			if _, ok := r.byName[inline.Entity]; !ok {
				return fmt.Errorf("admin entity %q inlines unregistered entity %q", entity.Name, inline.Entity)
			}
			if inline.ForeignKey == "" {
				return fmt.Errorf("inline %q under %q has no foreign_key", inline.Entity, entity.Name)
			}
		}
	}
	return nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, error) {
	entity, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return entity, nil
}

// Names lists the registered entity names in declaration order.
func (r *Registry) Names() []string {
	return lo.Map(r.Entities, func(e Entity, _ int) string { return e.Name })
}
