// Package resources declares the upload schemas served by the back office.
package resources

import (
	"fmt"
	"sort"

	"MaintBackOffice/internal/upload"
)

// Registry resolves resource slugs to compiled schemas.
type Registry struct {
	schemas map[string]*upload.Schema
}

func NewRegistry(schemas ...*upload.Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*upload.Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.Compile(); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.Resource]; dup {
			return nil, fmt.Errorf("resource %q registered twice", s.Resource)
		}
		r.schemas[s.Resource] = s
	}
	return r, nil
}

// Default returns the registry of every built-in resource.
func Default() *Registry {
	r, err := NewRegistry(priceSchema(), problemSchema())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(resource string) (*upload.Schema, bool) {
	s, ok := r.schemas[resource]
	return s, ok
}

// Names lists registered resources in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
