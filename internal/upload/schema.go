package upload

import (
	"fmt"
	"strings"
)

type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeStatus
	TypeTime
)

func (t FieldType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeStatus:
		return "status"
	case TypeTime:
		return "time"
	}
	return "string"
}

const (
	StatusField     = "status"
	CreatedAtField  = "createdAt"
	ModifiedAtField = "modifiedAt"
	DefaultStatus   = "Active"
)

// Field declares one canonical field. Synonyms are matched against normalized
// headers; the field's own name always counts as a synonym.
type Field struct {
	Name       string
	Type       FieldType
	Synonyms   []string
	MaxLen     int
	HasDefault bool
	Default    string
	// NoDiff fields are never compared against stored values nor rewritten on update.
	NoDiff bool
}

// Schema is the table that plugs one resource type into the pipeline. Fields
// are declared in synonym precedence order: a header is assigned to the first
// field whose synonym set contains it.
type Schema struct {
	Resource   string
	Label      string
	Collection string
	Fields     []Field
	Required   []string
	KeyFields  []string
	Echo       []string
	StrictCSV  bool

	byName   map[string]int
	synonyms []map[string]bool
}

// Compile checks the table and builds its lookup indexes. It must be called
// once before the schema is used.
func (s *Schema) Compile() error {
	if s.Resource == "" || s.Collection == "" {
		return fmt.Errorf("schema needs a resource and a collection")
	}
	s.byName = make(map[string]int, len(s.Fields))
	s.synonyms = make([]map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if _, dup := s.byName[f.Name]; dup {
			return fmt.Errorf("%s: field %q declared twice", s.Resource, f.Name)
		}
		s.byName[f.Name] = i
		set := map[string]bool{Normalize(f.Name): true}
		for _, syn := range f.Synonyms {
			set[Normalize(syn)] = true
		}
		s.synonyms[i] = set
	}
	for _, group := range [][]string{s.Required, s.KeyFields, s.Echo} {
		for _, name := range group {
			if _, ok := s.byName[name]; !ok {
				return fmt.Errorf("%s: unknown field %q", s.Resource, name)
			}
		}
	}
	if len(s.KeyFields) == 0 {
		return fmt.Errorf("%s: no key fields", s.Resource)
	}
	return nil
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Key is the business key of a record: the lower-cased key fields joined by "|".
func (s *Schema) Key(rec map[string]any) string {
	parts := make([]string, len(s.KeyFields))
	for i, name := range s.KeyFields {
		parts[i] = strings.ToLower(strings.TrimSpace(stringify(rec[name])))
	}
	return strings.Join(parts, "|")
}

// KeyMatch selects the stored document carrying rec's key fields.
func (s *Schema) KeyMatch(rec map[string]any) map[string]any {
	m := make(map[string]any, len(s.KeyFields))
	for _, name := range s.KeyFields {
		m[name] = rec[name]
	}
	return m
}

// FieldInfo describes a canonical field to clients building upload templates.
type FieldInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	MaxLen   int      `json:"maxLength,omitempty"`
	Default  *string  `json:"default,omitempty"`
	Synonyms []string `json:"synonyms"`
}

func (s *Schema) Describe() []FieldInfo {
	out := make([]FieldInfo, 0, len(s.Fields))
	for _, f := range s.Fields {
		info := FieldInfo{
			Name:     f.Name,
			Type:     f.Type.String(),
			Required: s.IsRequired(f.Name),
			MaxLen:   f.MaxLen,
			Synonyms: append([]string(nil), f.Synonyms...),
		}
		if f.HasDefault {
			d := f.Default
			info.Default = &d
		} else if f.Type == TypeStatus {
			d := DefaultStatus
			info.Default = &d
		}
		out = append(out, info)
	}
	return out
}
