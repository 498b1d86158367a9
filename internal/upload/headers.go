package upload

import (
	"strings"
)

// Normalize lower-cases raw and drops every character outside [a-z0-9], so
// "Part No.", "part_no" and " PART NO " all become "partno".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalizer memoizes Normalize for one upload. It is not safe for concurrent
// use; the dispatcher is its only caller.
type Normalizer struct {
	cache map[string]string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{cache: make(map[string]string)}
}

func (n *Normalizer) Normalize(raw string) string {
	if v, ok := n.cache[raw]; ok {
		return v
	}
	v := Normalize(raw)
	n.cache[raw] = v
	return v
}

type column struct {
	index int
	raw   string
	field Field
}

// HeaderMap is the result of matching a file's header row against a schema.
// Mapping is keyed by raw header text. Ignored lists raw headers dropped
// because an earlier column already claimed the same normalized name or field.
type HeaderMap struct {
	Mapping map[string]string
	Ignored []string
	Headers []string
	columns []column
}

// MapHeaders assigns each raw header to at most one canonical field. The first
// column to claim a field keeps it; headers matching no synonym stay unmapped.
func (s *Schema) MapHeaders(n *Normalizer, headers []string) *HeaderMap {
	hm := &HeaderMap{Mapping: make(map[string]string), Headers: headers}
	seen := make(map[string]bool, len(headers))
	claimed := make(map[string]bool, len(s.Fields))
	for i, raw := range headers {
		norm := n.Normalize(raw)
		if norm == "" {
			continue
		}
		if seen[norm] {
			hm.Ignored = append(hm.Ignored, raw)
			continue
		}
		seen[norm] = true
		for fi, f := range s.Fields {
			if !s.synonyms[fi][norm] {
				continue
			}
			if claimed[f.Name] {
				hm.Ignored = append(hm.Ignored, raw)
				break
			}
			claimed[f.Name] = true
			hm.Mapping[raw] = f.Name
			hm.columns = append(hm.columns, column{index: i, raw: raw, field: f})
			break
		}
	}
	return hm
}

// MissingRequired lists required fields no column was mapped to, in schema order.
func (s *Schema) MissingRequired(hm *HeaderMap) []string {
	mapped := make(map[string]bool, len(hm.Mapping))
	for _, field := range hm.Mapping {
		mapped[field] = true
	}
	var missing []string
	for _, name := range s.Required {
		if !mapped[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
