package upload

import (
	"strings"

	"MaintBackOffice/internal/store"
)

// Change is one field difference between a stored record and the upload.
type Change struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// keyClaims remembers the first row that used each business key in a file. It
// spans every batch of the job and is only touched by the dispatcher.
type keyClaims map[string]int

// claim records key for row, or returns the earlier row that already holds it.
func (k keyClaims) claim(key string, row int) (int, bool) {
	if first, ok := k[key]; ok {
		return first, false
	}
	k[key] = row
	return row, true
}

// Diff is the result of comparing one cleaned row against its stored record.
type Diff struct {
	Changes        []Change
	AssignedStatus string
	StatusChanged  bool
	// Set holds the fields an update writes: every provided field except
	// NoDiff ones, plus a refreshed modifiedAt.
	Set map[string]any
}

// DiffExisting compares the fields the file provided against existing. A row
// without a status column inherits the stored status; an explicit status that
// differs is both a change and flagged as StatusChanged.
func (s *Schema) DiffExisting(existing map[string]any, c Cleaned) Diff {
	d := Diff{Set: map[string]any{ModifiedAtField: c.Record[ModifiedAtField]}}

	stored := strings.TrimSpace(stringify(existing[StatusField]))
	if c.IsProvided(StatusField) {
		d.AssignedStatus = stringify(c.Record[StatusField])
		d.StatusChanged = stored != "" && stored != strings.TrimSpace(d.AssignedStatus)
	} else if stored != "" {
		d.AssignedStatus = stored
		c.Record[StatusField] = stored
	} else {
		d.AssignedStatus = stringify(c.Record[StatusField])
	}

	for _, name := range c.Provided {
		f, ok := s.Field(name)
		if !ok || f.NoDiff {
			continue
		}
		newValue := c.Record[name]
		d.Set[name] = newValue
		oldValue := existing[name]
		if strings.TrimSpace(stringify(oldValue)) == strings.TrimSpace(stringify(newValue)) {
			continue
		}
		d.Changes = append(d.Changes, Change{Field: name, OldValue: oldValue, NewValue: newValue})
	}
	return d
}

// indexExisting keys stored documents by business key. Later duplicates in the
// store lose to the first one returned.
func (s *Schema) indexExisting(docs []store.Document) map[string]store.Document {
	out := make(map[string]store.Document, len(docs))
	for _, doc := range docs {
		key := s.Key(doc.Fields)
		if _, ok := out[key]; !ok {
			out[key] = doc
		}
	}
	return out
}

// lookupFilter selects every stored document sharing a key with items.
func (s *Schema) lookupFilter(records []Record) store.Filter {
	f := store.Filter{CaseInsensitive: true}
	for _, rec := range records {
		f.AnyOf = append(f.AnyOf, store.Match(s.KeyMatch(rec)))
	}
	return f
}
