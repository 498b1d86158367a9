// Package store is the persistence boundary of the upload pipeline. Records are
// schemaless documents addressed by collection name, so the same reconciliation
// code runs on MongoDB or on Postgres JSONB tables.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrInvalidCollection is returned when a collection name cannot be used as a
// table or collection identifier.
var ErrInvalidCollection = errors.New("invalid collection name")

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidCollection reports whether name is usable by every backend.
func ValidCollection(name string) bool {
	return collectionName.MatchString(name)
}

// Document is one persisted record. ID is backend specific and only ever handed
// back to the same backend in an update op.
type Document struct {
	ID     any
	Fields map[string]any
}

// Match is a conjunction of field equality tests.
type Match map[string]any

// TimeBound selects documents whose Field holds a time strictly before Before.
type TimeBound struct {
	Field  string
	Before time.Time
}

// Filter selects documents matching any of AnyOf. When CaseInsensitive is set
// string comparisons ignore case. A Filter with neither AnyOf nor OlderThan
// matches nothing.
type Filter struct {
	AnyOf           []Match
	CaseInsensitive bool
	OlderThan       *TimeBound
}

// Empty reports whether the filter can match no document.
func (f Filter) Empty() bool {
	return len(f.AnyOf) == 0 && f.OlderThan == nil
}

type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
)

func (k OpKind) String() string {
	if k == OpUpdate {
		return "update"
	}
	return "insert"
}

// WriteOp is one element of an unordered bulk write. Inserts carry the full
// document; updates carry the ID of an existing document and the fields to set.
type WriteOp struct {
	Kind   OpKind
	ID     any
	Fields map[string]any
}

// WriteError names the op, by its index in the submitted slice, that the
// backend rejected.
type WriteError struct {
	Index   int
	Code    string
	Message string
}

type BulkResult struct {
	InsertedCount int64
	MatchedCount  int64
	ModifiedCount int64
	WriteErrors   []WriteError
}

// Store is implemented by every backend. BulkWrite is unordered: a rejected op
// is reported in WriteErrors and never prevents its siblings from applying. An
// error return means the call as a whole failed.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	BulkWrite(ctx context.Context, collection string, ops []WriteOp) (*BulkResult, error)
	InsertOne(ctx context.Context, collection string, fields map[string]any) error
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
