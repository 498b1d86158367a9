// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"MaintBackOffice/internal/store"
)

// Fake keeps documents per collection in memory and counts every call. FailOp,
// when set, rejects individual ops the way a unique index would. FindErr and
// BulkErr make the whole call fail. FindDelay holds a Find back before it reads,
// outside the lock, so slow lookups overlap the way real round trips do.
type Fake struct {
	mu            sync.Mutex
	docs          map[string][]store.Document
	nextID        int
	findsInFlight int
	maxFinds      int

	FailOp    func(collection string, op store.WriteOp) bool
	FindDelay func(collection string, filter store.Filter) time.Duration
	FindErr   error
	BulkErr   error
	PingErr   error

	FindCalls      int
	BulkCalls      int
	InsertOneCalls int
	DeleteCalls    int
	OpsApplied     int
	BulkSizes      []int
}

func New() *Fake {
	return &Fake{docs: make(map[string][]store.Document)}
}

// Seed stores fields as an existing document and returns its ID.
func (f *Fake) Seed(collection string, fields map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(collection, fields)
}

// Docs returns a copy of the documents in collection.
func (f *Fake) Docs(collection string) []store.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Document, 0, len(f.docs[collection]))
	for _, d := range f.docs[collection] {
		out = append(out, store.Document{ID: d.ID, Fields: copyFields(d.Fields)})
	}
	return out
}

// StoreCalls is the number of Find and BulkWrite calls made so far.
func (f *Fake) StoreCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FindCalls + f.BulkCalls
}

// MaxConcurrentFinds is the most Find calls that were ever running at once.
func (f *Fake) MaxConcurrentFinds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxFinds
}

func (f *Fake) insertLocked(collection string, fields map[string]any) string {
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.docs[collection] = append(f.docs[collection], store.Document{ID: id, Fields: copyFields(fields)})
	return id
}

func (f *Fake) Find(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	f.mu.Lock()
	f.FindCalls++
	f.findsInFlight++
	if f.findsInFlight > f.maxFinds {
		f.maxFinds = f.findsInFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.findsInFlight--
		f.mu.Unlock()
	}()

	if f.FindDelay != nil {
		if d := f.FindDelay(collection, filter); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	var out []store.Document
	for _, d := range f.docs[collection] {
		if matches(d, filter) {
			out = append(out, store.Document{ID: d.ID, Fields: copyFields(d.Fields)})
		}
	}
	return out, nil
}

func (f *Fake) BulkWrite(_ context.Context, collection string, ops []store.WriteOp) (*store.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BulkCalls++
	f.BulkSizes = append(f.BulkSizes, len(ops))
	if f.BulkErr != nil {
		return nil, f.BulkErr
	}
	res := &store.BulkResult{}
	for i, op := range ops {
		if f.FailOp != nil && f.FailOp(collection, op) {
			res.WriteErrors = append(res.WriteErrors, store.WriteError{Index: i, Code: "11000", Message: "duplicate key"})
			continue
		}
		f.OpsApplied++
		if op.Kind == store.OpInsert {
			f.insertLocked(collection, op.Fields)
			res.InsertedCount++
			continue
		}
		for j, d := range f.docs[collection] {
			if d.ID == op.ID {
				for k, v := range op.Fields {
					f.docs[collection][j].Fields[k] = v
				}
				res.MatchedCount++
				res.ModifiedCount++
				break
			}
		}
	}
	return res, nil
}

func (f *Fake) InsertOne(_ context.Context, collection string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertOneCalls++
	f.insertLocked(collection, fields)
	return nil
}

func (f *Fake) DeleteMany(_ context.Context, collection string, filter store.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	kept := f.docs[collection][:0]
	var deleted int64
	for _, d := range f.docs[collection] {
		if matches(d, filter) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	f.docs[collection] = kept
	return deleted, nil
}

func (f *Fake) Ping(context.Context) error { return f.PingErr }

func (f *Fake) Close(context.Context) error { return nil }

func matches(d store.Document, filter store.Filter) bool {
	if filter.Empty() {
		return false
	}
	if len(filter.AnyOf) > 0 {
		hit := false
		for _, m := range filter.AnyOf {
			if matchAll(d, m, filter.CaseInsensitive) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if filter.OlderThan != nil {
		ts, ok := d.Fields[filter.OlderThan.Field].(time.Time)
		if !ok || !ts.Before(filter.OlderThan.Before) {
			return false
		}
	}
	return true
}

func matchAll(d store.Document, m store.Match, fold bool) bool {
	for field, want := range m {
		got, ok := d.Fields[field]
		if !ok {
			return false
		}
		a, b := fmt.Sprint(got), fmt.Sprint(want)
		if fold {
			if !strings.EqualFold(a, b) {
				return false
			}
		} else if a != b {
			return false
		}
	}
	return true
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
