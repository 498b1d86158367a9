package upload

import (
	"encoding/json"
	"io"
	"sync"
)

type flusher interface {
	Flush()
}

// Reporter appends newline-delimited JSON objects to w and flushes after each
// one when w supports it. Once a write fails every later Emit returns that error.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	flush   flusher
	written int64
	err     error
}

func NewReporter(w io.Writer) *Reporter {
	r := &Reporter{w: w}
	if f, ok := w.(flusher); ok {
		r.flush = f
	}
	return r
}

func (r *Reporter) Emit(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	n, err := r.w.Write(line)
	r.written += int64(n)
	if err != nil {
		r.err = err
		return err
	}
	if r.flush != nil {
		r.flush.Flush()
	}
	return nil
}

// Started reports whether any byte has reached the writer.
func (r *Reporter) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written > 0
}
