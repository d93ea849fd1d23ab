// Package testlog records logx output in memory so tests can assert on what a
// component logged.
package testlog

import (
	"slices"
	"sync"

	"trucking-dispatch-core/internal/logx"
)

// Levels as recorded in Entry.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Entry is one recorded call; Fields include those attached via With.
type Entry struct {
	Level  string
	Msg    string
	Fields []logx.Field
}

// Value returns the last value logged under key.
func (e Entry) Value(key string) (any, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// Recorder is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Recorder { return &Recorder{} }

// Logger returns a logx.Logger writing into r.
func (r *Recorder) Logger() logx.Logger {
	return bound{r: r}
}

// Entries returns a snapshot.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Messages returns the messages logged at level, in order.
func (r *Recorder) Messages(level string) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}

// Has reports whether msg was logged at any level.
func (r *Recorder) Has(msg string) bool {
	return slices.ContainsFunc(r.Entries(), func(e Entry) bool { return e.Msg == msg })
}

// Field returns the value of key on the first entry with msg.
func (r *Recorder) Field(msg, key string) (any, bool) {
	for _, e := range r.Entries() {
		if e.Msg == msg {
			return e.Value(key)
		}
	}
	return nil, false
}

func (r *Recorder) add(level, msg string, base, fields []logx.Field) {
	all := make([]logx.Field, 0, len(base)+len(fields))
	all = append(all, base...)
	all = append(all, fields...)

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: all})
	r.mu.Unlock()
}

type bound struct {
	r    *Recorder
	base []logx.Field
}

func (b bound) Debug(msg string, f ...logx.Field) { b.r.add(LevelDebug, msg, b.base, f) }
func (b bound) Info(msg string, f ...logx.Field)  { b.r.add(LevelInfo, msg, b.base, f) }
func (b bound) Warn(msg string, f ...logx.Field)  { b.r.add(LevelWarn, msg, b.base, f) }
func (b bound) Error(msg string, f ...logx.Field) { b.r.add(LevelError, msg, b.base, f) }

func (b bound) With(f ...logx.Field) logx.Logger {
	return bound{r: b.r, base: append(slices.Clone(b.base), f...)}
}

func (b bound) Sync() error { return nil }

var _ logx.Logger = bound{}
