package jc

import (
	"sync"
	"time"
)

// ErrorEntry is one recorded failure: a reaction body error, a panic, or a
// blocking input left un-replied.
type ErrorEntry struct {
	Time    time.Time
	Message string
}

// ErrorLog is an append-only in-memory sink for the errors a site
// encounters while firing reactions. Reactions run detached from any caller
// that could observe their failure directly (the matching caller, if any,
// only learns of success or failure through its own reply slot), so a site
// needs somewhere durable to record the rest.
type ErrorLog struct {
	mu      sync.Mutex
	entries []ErrorEntry
}

func NewErrorLog() *ErrorLog { return &ErrorLog{} }

func (l *ErrorLog) Append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ErrorEntry{Time: time.Now(), Message: msg})
}

func (l *ErrorLog) All() []ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ErrorEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
