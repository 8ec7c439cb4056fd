package logging

import (
	"sync"
	"time"
)

// LogEntry is one captured log record, kept for the API log endpoints
// and the SSE log stream.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer retains the most recent log entries up to a fixed capacity.
// Safe for concurrent use.
type RingBuffer struct {
	mu   sync.RWMutex
	buf  []LogEntry
	next int
	full bool
}

// NewRingBuffer creates a buffer that holds at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buf: make([]LogEntry, size)}
}

// Write stores an entry, evicting the oldest one once the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.next] = entry
	rb.next++
	if rb.next == len(rb.buf) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns the retained entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		if rb.next == 0 {
			return nil
		}
		out := make([]LogEntry, rb.next)
		copy(out, rb.buf[:rb.next])
		return out
	}

	out := make([]LogEntry, 0, len(rb.buf))
	out = append(out, rb.buf[rb.next:]...)
	out = append(out, rb.buf[:rb.next]...)
	return out
}
