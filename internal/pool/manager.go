package pool

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/openvcam/vcamd/internal/format"
)

// Manager owns the pool backing the active format. Rebuild is called only
// from the device's serial queue; Current may be read from any goroutine,
// so the handle is swapped atomically.
type Manager struct {
	capacity int
	current  atomic.Pointer[Pool]
	logger   *slog.Logger
}

// NewManager creates a manager with the given per-pool buffer ceiling.
func NewManager(capacity int, logger *slog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity, logger: logger}
}

// Rebuild replaces the current pool with a fresh one sized for desc. On
// failure the previous pool stays in effect and the error is returned so
// the caller can reject the format switch.
func (m *Manager) Rebuild(desc format.Descriptor) error {
	next, err := New(desc, m.capacity)
	if err != nil {
		return fmt.Errorf("rebuilding buffer pool: %w", err)
	}

	old := m.current.Swap(next)
	if old != nil {
		old.drain()
		m.logger.Debug("Buffer pool rebuilt", "format", desc.String(), "capacity", m.capacity)
	}
	return nil
}

// Current returns the pool for the active format, or nil before the first
// successful Rebuild.
func (m *Manager) Current() *Pool {
	return m.current.Load()
}
