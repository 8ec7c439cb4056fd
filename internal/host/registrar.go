package host

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// LoopbackRegistrar is an in-process Registrar: it records registrations
// instead of announcing them to a platform media subsystem.
type LoopbackRegistrar struct {
	mu      sync.Mutex
	devices map[uuid.UUID]DeviceInfo
	streams map[uuid.UUID]StreamInfo
	logger  *slog.Logger
}

// NewLoopbackRegistrar creates an in-process registrar.
func NewLoopbackRegistrar(logger *slog.Logger) *LoopbackRegistrar {
	return &LoopbackRegistrar{
		devices: make(map[uuid.UUID]DeviceInfo),
		streams: make(map[uuid.UUID]StreamInfo),
		logger:  logger,
	}
}

// RegisterDevice records a device registration.
func (r *LoopbackRegistrar) RegisterDevice(info DeviceInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[info.ID]; exists {
		return fmt.Errorf("device %s already registered", info.ID)
	}
	r.devices[info.ID] = info
	r.logger.Info("Registered device", "id", info.ID, "name", info.Name)
	return nil
}

// RegisterStream records a stream registration for a known device.
func (r *LoopbackRegistrar) RegisterStream(info StreamInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[info.DeviceID]; !exists {
		return fmt.Errorf("stream %s references unknown device %s", info.ID, info.DeviceID)
	}
	if _, exists := r.streams[info.ID]; exists {
		return fmt.Errorf("stream %s already registered", info.ID)
	}
	r.streams[info.ID] = info
	r.logger.Info("Registered stream", "id", info.ID, "direction", info.Direction)
	return nil
}
