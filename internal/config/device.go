package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/openvcam/vcamd/internal/format"
)

// ModeConfig is one advertised capture mode in the device file.
type ModeConfig struct {
	Width  uint32  `toml:"width" json:"width"`
	Height uint32  `toml:"height" json:"height"`
	FPS    float64 `toml:"fps" json:"fps"`
}

// DeviceConfig is the persisted definition of one virtual camera.
type DeviceConfig struct {
	Name        string `toml:"name" json:"name"`
	PixelFormat string `toml:"pixel_format" json:"pixel_format"`

	// Identifiers are stable UUIDs the host rejects duplicates on.
	DeviceID       string `toml:"device_id" json:"device_id"`
	SourceStreamID string `toml:"source_stream_id" json:"source_stream_id"`
	SinkStreamID   string `toml:"sink_stream_id" json:"sink_stream_id"`

	PreferredWidth  uint32 `toml:"preferred_width" json:"preferred_width"`
	PreferredHeight uint32 `toml:"preferred_height" json:"preferred_height"`
	PoolCapacity    int    `toml:"pool_capacity,omitempty" json:"pool_capacity,omitempty"`
	Placeholder     string `toml:"placeholder,omitempty" json:"placeholder,omitempty"`

	Modes []ModeConfig `toml:"modes" json:"modes"`

	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// Modes converts the persisted mode list into catalog input.
func (dc DeviceConfig) FormatModes() []format.Mode {
	modes := make([]format.Mode, len(dc.Modes))
	for i, m := range dc.Modes {
		modes[i] = format.Mode{Width: m.Width, Height: m.Height, FPS: m.FPS}
	}
	return modes
}

// DeviceFile is the on-disk document.
type DeviceFile struct {
	Version int          `toml:"version" json:"version"`
	Device  DeviceConfig `toml:"device" json:"device"`
}

// DeviceManager loads and persists the virtual camera definition.
type DeviceManager struct {
	path string
	file *DeviceFile
}

// NewDeviceManager creates a manager for the given path. An empty path
// falls back to device.toml in the working directory.
func NewDeviceManager(path string) *DeviceManager {
	if path == "" {
		path = "device.toml"
	}
	return &DeviceManager{
		path: path,
		file: &DeviceFile{Version: 1, Device: DefaultDeviceConfig()},
	}
}

// DefaultDeviceConfig returns the built-in device definition used when no
// file exists: the standard mode table with broadcast rates included.
func DefaultDeviceConfig() DeviceConfig {
	modes := make([]ModeConfig, 0, len(format.DefaultModes))
	for _, m := range format.DefaultModes {
		modes = append(modes, ModeConfig{Width: m.Width, Height: m.Height, FPS: m.FPS})
	}
	return DeviceConfig{
		Name:            "Virtual Camera",
		PixelFormat:     string(format.PixelFormatRGBA),
		PreferredWidth:  1920,
		PreferredHeight: 1080,
		Modes:           modes,
	}
}

// Load reads the device file. A missing file keeps the defaults.
func (dm *DeviceManager) Load() error {
	data, err := os.ReadFile(dm.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading device config: %w", err)
	}

	if err := toml.Unmarshal(data, dm.file); err != nil {
		return fmt.Errorf("parsing device config: %w", err)
	}
	if dm.file.Version == 0 {
		dm.file.Version = 1
	}
	if len(dm.file.Device.Modes) == 0 {
		dm.file.Device.Modes = DefaultDeviceConfig().Modes
	}
	return nil
}

// Save writes the device file, creating the directory if needed.
func (dm *DeviceManager) Save() error {
	dir := filepath.Dir(dm.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	dm.file.Device.UpdatedAt = time.Now()
	data, err := toml.Marshal(dm.file)
	if err != nil {
		return fmt.Errorf("marshaling device config: %w", err)
	}
	if err := os.WriteFile(dm.path, data, 0o644); err != nil {
		return fmt.Errorf("writing device config: %w", err)
	}
	return nil
}

// Device returns the current device definition.
func (dm *DeviceManager) Device() DeviceConfig {
	return dm.file.Device
}

// SetDevice replaces the device definition. Callers persist with Save.
func (dm *DeviceManager) SetDevice(dc DeviceConfig) error {
	if dc.Name == "" {
		return fmt.Errorf("device name cannot be empty")
	}
	if len(dc.Modes) == 0 {
		return fmt.Errorf("device needs at least one mode")
	}
	dm.file.Device = dc
	return nil
}

// LoadDeviceConfig is a watcher-compatible loader: fresh read every call.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	dm := NewDeviceManager(path)
	if err := dm.Load(); err != nil {
		return DeviceConfig{}, err
	}
	return dm.Device(), nil
}
