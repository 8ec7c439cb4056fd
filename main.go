package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/google/uuid"

	"github.com/openvcam/vcamd/cmd"
	"github.com/openvcam/vcamd/internal/api"
	"github.com/openvcam/vcamd/internal/camera"
	"github.com/openvcam/vcamd/internal/config"
	"github.com/openvcam/vcamd/internal/events"
	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/logging"
	"github.com/openvcam/vcamd/internal/metrics"
	"github.com/openvcam/vcamd/internal/placeholder"
	"github.com/openvcam/vcamd/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Device settings
	DeviceConfigFile  string `help:"Device definition file" default:"device.toml" toml:"device.config_file" env:"DEVICE_CONFIG_FILE"`
	SinkQueueCapacity int    `help:"Pending sink buffer capacity" default:"8" toml:"device.sink_queue_capacity" env:"DEVICE_SINK_QUEUE_CAPACITY"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Update settings
	UpdateRepo       string `help:"GitHub repository for self-updates" default:"openvcam/vcamd" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Allow prerelease updates" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera    string `help:"Camera pipeline logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingForwarder string `help:"Sink forwarder logging level" default:"info" toml:"logging.forwarder" env:"LOGGING_FORWARDER"`
	LoggingPool      string `help:"Buffer pool logging level" default:"info" toml:"logging.pool" env:"LOGGING_POOL"`
	LoggingHost      string `help:"Host boundary logging level" default:"info" toml:"logging.host" env:"LOGGING_HOST"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingUpdater   string `help:"Updater logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":    opts.LoggingCamera,
				"forwarder": opts.LoggingForwarder,
				"pool":      opts.LoggingPool,
				"host":      opts.LoggingHost,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingHTTP,
				"updater":   opts.LoggingUpdater,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Mirror every log entry onto the bus so /api/logs/stream sees it
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Load the persisted device definition
		deviceManager := config.NewDeviceManager(opts.DeviceConfigFile)
		if loadErr := deviceManager.Load(); loadErr != nil {
			logger.Error("Failed to load device config", "error", loadErr, "path", opts.DeviceConfigFile)
			os.Exit(1)
		}
		deviceConfig := deviceManager.Device()

		// Identifiers must be stable across restarts: generate once and
		// persist them back into the device file.
		identifiers, generated, idErr := resolveIdentifiers(&deviceConfig)
		if idErr != nil {
			logger.Error("Invalid device identifiers", "error", idErr)
			os.Exit(1)
		}
		if generated {
			if setErr := deviceManager.SetDevice(deviceConfig); setErr == nil {
				if saveErr := deviceManager.Save(); saveErr != nil {
					logger.Warn("Failed to persist generated identifiers", "error", saveErr)
				}
			}
		}

		placeholderImage, phErr := loadPlaceholder(deviceConfig.Placeholder, logger)
		if phErr != nil {
			logger.Error("Failed to load placeholder image", "error", phErr, "path", deviceConfig.Placeholder)
			os.Exit(1)
		}

		// Assemble the in-process host boundary
		hostLogger := logging.GetLogger("host")
		output := host.NewFanout(4, hostLogger)
		sinkQueue := host.NewMemorySinkQueue(opts.SinkQueueCapacity)
		registrar := host.NewLoopbackRegistrar(hostLogger)

		device, devErr := camera.New(camera.Config{
			Name:            deviceConfig.Name,
			Identifiers:     identifiers,
			Modes:           deviceConfig.FormatModes(),
			PixelFormat:     format.PixelFormat(deviceConfig.PixelFormat),
			PreferredWidth:  deviceConfig.PreferredWidth,
			PreferredHeight: deviceConfig.PreferredHeight,
			PoolCapacity:    deviceConfig.PoolCapacity,
			Output:          output,
			Sink:            sinkQueue,
			Registrar:       registrar,
			Clock:           host.NewClock(),
			Placeholder:     placeholderImage,
			Bus:             eventBus,
			Logger:          logging.GetLogger("camera"),
		})
		if devErr != nil {
			logger.Error("Failed to create device", "error", devErr)
			os.Exit(1)
		}

		// Self-update service; a read-only install disables it but keeps
		// the API surface answering with the reason.
		updateService, updErr := updater.NewService(&updater.Options{
			Repository: opts.UpdateRepo,
			Prerelease: opts.UpdatePrerelease,
		})
		if updErr != nil {
			logger.Warn("Updater unavailable", "error", updErr)
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Device:            device,
			Bus:               eventBus,
			Sink:              sinkQueue,
			UpdateService:     updateService,
			PrometheusHandler: metrics.Handler(),
		})

		// Watch the config file for logging level changes
		watcher := config.NewConfigWatcher(
			opts.Config,
			func(path string) (logging.Config, error) {
				return config.LoadLoggingConfig(path), nil
			},
			logger,
		)
		watcher.OnReload(func(cfg logging.Config) {
			logger.Info("Reloading logging configuration")
			logging.Apply(cfg)
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher unavailable", "error", watchErr)
			}

			logger.Info("Starting HTTP server",
				"port", opts.Port,
				"device", deviceConfig.Name,
				"formats", device.Catalog().Len())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			device.Close()
		})
	})

	// Add formats command
	cli.Root().AddCommand(cmd.CreateFormatsCmd())

	// Add update command
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	// Run the CLI
	cli.Run()
}

// resolveIdentifiers parses the persisted identifiers, generating any that
// are missing. It reports whether the config must be saved back.
func resolveIdentifiers(dc *config.DeviceConfig) (host.Identifiers, bool, error) {
	generated := false
	if dc.DeviceID == "" {
		dc.DeviceID = uuid.NewString()
		generated = true
	}
	if dc.SourceStreamID == "" {
		dc.SourceStreamID = uuid.NewString()
		generated = true
	}
	if dc.SinkStreamID == "" {
		dc.SinkStreamID = uuid.NewString()
		generated = true
	}

	ids, err := host.ParseIdentifiers(dc.DeviceID, dc.SourceStreamID, dc.SinkStreamID)
	if err != nil {
		return host.Identifiers{}, false, err
	}
	return ids, generated, nil
}

// loadPlaceholder loads the configured placeholder image, falling back to
// the built-in pattern when no path is set.
func loadPlaceholder(path string, logger *slog.Logger) (*placeholder.Image, error) {
	if path == "" {
		return placeholder.Default(), nil
	}
	img, err := placeholder.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded placeholder image", "path", path)
	return img, nil
}
