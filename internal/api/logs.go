package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/openvcam/vcamd/internal/api/models"
	"github.com/openvcam/vcamd/internal/events"
	"github.com/openvcam/vcamd/internal/logging"
)

// registerLogRoutes registers log streaming and runtime level control.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Replay the ring buffer before streaming live entries.
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				event := events.LogEntryEvent{
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}

		eventCh := make(chan any, 100) // Larger buffer for logs
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.bus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})

	// Runtime per-module log level control
	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/level",
		Summary:     "Set Log Level",
		Description: "Change one module's log level at runtime",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(ctx context.Context, input *models.LogLevelInput) (*models.LogLevelResponse, error) {
		if input.Body.Module == "" {
			return nil, huma.Error400BadRequest("Module is required")
		}
		logging.SetModuleLevel(input.Body.Module, input.Body.Level)
		s.logger.Info("Log level changed", "target", input.Body.Module, "level", input.Body.Level)

		return &models.LogLevelResponse{
			Body: models.LogLevelData{
				Status: "ok",
				Module: input.Body.Module,
				Level:  input.Body.Level,
			},
		}, nil
	})
}
