package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/openvcam/vcamd/internal/events"
)

// registerEventRoutes registers the native Huma SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for format switches, stream lifecycle and frame drops",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"format-switched":        events.FormatSwitchedEvent{},
		"format-switch-rejected": events.FormatSwitchRejectedEvent{},
		"stream-started":         events.StreamStartedEvent{},
		"stream-stopped":         events.StreamStoppedEvent{},
		"frame-dropped":          events.FrameDroppedEvent{},
		"sink-activity":          events.SinkActivityEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FormatSwitchedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FormatSwitchRejectedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.StreamStartedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.StreamStoppedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.SinkActivityEvent](s.bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
