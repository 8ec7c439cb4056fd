package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openvcam/vcamd/internal/api/models"
	"github.com/openvcam/vcamd/internal/camera"
)

func (s *Server) streamByDirection(direction string) (*camera.Stream, error) {
	dir, err := camera.ParseDirection(direction)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid stream direction", err)
	}
	if dir == camera.DirectionSource {
		return s.device.SourceStream(), nil
	}
	return s.device.SinkStream(), nil
}

// registerStreamRoutes registers stream lifecycle and frame injection.
func (s *Server) registerStreamRoutes() {
	// Start a stream
	huma.Register(s.api, huma.Operation{
		OperationID:   "start-stream",
		Method:        http.MethodPost,
		Path:          "/api/streams/{direction}/start",
		Summary:       "Start Stream",
		Description:   "Increment the stream's client count. The first client arms the direction's frame timer.",
		Tags:          []string{"streams"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{400, 401, 403},
	}, func(ctx context.Context, input *models.StreamActionInput) (*models.StreamActionResponse, error) {
		stream, err := s.streamByDirection(input.Direction)
		if err != nil {
			return nil, err
		}

		clientID := input.Body.ClientID
		if clientID == "" {
			clientID = "anonymous"
		}
		if err := stream.Start(clientID); err != nil {
			return nil, huma.Error403Forbidden("Stream start rejected", err)
		}

		return &models.StreamActionResponse{
			Body: models.StreamActionData{
				Status:    "accepted",
				Direction: stream.Direction().String(),
				Clients:   stream.Clients(),
			},
		}, nil
	})

	// Stop a stream
	huma.Register(s.api, huma.Operation{
		OperationID:   "stop-stream",
		Method:        http.MethodPost,
		Path:          "/api/streams/{direction}/stop",
		Summary:       "Stop Stream",
		Description:   "Decrement the stream's client count. The last client stops the direction's frame timer. Unbalanced stops are absorbed.",
		Tags:          []string{"streams"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{400, 401},
	}, func(ctx context.Context, input *models.StreamActionInput) (*models.StreamActionResponse, error) {
		stream, err := s.streamByDirection(input.Direction)
		if err != nil {
			return nil, err
		}
		stream.Stop()

		return &models.StreamActionResponse{
			Body: models.StreamActionData{
				Status:    "accepted",
				Direction: stream.Direction().String(),
				Clients:   stream.Clients(),
			},
		}, nil
	})

	// Inject a frame into the sink queue
	huma.Register(s.api, huma.Operation{
		OperationID: "submit-frame",
		Method:      http.MethodPost,
		Path:        "/api/streams/sink/frames",
		Summary:     "Submit Frame",
		Description: "Queue one producer frame for forwarding to source consumers",
		Tags:        []string{"streams"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 429},
	}, func(ctx context.Context, input *models.FrameSubmitInput) (*models.FrameSubmitResponse, error) {
		if s.options.Sink == nil {
			return nil, huma.Error400BadRequest("Frame injection is not enabled")
		}

		payload, err := base64.StdEncoding.DecodeString(input.Body.Data)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid base64 frame payload", err)
		}

		pix := s.device.ActiveDescriptor().PixelFormat
		want, err := pix.FrameSize(input.Body.Width, input.Body.Height)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid frame dimensions", err)
		}
		if len(payload) != want {
			return nil, huma.Error400BadRequest("Frame payload size does not match dimensions")
		}

		pts := time.Duration(input.Body.PTS * float64(time.Second))
		seq, err := s.options.Sink.Submit(payload, input.Body.Width, input.Body.Height, pix, pts, input.Body.Discontinuity)
		if err != nil {
			return nil, huma.Error429TooManyRequests("Sink queue full", err)
		}

		return &models.FrameSubmitResponse{
			Body: models.FrameSubmitData{
				Status:   "queued",
				Sequence: seq,
				Depth:    s.options.Sink.Depth(),
			},
		}, nil
	})
}
