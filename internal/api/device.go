package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openvcam/vcamd/internal/api/models"
	"github.com/openvcam/vcamd/internal/camera"
	"github.com/openvcam/vcamd/internal/format"
)

// FormatListData builds the catalog view with the active index marked.
func (s *Server) formatListData() models.FormatListData {
	active := s.device.ActiveFormatIndex()
	descs := s.device.Catalog().Descriptors()

	formats := make([]models.FormatInfo, len(descs))
	for i, d := range descs {
		formats[i] = descriptorToFormatInfo(i, d, i == active)
	}
	return models.FormatListData{
		Formats:     formats,
		ActiveIndex: active,
		Count:       len(formats),
	}
}

func descriptorToFormatInfo(index int, d format.Descriptor, active bool) models.FormatInfo {
	durations := make([]models.DurationInfo, len(d.Durations))
	for i, dur := range d.Durations {
		durations[i] = models.DurationInfo{
			Numerator:   dur.Numerator,
			Denominator: dur.Denominator,
			FPS:         dur.FPS(),
		}
	}
	size, _ := d.FrameSize()
	return models.FormatInfo{
		Index:       index,
		Width:       d.Width,
		Height:      d.Height,
		PixelFormat: string(d.PixelFormat),
		FrameSize:   size,
		Durations:   durations,
		Active:      active,
	}
}

func (s *Server) streamInfo(st *camera.Stream) models.StreamInfo {
	props := make(map[string]any, 4)
	for _, p := range st.Properties() {
		value, ok := st.PropertyValue(p)
		if !ok {
			continue
		}
		if d, isDuration := value.(format.Duration); isDuration {
			value = models.DurationInfo{Numerator: d.Numerator, Denominator: d.Denominator, FPS: d.FPS()}
		}
		props[string(p)] = value
	}

	dur := st.FrameDuration()
	return models.StreamInfo{
		ID:            st.ID().String(),
		Direction:     st.Direction().String(),
		Clients:       st.Clients(),
		ActiveIndex:   st.ActiveFormatIndex(),
		FrameDuration: models.DurationInfo{Numerator: dur.Numerator, Denominator: dur.Denominator, FPS: dur.FPS()},
		Properties:    props,
	}
}

// registerDeviceRoutes registers device inspection and format switching.
func (s *Server) registerDeviceRoutes() {
	// Device overview
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Device",
		Description: "Get the virtual camera device, its streams and active format",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DeviceResponse, error) {
		return &models.DeviceResponse{
			Body: models.DeviceData{
				Name:        s.device.Name(),
				ID:          s.device.ID().String(),
				PixelFormat: string(s.device.ActiveDescriptor().PixelFormat),
				ActiveIndex: s.device.ActiveFormatIndex(),
				SinkLive:    s.device.SinkLive(),
				Streams: []models.StreamInfo{
					s.streamInfo(s.device.SourceStream()),
					s.streamInfo(s.device.SinkStream()),
				},
			},
		}, nil
	})

	// Format catalog
	huma.Register(s.api, huma.Operation{
		OperationID: "list-formats",
		Method:      http.MethodGet,
		Path:        "/api/device/formats",
		Summary:     "Formats",
		Description: "List the negotiable format catalog with exact rational durations",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.FormatListResponse, error) {
		return &models.FormatListResponse{Body: s.formatListData()}, nil
	})

	// Format switch. The commit happens asynchronously on the device's
	// serial queue; out-of-range indexes are rejected synchronously so the
	// caller gets a 400 instead of a silent no-op.
	huma.Register(s.api, huma.Operation{
		OperationID:   "switch-format",
		Method:        http.MethodPut,
		Path:          "/api/device/format",
		Summary:       "Switch Format",
		Description:   "Request a switch to the format at the given catalog index. Commit status arrives via SSE.",
		Tags:          []string{"device"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{400, 401},
	}, func(ctx context.Context, input *models.FormatSwitchInput) (*models.FormatSwitchResponse, error) {
		index := input.Body.Index
		if index < 0 || index >= s.device.Catalog().Len() {
			return nil, huma.Error400BadRequest("Format index out of range")
		}

		s.device.RequestFormatSwitch(index)
		return &models.FormatSwitchResponse{
			Body: models.FormatSwitchData{
				Status:    "accepted",
				Requested: index,
				Message:   "Switch requested. The format-switched event confirms the commit.",
			},
		}, nil
	})
}
