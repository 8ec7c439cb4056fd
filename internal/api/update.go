package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openvcam/vcamd/internal/api/models"
	"github.com/openvcam/vcamd/internal/updater"
)

// registerUpdateRoutes registers self-update endpoints. When the updater is
// disabled (read-only install, missing configuration) every endpoint answers
// 503 with the reason instead of disappearing from the API.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.UpdateService
	if svc == nil {
		s.registerDisabledUpdateRoutes("updater not configured")
		return
	}
	if !svc.IsEnabled() {
		s.registerDisabledUpdateRoutes(svc.DisabledReason())
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "check-update",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Update",
		Description: "Query the release repository for a newer version",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(ctx context.Context, input *struct{}) (*models.UpdateCheckResponse, error) {
		info, err := svc.CheckForUpdate(ctx)
		if err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateCheckResponse{
			Body: models.UpdateCheckData{
				CurrentVersion:  info.CurrentVersion,
				LatestVersion:   info.LatestVersion,
				ReleaseNotes:    info.ReleaseNotes,
				ReleaseURL:      info.ReleaseURL,
				UpdateAvailable: info.UpdateAvailable,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Update Status",
		Description: "Get the updater state machine state",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.UpdateStatusResponse, error) {
		status := svc.GetStatus(ctx)
		data := models.UpdateStatusData{
			State:           string(status.State),
			CurrentVersion:  status.CurrentVersion,
			TargetVersion:   status.TargetVersion,
			Error:           status.Error,
			BackupAvailable: status.BackupAvailable,
		}
		if status.LastChecked != nil {
			data.LastChecked = status.LastChecked.Format(time.RFC3339)
		}
		return &models.UpdateStatusResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-update",
		Method:      http.MethodPost,
		Path:        "/api/update/apply",
		Summary:     "Apply Update",
		Description: "Download and apply the latest release, then restart",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500},
	}, func(ctx context.Context, input *struct{}) (*models.UpdateApplyResponse, error) {
		if err := svc.ApplyUpdate(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateApplyResponse{
			Body: models.UpdateApplyData{Message: "Update applied, restarting..."},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rollback-update",
		Method:      http.MethodPost,
		Path:        "/api/update/rollback",
		Summary:     "Rollback Update",
		Description: "Restore the previous binary from backup and restart",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(ctx context.Context, input *struct{}) (*models.UpdateApplyResponse, error) {
		if err := svc.Rollback(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateApplyResponse{
			Body: models.UpdateApplyData{Message: "Rolled back, restarting..."},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/update/restart",
		Summary:     "Restart",
		Description: "Restart the service without changing the binary",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.UpdateApplyResponse, error) {
		if err := svc.Restart(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateApplyResponse{
			Body: models.UpdateApplyData{Message: "Restarting..."},
		}, nil
	})
}

// registerDisabledUpdateRoutes keeps the update surface present but answers
// 503 everywhere so clients can show the reason.
func (s *Server) registerDisabledUpdateRoutes(reason string) {
	disabled := func(ctx context.Context, input *struct{}) (*models.UpdateApplyResponse, error) {
		return nil, huma.Error503ServiceUnavailable("Updates disabled: " + reason)
	}

	routes := []struct {
		id, method, path, summary string
	}{
		{"check-update", http.MethodGet, "/api/update/check", "Check for Update"},
		{"update-status", http.MethodGet, "/api/update/status", "Update Status"},
		{"apply-update", http.MethodPost, "/api/update/apply", "Apply Update"},
		{"rollback-update", http.MethodPost, "/api/update/rollback", "Rollback Update"},
		{"restart-service", http.MethodPost, "/api/update/restart", "Restart"},
	}
	for _, r := range routes {
		huma.Register(s.api, huma.Operation{
			OperationID: r.id,
			Method:      r.method,
			Path:        r.path,
			Summary:     r.summary,
			Description: "Unavailable: " + reason,
			Tags:        []string{"update"},
			Security:    withAuth(),
			Errors:      []int{401, 503},
		}, disabled)
	}
}

// mapUpdateError converts updater errors to HTTP status errors.
func mapUpdateError(err error) error {
	var updateErr *updater.Error
	if !errors.As(err, &updateErr) {
		return huma.Error500InternalServerError("Update operation failed", err)
	}

	switch updateErr.Code {
	case updater.ErrCodeInvalidState:
		return huma.Error409Conflict(updateErr.Message)
	case updater.ErrCodeNoUpdate:
		return huma.Error400BadRequest(updateErr.Message)
	case updater.ErrCodeNotFound, updater.ErrCodeNoBackup:
		return huma.Error404NotFound(updateErr.Message)
	case updater.ErrCodeDisabled:
		return huma.Error503ServiceUnavailable(updateErr.Message)
	default:
		return huma.Error500InternalServerError(updateErr.Message)
	}
}
