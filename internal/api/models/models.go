// Package models holds the request and response shapes of the HTTP API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.3" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-08-26T10:00:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Format models
type DurationInfo struct {
	Numerator   uint32  `json:"numerator" example:"1001" doc:"Duration numerator in seconds"`
	Denominator uint32  `json:"denominator" example:"60000" doc:"Duration denominator"`
	FPS         float64 `json:"fps" example:"59.94" doc:"Equivalent frame rate"`
}

type FormatInfo struct {
	Index       int            `json:"index" example:"0" doc:"Catalog index used for switching"`
	Width       uint32         `json:"width" example:"1920" doc:"Frame width in pixels"`
	Height      uint32         `json:"height" example:"1080" doc:"Frame height in pixels"`
	PixelFormat string         `json:"pixel_format" example:"rgba" doc:"Pixel format"`
	FrameSize   int            `json:"frame_size" example:"8294400" doc:"Bytes per frame"`
	Durations   []DurationInfo `json:"durations" doc:"Valid frame durations, fastest first"`
	Active      bool           `json:"active" example:"true" doc:"Whether this format is active"`
}

type FormatListData struct {
	Formats     []FormatInfo `json:"formats" doc:"All negotiable formats"`
	ActiveIndex int          `json:"active_index" example:"0" doc:"Currently active format index"`
	Count       int          `json:"count" example:"4" doc:"Number of formats"`
}

type FormatListResponse struct {
	Body FormatListData
}

type FormatSwitchBody struct {
	Index int `json:"index" example:"2" doc:"Catalog index of the format to activate"`
}

type FormatSwitchInput struct {
	Body FormatSwitchBody
}

type FormatSwitchData struct {
	Status    string `json:"status" example:"accepted" doc:"Switch request status"`
	Requested int    `json:"requested" example:"2" doc:"Requested format index"`
	Message   string `json:"message" doc:"Status message"`
}

type FormatSwitchResponse struct {
	Body FormatSwitchData
}

// Device models
type StreamInfo struct {
	ID            string         `json:"id" doc:"Stream identifier (UUID)"`
	Direction     string         `json:"direction" example:"source" doc:"Stream direction: source or sink"`
	Clients       int            `json:"clients" example:"1" doc:"Active client count"`
	ActiveIndex   int            `json:"active_index" example:"0" doc:"Mirrored active format index"`
	FrameDuration DurationInfo   `json:"frame_duration" doc:"Fastest negotiated duration of the active format"`
	Properties    map[string]any `json:"properties" doc:"Property values the stream answers for"`
}

type DeviceData struct {
	Name        string       `json:"name" example:"Virtual Camera" doc:"Device display name"`
	ID          string       `json:"id" doc:"Device identifier (UUID)"`
	PixelFormat string       `json:"pixel_format" example:"rgba" doc:"Device pixel format"`
	ActiveIndex int          `json:"active_index" example:"0" doc:"Active format index"`
	SinkLive    bool         `json:"sink_live" example:"false" doc:"Whether a producer is streaming"`
	Streams     []StreamInfo `json:"streams" doc:"Source and sink stream facades"`
}

type DeviceResponse struct {
	Body DeviceData
}

// Stream lifecycle models
type StreamDirectionInput struct {
	Direction string `path:"direction" enum:"source,sink" example:"source" doc:"Stream direction"`
}

type StreamActionBody struct {
	ClientID string `json:"client_id,omitempty" example:"conference-app" doc:"Identifier of the requesting client"`
}

type StreamActionInput struct {
	StreamDirectionInput
	Body StreamActionBody
}

type StreamActionData struct {
	Status    string `json:"status" example:"accepted" doc:"Request status"`
	Direction string `json:"direction" example:"source" doc:"Stream direction"`
	Clients   int    `json:"clients" example:"1" doc:"Client count at the time of the request"`
}

type StreamActionResponse struct {
	Body StreamActionData
}

// Frame injection models
type FrameSubmitBody struct {
	Data          string  `json:"data" doc:"Base64-encoded frame payload"`
	Width         uint32  `json:"width" example:"1920" doc:"Frame width in pixels"`
	Height        uint32  `json:"height" example:"1080" doc:"Frame height in pixels"`
	PTS           float64 `json:"pts" example:"1.234" doc:"Presentation timestamp in seconds"`
	Discontinuity bool    `json:"discontinuity,omitempty" doc:"Marks a timing gap before this frame"`
}

type FrameSubmitInput struct {
	Body FrameSubmitBody
}

type FrameSubmitData struct {
	Status   string `json:"status" example:"queued" doc:"Submission status"`
	Sequence uint64 `json:"sequence" example:"42" doc:"Assigned sequence number"`
	Depth    int    `json:"depth" example:"1" doc:"Sink queue depth after submission"`
}

type FrameSubmitResponse struct {
	Body FrameSubmitData
}

// Log models
type LogLevelBody struct {
	Module string `json:"module" example:"camera" doc:"Module to adjust"`
	Level  string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New log level"`
}

type LogLevelInput struct {
	Body LogLevelBody
}

type LogLevelData struct {
	Status string `json:"status" example:"ok" doc:"Request status"`
	Module string `json:"module" example:"camera" doc:"Adjusted module"`
	Level  string `json:"level" example:"debug" doc:"Applied level"`
}

type LogLevelResponse struct {
	Body LogLevelData
}

// Update models
type UpdateCheckData struct {
	CurrentVersion  string `json:"current_version" example:"1.2.3" doc:"Running version"`
	LatestVersion   string `json:"latest_version" example:"1.3.0" doc:"Latest published version"`
	ReleaseNotes    string `json:"release_notes,omitempty" doc:"Release notes of the latest version"`
	ReleaseURL      string `json:"release_url,omitempty" doc:"Release page URL"`
	UpdateAvailable bool   `json:"update_available" example:"true" doc:"Whether an update is available"`
}

type UpdateCheckResponse struct {
	Body UpdateCheckData
}

type UpdateApplyData struct {
	Message string `json:"message" example:"Update applied, restarting..." doc:"Status message"`
}

type UpdateApplyResponse struct {
	Body UpdateApplyData
}

type UpdateStatusData struct {
	State           string `json:"state" example:"idle" doc:"Updater state machine state"`
	CurrentVersion  string `json:"current_version" example:"1.2.3" doc:"Running version"`
	TargetVersion   string `json:"target_version,omitempty" doc:"Version being applied, if any"`
	Error           string `json:"error,omitempty" doc:"Last updater error"`
	LastChecked     string `json:"last_checked,omitempty" doc:"Time of the last update check (RFC 3339)"`
	BackupAvailable bool   `json:"backup_available" example:"true" doc:"Whether a rollback backup exists"`
}

type UpdateStatusResponse struct {
	Body UpdateStatusData
}
