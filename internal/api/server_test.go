package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/openvcam/vcamd/internal/api/models"
	"github.com/openvcam/vcamd/internal/camera"
	"github.com/openvcam/vcamd/internal/events"
	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/placeholder"
)

const (
	testUser = "test"
	testPass = "secret"
)

type apiFixture struct {
	ts   *httptest.Server
	dev  *camera.Device
	sink *host.MemorySinkQueue
}

func newTestServer(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.Default()
	bus := events.New()
	sink := host.NewMemorySinkQueue(2)

	dev, err := camera.New(camera.Config{
		Name: "Test Camera",
		Identifiers: host.Identifiers{
			Device:       uuid.New(),
			SourceStream: uuid.New(),
			SinkStream:   uuid.New(),
		},
		Modes: []format.Mode{
			{Width: 640, Height: 480, FPS: 30},
			{Width: 1280, Height: 720, FPS: 29.97},
		},
		PixelFormat:     format.PixelFormatRGBA,
		PreferredWidth:  640,
		PreferredHeight: 480,
		Output:          host.NewFanout(1, logger),
		Sink:            sink,
		Registrar:       host.NewLoopbackRegistrar(logger),
		Placeholder:     placeholder.New(image.NewRGBA(image.Rect(0, 0, 4, 4))),
		Bus:             bus,
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("camera.New failed: %v", err)
	}

	server := NewServer(&Options{
		AuthUsername: testUser,
		AuthPassword: testPass,
		Device:       dev,
		Bus:          bus,
		Sink:         sink,
	})

	ts := httptest.NewServer(server.mux)
	t.Cleanup(func() {
		ts.Close()
		dev.Close()
	})
	return &apiFixture{ts: ts, dev: dev, sink: sink}
}

// doRequest performs an authenticated request and decodes the JSON body
// into out when out is non-nil.
func doRequest(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.SetBasicAuth(testUser, testPass)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode response %s: %v", string(data), err)
		}
	}
	return resp
}

func TestHealthEndpointWithoutAuth(t *testing.T) {
	f := newTestServer(t)

	resp, err := http.Get(f.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health models.HealthData
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestVersionEndpointWithoutAuth(t *testing.T) {
	f := newTestServer(t)

	resp, err := http.Get(f.ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestProtectedEndpointRequiresAuth(t *testing.T) {
	f := newTestServer(t)

	resp, err := http.Get(f.ts.URL + "/api/device")
	if err != nil {
		t.Fatalf("GET /api/device: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestDeviceEndpoint(t *testing.T) {
	f := newTestServer(t)

	var device models.DeviceData
	resp := doRequest(t, http.MethodGet, f.ts.URL+"/api/device", nil, &device)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if device.Name != "Test Camera" {
		t.Errorf("expected device name Test Camera, got %q", device.Name)
	}
	if device.PixelFormat != "rgba" {
		t.Errorf("expected pixel format rgba, got %q", device.PixelFormat)
	}
	if len(device.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(device.Streams))
	}
	if device.SinkLive {
		t.Error("sink should not be live on a fresh device")
	}
}

func TestFormatsEndpoint(t *testing.T) {
	f := newTestServer(t)

	var list models.FormatListData
	resp := doRequest(t, http.MethodGet, f.ts.URL+"/api/device/formats", nil, &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if list.Count != f.dev.Catalog().Len() {
		t.Errorf("expected %d formats, got %d", f.dev.Catalog().Len(), list.Count)
	}

	activeCount := 0
	for _, info := range list.Formats {
		if info.Active {
			activeCount++
			if info.Index != list.ActiveIndex {
				t.Errorf("active format index %d does not match active_index %d", info.Index, list.ActiveIndex)
			}
		}
		if len(info.Durations) == 0 {
			t.Errorf("format %d has no durations", info.Index)
		}
	}
	if activeCount != 1 {
		t.Errorf("expected exactly one active format, got %d", activeCount)
	}
}

func TestFormatSwitchAccepted(t *testing.T) {
	f := newTestServer(t)

	// Pick any non-active catalog index.
	target := (f.dev.ActiveFormatIndex() + 1) % f.dev.Catalog().Len()

	var data models.FormatSwitchData
	resp := doRequest(t, http.MethodPut, f.ts.URL+"/api/device/format",
		models.FormatSwitchBody{Index: target}, &data)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if data.Requested != target {
		t.Errorf("expected requested index %d, got %d", target, data.Requested)
	}
}

func TestFormatSwitchOutOfRange(t *testing.T) {
	f := newTestServer(t)

	resp := doRequest(t, http.MethodPut, f.ts.URL+"/api/device/format",
		models.FormatSwitchBody{Index: 99}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range index, got %d", resp.StatusCode)
	}
}

func TestStreamStartStop(t *testing.T) {
	f := newTestServer(t)

	var started models.StreamActionData
	resp := doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/source/start",
		models.StreamActionBody{ClientID: "tester"}, &started)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 on start, got %d", resp.StatusCode)
	}
	if started.Clients != 1 {
		t.Errorf("expected 1 client after start, got %d", started.Clients)
	}

	var stopped models.StreamActionData
	resp = doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/source/stop",
		models.StreamActionBody{}, &stopped)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 on stop, got %d", resp.StatusCode)
	}
	if stopped.Clients != 0 {
		t.Errorf("expected 0 clients after stop, got %d", stopped.Clients)
	}
}

func TestFrameSubmit(t *testing.T) {
	f := newTestServer(t)

	// 4x4 RGBA frame.
	payload := make([]byte, 4*4*4)
	body := models.FrameSubmitBody{
		Data:   base64.StdEncoding.EncodeToString(payload),
		Width:  4,
		Height: 4,
		PTS:    1.5,
	}

	var data models.FrameSubmitData
	resp := doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/sink/frames", body, &data)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if data.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", data.Sequence)
	}
	if data.Depth != 1 {
		t.Errorf("expected depth 1, got %d", data.Depth)
	}
}

func TestFrameSubmitSizeMismatch(t *testing.T) {
	f := newTestServer(t)

	body := models.FrameSubmitBody{
		Data:   base64.StdEncoding.EncodeToString(make([]byte, 10)),
		Width:  4,
		Height: 4,
	}
	resp := doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/sink/frames", body, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for size mismatch, got %d", resp.StatusCode)
	}
}

func TestFrameSubmitQueueFull(t *testing.T) {
	f := newTestServer(t)

	payload := make([]byte, 4*4*4)
	body := models.FrameSubmitBody{
		Data:   base64.StdEncoding.EncodeToString(payload),
		Width:  4,
		Height: 4,
	}

	// The test sink holds two pending frames; nothing drains it because
	// the sink stream never starts.
	for i := 0; i < 2; i++ {
		resp := doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/sink/frames", body, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("submit %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodPost, f.ts.URL+"/api/streams/sink/frames", body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when queue is full, got %d", resp.StatusCode)
	}
}

func TestLogLevelEndpoint(t *testing.T) {
	f := newTestServer(t)

	var data models.LogLevelData
	resp := doRequest(t, http.MethodPut, f.ts.URL+"/api/logs/level",
		models.LogLevelBody{Module: "camera", Level: "debug"}, &data)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if data.Module != "camera" || data.Level != "debug" {
		t.Errorf("unexpected response: %+v", data)
	}
}

func TestUpdateRoutesWithoutService(t *testing.T) {
	f := newTestServer(t)

	resp := doRequest(t, http.MethodGet, f.ts.URL+"/api/update/status", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when updater is not configured, got %d", resp.StatusCode)
	}
}
