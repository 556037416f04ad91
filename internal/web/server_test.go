package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/trv-controller/internal/status"
)

type fakeControls struct {
	warmMode  *bool
	baked     bool
	warmC     uint8
	frostC    uint8
	returnErr error
}

func (f *fakeControls) SetWarmMode(warm bool) error {
	f.warmMode = &warm
	return f.returnErr
}

func (f *fakeControls) StartBake() error {
	f.baked = true
	return f.returnErr
}

func (f *fakeControls) SetWarmC(c uint8) error {
	f.warmC = c
	return f.returnErr
}

func (f *fakeControls) SetFrostC(c uint8) error {
	f.frostC = c
	return f.returnErr
}

func newTestServer(controls Controls) *Server {
	tracker := status.NewTracker(time.Now(), "ab12cd34", status.Config{
		Broker:   "tcp://localhost:1883",
		HTTPPort: ":8080",
	})
	tracker.Update(
		status.Valve{Mode: "WARM", TargetC: 18, TempC16: 275, PercentOpen: 45, CallingForHeat: true},
		status.Room{OccupancyPC: 80, RoomLit: true},
		status.Hub{},
	)
	return New(":0", tracker, controls)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersHTML(t *testing.T) {
	rec := get(t, newTestServer(nil), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML content type, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"ab12cd34", "WARM", "45%"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
}

func TestIndexNotFoundForOtherPaths(t *testing.T) {
	if rec := get(t, newTestServer(nil), "/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestJSONEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/index.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var decoded status.StatusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded.Status.Valve.PercentOpen != 45 {
		t.Errorf("expected valve position in output, got %+v", decoded.Status.Valve)
	}
}

func TestModeEndpoint(t *testing.T) {
	controls := &fakeControls{}
	s := newTestServer(controls)

	rec := postForm(t, s, "/api/mode", url.Values{"mode": {"frost"}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if controls.warmMode == nil || *controls.warmMode {
		t.Error("expected frost mode requested")
	}

	postForm(t, s, "/api/mode", url.Values{"mode": {"bake"}})
	if !controls.baked {
		t.Error("expected bake requested")
	}
}

func TestModeEndpointRejectsBadInput(t *testing.T) {
	s := newTestServer(&fakeControls{})

	if rec := postForm(t, s, "/api/mode", url.Values{"mode": {"sauna"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/mode"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestTargetEndpoint(t *testing.T) {
	controls := &fakeControls{}
	s := newTestServer(controls)

	rec := postForm(t, s, "/api/target", url.Values{"warm": {"21"}, "frost": {"7"}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if controls.warmC != 21 || controls.frostC != 7 {
		t.Errorf("expected targets applied, got warm=%d frost=%d", controls.warmC, controls.frostC)
	}
}

func TestTargetEndpointValidation(t *testing.T) {
	s := newTestServer(&fakeControls{})

	if rec := postForm(t, s, "/api/target", url.Values{}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty form, got %d", rec.Code)
	}
	if rec := postForm(t, s, "/api/target", url.Values{"warm": {"hot"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric value, got %d", rec.Code)
	}
	if rec := postForm(t, s, "/api/target", url.Values{"warm": {"300"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range value, got %d", rec.Code)
	}
}

func TestControlEndpointsDisabledWithoutControls(t *testing.T) {
	s := newTestServer(nil)
	if rec := postForm(t, s, "/api/mode", url.Values{"mode": {"warm"}}); rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
	if rec := postForm(t, s, "/api/target", url.Values{"warm": {"20"}}); rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
}
