package handlers

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veriface/veriface/internal/session"
	"github.com/veriface/veriface/internal/store"
)

// fakeController scripts the supervisor surface for handler tests.
type fakeController struct {
	startErr     error
	status       session.Status
	frame        image.Image
	progress     session.Progress
	enrollErr    error
	lockoutReset bool

	startedWith string
	enrolled    string
	cleared     bool
	stopped     bool
}

func (c *fakeController) Start(name string) (session.Status, error) {
	c.startedWith = name
	if c.startErr != nil {
		return c.status, c.startErr
	}
	c.status.Running = true
	c.status.ExpectedIdentity = name
	return c.status, nil
}

func (c *fakeController) Stop() session.Status {
	c.stopped = true
	c.status.Running = false
	return c.status
}

func (c *fakeController) Status() session.Status { return c.status }

func (c *fakeController) ClearOutcomeFlags() { c.cleared = true }

func (c *fakeController) ResetLockout(name string) bool { return c.lockoutReset }

func (c *fakeController) LatestFrame() image.Image { return c.frame }

func (c *fakeController) StartEnrollment(name, role string) (session.Progress, error) {
	c.enrolled = name
	if c.enrollErr != nil {
		return c.progress, c.enrollErr
	}
	c.progress.Name = name
	c.progress.Status = session.EnrollCapturing
	return c.progress, nil
}

func (c *fakeController) StopEnrollment() session.Progress {
	c.progress.Status = session.EnrollStopped
	return c.progress
}

func (c *fakeController) EnrollmentProgress() session.Progress { return c.progress }

func (c *fakeController) EnrollmentFrame() image.Image { return c.frame }

// fakeAttendanceReader returns scripted records.
type fakeAttendanceReader struct {
	records []store.Record
	err     error
}

func (r *fakeAttendanceReader) ListAttendance(ctx context.Context, day time.Time) ([]store.Record, error) {
	return r.records, r.err
}

// fakeLast scripts the ledger's most recent commit.
type fakeLast struct {
	name string
	at   time.Time
	ok   bool
}

func (l *fakeLast) Last() (string, time.Time, bool) { return l.name, l.at, l.ok }

// jsonRequest creates a request with a JSON body.
func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
