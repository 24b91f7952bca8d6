package handlers

import (
	"bytes"
	"context"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMJPEGStreamDeliversFrames(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
	handler := MJPEGStream(func() image.Image { return frame })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/verify/stream", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	handler(recorder, req)

	ct := recorder.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("expected multipart content type, got %q", ct)
	}
	if !bytes.Contains(recorder.Body.Bytes(), []byte("--frame")) {
		t.Error("expected at least one multipart boundary in the stream")
	}
	if !bytes.Contains(recorder.Body.Bytes(), []byte("Content-Type: image/jpeg")) {
		t.Error("expected JPEG part headers in the stream")
	}
}

func TestMJPEGStreamSkipsNilFrames(t *testing.T) {
	handler := MJPEGStream(func() image.Image { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/verify/stream", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	handler(recorder, req)

	if bytes.Contains(recorder.Body.Bytes(), []byte("--frame")) {
		t.Error("expected no frames before the first publish")
	}
}
