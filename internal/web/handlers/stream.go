package handlers

import (
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"
)

// streamInterval paces the preview stream at roughly 30 frames per second,
// independent of the worker's own frame rate.
const streamInterval = 33 * time.Millisecond

// jpegQuality for preview frames; the stream is presentation-only.
const jpegQuality = 80

// MJPEGStream streams the latest preview frame as multipart JPEG until the
// client disconnects. Frames are pulled from the shared buffer at the
// stream's own cadence and never block the capture worker.
func MJPEGStream(latest func() image.Image) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}

			img := latest()
			if img == nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
				return
			}
			if err := jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
