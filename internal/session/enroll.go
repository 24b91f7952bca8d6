package session

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/veriface/veriface/internal/capture"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/overlay"
	"github.com/veriface/veriface/internal/recognize"
)

// EnrollStatus is the lifecycle state of an enrollment capture session.
type EnrollStatus string

const (
	EnrollIdle      EnrollStatus = "idle"
	EnrollStarting  EnrollStatus = "starting"
	EnrollCapturing EnrollStatus = "capturing"
	EnrollSaving    EnrollStatus = "saving"
	EnrollCompleted EnrollStatus = "completed"
	EnrollError     EnrollStatus = "error"
	EnrollStopped   EnrollStatus = "stopped"
)

// Progress reports how far an enrollment session has come.
type Progress struct {
	Current int          `json:"current"`
	Total   int          `json:"total"`
	Status  EnrollStatus `json:"status"`
	Name    string       `json:"name"`
}

// SampleSaver appends a completed sample batch to the training corpus.
type SampleSaver interface {
	SaveSamples(ctx context.Context, name string, role identity.Role, vectors [][]float32) error
}

// Enrollment collects a fixed quota of face samples for a new identity. It
// shares the frame-source/worker/preview-buffer shape with the verification
// engine but has no decision policy and no commit step; its only failure
// mode is an insufficient sample batch, which is discarded.
type Enrollment struct {
	name    string
	role    identity.Role
	opener  capture.Opener
	locator capture.Locator
	saver   SampleSaver
	tuning  config.TuningConfig
	onSaved func()

	strategies []capture.DetectParams

	mu       sync.Mutex
	progress Progress
	frame    frameBuffer

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newEnrollment(
	name string,
	role identity.Role,
	opener capture.Opener,
	locator capture.Locator,
	saver SampleSaver,
	tuning config.TuningConfig,
	onSaved func(),
) *Enrollment {
	return &Enrollment{
		name:       name,
		role:       role,
		opener:     opener,
		locator:    locator,
		saver:      saver,
		tuning:     tuning,
		onSaved:    onSaved,
		strategies: capture.Strategies(),
		progress: Progress{
			Total:  tuning.Enrollment.SampleQuota,
			Status: EnrollStarting,
			Name:   name,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Progress returns the current enrollment progress snapshot.
func (e *Enrollment) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Running reports whether the capture worker is still active.
func (e *Enrollment) Running() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Frame returns the latest annotated capture frame for preview streaming.
func (e *Enrollment) Frame() image.Image {
	return e.frame.get()
}

// Stop signals the worker to discard the partial batch and waits for it to
// release the camera.
func (e *Enrollment) Stop(timeout time.Duration) bool {
	e.stopOnce.Do(func() { close(e.stop) })
	select {
	case <-e.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (e *Enrollment) setStatus(status EnrollStatus) {
	e.mu.Lock()
	e.progress.Status = status
	e.mu.Unlock()
}

func (e *Enrollment) setCurrent(n int) {
	e.mu.Lock()
	e.progress.Current = n
	e.mu.Unlock()
}

func (e *Enrollment) stopped() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}

func (e *Enrollment) run() {
	defer close(e.done)

	quota := e.tuning.Enrollment.SampleQuota
	every := e.tuning.Enrollment.SampleEvery
	if every < 1 {
		every = 1
	}

	src, err := openWithRetry(e.opener, e.tuning.Engine.CameraOpenAttempts, e.tuning.Engine.CameraOpenBackoff())
	if err != nil {
		log.Printf("enroll: camera unavailable: %v", err)
		e.setStatus(EnrollError)
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("enroll: releasing camera: %v", err)
		}
	}()

	e.setStatus(EnrollCapturing)
	log.Printf("enroll: capturing %d samples for %q", quota, e.name)

	var samples [][]float32
	detections := 0
	failedReads := 0

	for len(samples) < quota {
		if e.stopped() {
			// Partial batch is discarded.
			e.setStatus(EnrollStopped)
			return
		}

		frame, err := src.Read()
		if err != nil {
			failedReads++
			if failedReads >= e.tuning.Engine.MaxFailedReads {
				log.Printf("enroll: %d consecutive read failures, aborting", failedReads)
				e.setStatus(EnrollError)
				return
			}
			time.Sleep(readFailureDelay)
			continue
		}
		failedReads = 0

		annotation := overlay.Annotation{
			Lines: []string{fmt.Sprintf("Enrolling %s: %d/%d", e.name, len(samples), quota)},
		}

		if boxes := e.detect(frame); len(boxes) > 0 {
			box := capture.LargestRegion(boxes)
			if detections%every == 0 {
				samples = append(samples, recognize.Vectorize(cropRegion(frame, box)))
				e.setCurrent(len(samples))
			}
			detections++
			annotation.Box = &box
			annotation.BoxLabel = fmt.Sprintf("%d/%d", len(samples), quota)
			annotation.Match = true
		}

		e.frame.set(overlay.Render(frame, annotation))

		select {
		case <-e.stop:
			e.setStatus(EnrollStopped)
			return
		case <-time.After(e.tuning.Engine.FrameDelay()):
		}
	}

	e.setStatus(EnrollSaving)
	if err := e.saver.SaveSamples(context.Background(), e.name, e.role, samples); err != nil {
		log.Printf("enroll: saving samples for %q: %v", e.name, err)
		e.setStatus(EnrollError)
		return
	}

	e.setStatus(EnrollCompleted)
	log.Printf("enroll: completed %d samples for %q", len(samples), e.name)
	if e.onSaved != nil {
		e.onSaved()
	}
}

func (e *Enrollment) detect(frame image.Image) []image.Rectangle {
	for _, p := range e.strategies {
		if boxes := e.locator.Detect(frame, p); len(boxes) > 0 {
			return boxes
		}
	}
	return nil
}
