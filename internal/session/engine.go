package session

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/capture"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/overlay"
	"github.com/veriface/veriface/internal/recognize"
)

// readFailureDelay is the pause after a transient frame-read failure before
// trying again.
const readFailureDelay = 50 * time.Millisecond

// Engine runs one verification session: it owns the camera for the session's
// lifetime, applies the per-frame decision policy and drives the session
// state to exactly one terminal outcome.
type Engine struct {
	state      *State
	opener     capture.Opener
	locator    capture.Locator
	classifier recognize.Classifier
	ledger     *attendance.Ledger
	tuning     config.EngineTuning
	strategies []capture.DetectParams
	onLockout  func(claimed, observed string, attempts int)

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newEngine(
	state *State,
	opener capture.Opener,
	locator capture.Locator,
	classifier recognize.Classifier,
	ledger *attendance.Ledger,
	tuning config.EngineTuning,
	onLockout func(claimed, observed string, attempts int),
) *Engine {
	return &Engine{
		state:      state,
		opener:     opener,
		locator:    locator,
		classifier: classifier,
		ledger:     ledger,
		tuning:     tuning,
		strategies: capture.Strategies(),
		onLockout:  onLockout,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Stop signals the worker to exit at its next iteration boundary and waits
// for it to release the camera. Returns false when the worker did not
// synchronize within the timeout.
func (e *Engine) Stop(timeout time.Duration) bool {
	e.stopOnce.Do(func() { close(e.stop) })
	select {
	case <-e.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (e *Engine) stopped() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}

// run is the worker loop. Camera release and the running flag are handled
// by defers so no exit path can skip them.
func (e *Engine) run() {
	defer close(e.done)
	defer e.state.finish()

	expected := e.state.Expected()

	src, err := openWithRetry(e.opener, e.tuning.CameraOpenAttempts, e.tuning.CameraOpenBackoff())
	if err != nil {
		log.Printf("verify: camera unavailable: %v", err)
		e.state.markCameraShutdown()
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("verify: releasing camera: %v", err)
		}
	}()

	log.Printf("verify: session started for %q", expected)

	failedReads := 0
	for !e.stopped() {
		frame, err := src.Read()
		if err != nil {
			failedReads++
			if failedReads >= e.tuning.MaxFailedReads {
				log.Printf("verify: %d consecutive read failures, stopping camera", failedReads)
				e.state.markCameraShutdown()
				return
			}
			time.Sleep(readFailureDelay)
			continue
		}
		failedReads = 0

		if !e.processFrame(frame, expected) {
			return
		}

		select {
		case <-e.stop:
			return
		case <-time.After(e.tuning.FrameDelay()):
		}
	}
}

// processFrame applies the decision policy to one frame and publishes the
// annotated preview. It returns false when the session reached a terminal
// outcome.
func (e *Engine) processFrame(frame image.Image, expected string) bool {
	boxes := e.detect(frame)
	if len(boxes) == 0 {
		// No evidence this frame; not a mismatch.
		e.publish(frame, overlay.Annotation{
			Lines: []string{"No face detected - please face the camera"},
		})
		return true
	}

	box := capture.LargestRegion(boxes)
	result, err := e.classifier.Classify(cropRegion(frame, box))
	if err != nil {
		// Classification faults yield no usable evidence; the worker continues.
		log.Printf("verify: classification failed: %v", err)
		e.publish(frame, overlay.Annotation{
			Box:   &box,
			Lines: []string{fmt.Sprintf("Verifying as: %s", expected)},
		})
		return true
	}

	if e.matches(result, expected) {
		return e.handleMatch(frame, box, result, expected)
	}
	return e.handleMismatch(frame, box, result, expected)
}

// matches applies the triple condition: the predicted label must equal the
// claim, the nearest distance must be inside the verification threshold and
// the claim must dominate the near-neighbor set. The neighbor check rejects
// frames where the single best neighbor matches by chance while the broader
// evidence disagrees.
func (e *Engine) matches(r recognize.Result, expected string) bool {
	if !identity.Equal(r.Label, expected) {
		return false
	}
	if r.Distance > e.tuning.VerificationThreshold || r.Distance > e.tuning.ConfidenceThreshold {
		return false
	}
	required := max(2, int(float64(len(r.Neighbors))*e.tuning.NeighborMajority))
	matching := 0
	for _, n := range r.Neighbors {
		if identity.Equal(n.Label, expected) {
			matching++
		}
	}
	return matching >= required
}

func (e *Engine) handleMatch(frame image.Image, box image.Rectangle, r recognize.Result, expected string) bool {
	confirms := e.state.recordMatch()
	log.Printf("verify: confirmation %d/%d for %q (distance=%.1f)",
		confirms, e.tuning.RequiredConfirmations, expected, r.Distance)

	if confirms < e.tuning.RequiredConfirmations {
		e.publish(frame, overlay.Annotation{
			Box:      &box,
			BoxLabel: fmt.Sprintf("MATCH: %s [%d/%d]", r.Label, confirms, e.tuning.RequiredConfirmations),
			Match:    true,
			Lines: []string{
				fmt.Sprintf("Verifying as: %s", expected),
				fmt.Sprintf("Verifying... %d/%d confirmations", confirms, e.tuning.RequiredConfirmations),
			},
		})
		return true
	}

	written, err := e.ledger.Commit(context.Background(), expected, expected)
	if err != nil {
		// A refused commit is a programming or configuration fault. The
		// session stops without an outcome; nothing was written.
		log.Printf("verify: commit refused: %v", err)
		e.state.resetConfirm()
		return false
	}

	if !written {
		// Recently attended: a benign terminal outcome, not an error.
		log.Printf("verify: commit skipped for %q (cooldown)", expected)
		e.state.resetConfirm()
		e.publish(frame, overlay.Annotation{
			Box:      &box,
			BoxLabel: fmt.Sprintf("MATCH: %s", r.Label),
			Match:    true,
			Lines:    []string{"Attendance already recorded (cooldown)"},
		})
		return false
	}

	e.state.markAttendance()
	log.Printf("verify: attendance recorded for %q at %s", expected, time.Now().Format("15:04:05"))
	e.publish(frame, overlay.Annotation{
		Box:      &box,
		BoxLabel: fmt.Sprintf("MATCH: %s", r.Label),
		Match:    true,
		Lines: []string{
			"VERIFICATION SUCCESS!",
			fmt.Sprintf("Attendance recorded for %s", expected),
		},
	})
	return false
}

func (e *Engine) handleMismatch(frame image.Image, box image.Rectangle, r recognize.Result, expected string) bool {
	mismatches := e.state.recordMismatch(r.Label)
	log.Printf("verify: mismatch %d/%d: observed %q, claimed %q (distance=%.1f)",
		mismatches, e.tuning.MismatchLimit, r.Label, expected, r.Distance)

	annotation := overlay.Annotation{
		Box:      &box,
		BoxLabel: fmt.Sprintf("MISMATCH: got %s, need %s", r.Label, expected),
		Lines: []string{
			fmt.Sprintf("Verifying as: %s", expected),
			fmt.Sprintf("FACE MISMATCH! Attempt %d/%d", mismatches, e.tuning.MismatchLimit),
		},
	}

	if mismatches >= e.tuning.MismatchLimit {
		// Security lockout: the camera keeps observing a different identity
		// than the one claimed. Stop the session and require an
		// administrative reset for this claim.
		e.state.markLockout()
		if e.onLockout != nil {
			e.onLockout(expected, r.Label, mismatches)
		}
		log.Printf("verify: SECURITY ALERT: %d consecutive mismatches, claimed %q but observed %q; session locked",
			mismatches, expected, r.Label)
		annotation.Lines = append(annotation.Lines, "SECURITY LOCKOUT")
		e.publish(frame, annotation)
		return false
	}

	e.publish(frame, annotation)
	return true
}

func (e *Engine) detect(frame image.Image) []image.Rectangle {
	for _, p := range e.strategies {
		if boxes := e.locator.Detect(frame, p); len(boxes) > 0 {
			return boxes
		}
	}
	return nil
}

func (e *Engine) publish(frame image.Image, a overlay.Annotation) {
	e.state.SetFrame(overlay.Render(frame, a))
}

// openWithRetry opens the camera with bounded retries and short backoff.
func openWithRetry(opener capture.Opener, attempts int, backoff time.Duration) (capture.Source, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		src, err := opener.Open()
		if err == nil {
			return src, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return nil, fmt.Errorf("opening camera after %d attempts: %w", attempts, lastErr)
}

// cropRegion copies the boxed region out of the frame so the classifier
// never aliases the preview buffer.
func cropRegion(frame image.Image, box image.Rectangle) image.Image {
	box = box.Intersect(frame.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), frame, box.Min, draw.Src)
	return out
}
