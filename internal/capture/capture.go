// Package capture abstracts the camera device and the face detector so the
// capture-session engine can run against real hardware or scripted fakes.
package capture

import (
	"errors"
	"image"
)

// ErrReadFailed is returned by Source.Read when the device delivers no frame.
// Read failures are transient; the engine counts consecutive failures and
// gives up only after a bounded number.
var ErrReadFailed = errors.New("capture: failed to read frame")

// Source is an open camera device. It is exclusively owned by a single
// session worker for its lifetime.
type Source interface {
	// Read returns the next frame, or an error when the device delivers none.
	Read() (image.Image, error)
	// Close releases the device. Safe to call exactly once.
	Close() error
}

// Opener opens a camera device. Opening may fail transiently; callers retry
// a bounded number of times with short backoff.
type Opener interface {
	Open() (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func() (Source, error)

func (f OpenerFunc) Open() (Source, error) { return f() }

// DetectParams is one strategy of the detection cascade.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int  // minimum face side length in pixels
	Equalize     bool // apply histogram equalization before detection
}

// Locator detects candidate face regions in a frame.
type Locator interface {
	Detect(img image.Image, p DetectParams) []image.Rectangle
}

// Strategies returns the detection parameter cascade, ordered from the
// standard configuration down to maximum sensitivity. The engine runs them
// in order until one yields at least a single candidate.
func Strategies() []DetectParams {
	return []DetectParams{
		{ScaleFactor: 1.05, MinNeighbors: 2, MinSize: 30, Equalize: true},
		{ScaleFactor: 1.05, MinNeighbors: 2, MinSize: 30, Equalize: false},
		{ScaleFactor: 1.03, MinNeighbors: 1, MinSize: 20, Equalize: true},
		{ScaleFactor: 1.02, MinNeighbors: 1, MinSize: 20, Equalize: false},
	}
}

// LargestRegion selects the most prominent candidate: the box with the
// largest area. Ties break on position (topmost, then leftmost) so the
// choice never depends on detection order.
func LargestRegion(boxes []image.Rectangle) image.Rectangle {
	best := boxes[0]
	for _, b := range boxes[1:] {
		ba, bb := area(best), area(b)
		switch {
		case bb > ba:
			best = b
		case bb == ba && (b.Min.Y < best.Min.Y || (b.Min.Y == best.Min.Y && b.Min.X < best.Min.X)):
			best = b
		}
	}
	return best
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
