package session

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/capture"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/recognize"
)

// testTuning mirrors the production tuning with millisecond delays so the
// worker loops run fast under test.
func testTuning() config.TuningConfig {
	return config.TuningConfig{
		Engine: config.EngineTuning{
			ConfidenceThreshold:   6000,
			VerificationThreshold: 5500,
			RequiredConfirmations: 3,
			MismatchLimit:         5,
			NeighborCount:         5,
			NeighborMajority:      0.6,
			MaxFailedReads:        3,
			CameraOpenAttempts:    1,
			CameraOpenBackoffMs:   1,
			FrameDelayMs:          1,
		},
		Attendance: config.AttendanceTuning{CooldownSeconds: 60},
		Enrollment: config.EnrollmentTuning{SampleQuota: 4, SampleEvery: 2},
	}
}

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

// fakeSource delivers frames until closed. With readErr set every read fails.
type fakeSource struct {
	mu      sync.Mutex
	img     image.Image
	readErr error
	closed  bool
	reads   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{img: testFrame()}
}

func (s *fakeSource) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.img, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func openerFor(src *fakeSource) capture.Opener {
	return capture.OpenerFunc(func() (capture.Source, error) { return src, nil })
}

// fakeLocator detects a fixed box set; accept filters by strategy.
type fakeLocator struct {
	boxes  []image.Rectangle
	accept func(p capture.DetectParams) bool
}

func (l *fakeLocator) Detect(img image.Image, p capture.DetectParams) []image.Rectangle {
	if l.accept != nil && !l.accept(p) {
		return nil
	}
	return l.boxes
}

func faceLocator() *fakeLocator {
	return &fakeLocator{boxes: []image.Rectangle{image.Rect(10, 10, 40, 40)}}
}

// fakeClassifier replays a scripted result sequence, repeating the last
// entry once the script is exhausted.
type fakeClassifier struct {
	mu     sync.Mutex
	script []recognize.Result
	idx    int
	err    error
	ready  bool
}

func (c *fakeClassifier) Classify(crop image.Image) (recognize.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return recognize.Result{}, c.err
	}
	r := c.script[c.idx]
	if c.idx < len(c.script)-1 {
		c.idx++
	}
	return r, nil
}

func (c *fakeClassifier) Ready() bool { return c.ready }

func scripted(results ...recognize.Result) *fakeClassifier {
	return &fakeClassifier{script: results, ready: true}
}

// matchResult is a confident classification of name with unanimous
// neighbor support.
func matchResult(name string) recognize.Result {
	return recognize.Result{
		Label:     name,
		Distance:  100,
		Neighbors: neighborsOf(name, name, name, name, name),
	}
}

func mismatchResult(observed string) recognize.Result {
	return recognize.Result{
		Label:     observed,
		Distance:  100,
		Neighbors: neighborsOf(observed, observed, observed, observed, observed),
	}
}

func neighborsOf(labels ...string) []recognize.Neighbor {
	out := make([]recognize.Neighbor, len(labels))
	for i, l := range labels {
		out[i] = recognize.Neighbor{Label: l, Distance: float64(100 + i)}
	}
	return out
}

// fakeRecordWriter counts attendance rows.
type fakeRecordWriter struct {
	mu   sync.Mutex
	rows []string
	err  error
}

func (w *fakeRecordWriter) AppendAttendance(ctx context.Context, name string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, name)
	return nil
}

func (w *fakeRecordWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func testLedger(allowed []string) (*attendance.Ledger, *fakeRecordWriter) {
	writer := &fakeRecordWriter{}
	return attendance.NewLedger(writer, attendance.NewAccessPolicy(nil, allowed), time.Minute), writer
}

// fakeSaver records the saved enrollment batch.
type fakeSaver struct {
	mu      sync.Mutex
	name    string
	vectors [][]float32
	err     error
}

func (s *fakeSaver) SaveSamples(ctx context.Context, name string, role identity.Role, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.name = name
	s.vectors = vectors
	return nil
}

func (s *fakeSaver) saved() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, len(s.vectors)
}

// runWorker runs fn and fails the test if it does not return in time.
func runWorker(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not terminate")
	}
}
