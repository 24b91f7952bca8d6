// Package session implements the biometric capture-session engine: the
// lock-guarded session state, the background verification worker, the
// enrollment capture variant and the supervisor that owns them.
package session

import (
	"image"
	"sync"
)

// Status is a consistent snapshot of one verification session, taken under
// a single lock acquisition.
type Status struct {
	Running            bool     `json:"running"`
	AttendanceRecorded bool     `json:"attendance_recorded"`
	RecognitionFailed  bool     `json:"recognition_failed"`
	CameraShutdown     bool     `json:"camera_shutdown"`
	ExpectedIdentity   string   `json:"expected_identity"`
	LastMismatch       string   `json:"last_mismatch,omitempty"`
	MismatchCount      int      `json:"mismatch_count"`
	ConfirmCount       int      `json:"confirm_count"`
	AllowedIdentities  []string `json:"allowed_identities,omitempty"`
}

// frameBuffer holds the latest annotated preview frame under its own lock
// so streaming readers never contend with status readers or block the
// worker behind them.
type frameBuffer struct {
	mu  sync.Mutex
	img image.Image
}

func (b *frameBuffer) set(img image.Image) {
	b.mu.Lock()
	b.img = img
	b.mu.Unlock()
}

func (b *frameBuffer) get() image.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

// State is the authoritative record of one verification attempt. The worker
// goroutine is the only writer of the decision fields while a session runs;
// any caller may read snapshots or clear terminal flags.
type State struct {
	mu                 sync.Mutex
	expected           string
	confirmCount       int
	mismatchCount      int
	lastMismatch       string
	attendanceRecorded bool
	recognitionFailed  bool
	cameraShutdown     bool
	running            bool

	frame frameBuffer
}

func NewState() *State {
	return &State{}
}

// begin resets all per-session fields and marks the session running.
// The expected identity is immutable until the next begin.
func (s *State) begin(expected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected = expected
	s.confirmCount = 0
	s.mismatchCount = 0
	s.lastMismatch = ""
	s.attendanceRecorded = false
	s.recognitionFailed = false
	s.cameraShutdown = false
	s.running = true
}

func (s *State) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Running reports whether the worker is currently active.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Expected returns the session's claimed identity.
func (s *State) Expected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expected
}

// recordMatch counts one confirming frame. A match resets the mismatch
// streak, so the two counters are never simultaneously positive.
func (s *State) recordMatch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmCount++
	s.mismatchCount = 0
	s.lastMismatch = ""
	return s.confirmCount
}

// recordMismatch counts one non-confirming frame and remembers the observed
// identity for reporting after the session ends.
func (s *State) recordMismatch(observed string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmCount = 0
	s.mismatchCount++
	s.lastMismatch = observed
	return s.mismatchCount
}

func (s *State) resetConfirm() {
	s.mu.Lock()
	s.confirmCount = 0
	s.mu.Unlock()
}

// markAttendance records the successful terminal outcome. Set at most once
// per session, only for the claimed identity.
func (s *State) markAttendance() {
	s.mu.Lock()
	s.attendanceRecorded = true
	s.mu.Unlock()
}

// markLockout records the security-lockout terminal outcome.
func (s *State) markLockout() {
	s.mu.Lock()
	s.recognitionFailed = true
	s.cameraShutdown = true
	s.mu.Unlock()
}

// markCameraShutdown records an operational camera fault.
func (s *State) markCameraShutdown() {
	s.mu.Lock()
	s.cameraShutdown = true
	s.mu.Unlock()
}

// ClearOutcomeFlags clears the sticky terminal flags and mismatch bookkeeping
// so a fresh status poll does not re-report a stale outcome. Idempotent.
func (s *State) ClearOutcomeFlags() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendanceRecorded = false
	s.recognitionFailed = false
	s.cameraShutdown = false
	s.mismatchCount = 0
	s.lastMismatch = ""
}

// Snapshot returns a consistent view of all decision fields.
func (s *State) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:            s.running,
		AttendanceRecorded: s.attendanceRecorded,
		RecognitionFailed:  s.recognitionFailed,
		CameraShutdown:     s.cameraShutdown,
		ExpectedIdentity:   s.expected,
		LastMismatch:       s.lastMismatch,
		MismatchCount:      s.mismatchCount,
		ConfirmCount:       s.confirmCount,
	}
}

// SetFrame publishes the latest annotated preview frame. Called by the
// worker every iteration, independent of the decision cadence.
func (s *State) SetFrame(img image.Image) {
	s.frame.set(img)
}

// Frame returns the latest preview frame, or nil before the first
// iteration. Never blocks the worker.
func (s *State) Frame() image.Image {
	return s.frame.get()
}
