package session

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/capture"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/recognize"
)

var (
	// ErrAlreadyRunning means a capture session currently owns the camera.
	ErrAlreadyRunning = errors.New("session: a capture session is already running")
	// ErrMissingIdentity rejects a session start with a blank identity claim.
	ErrMissingIdentity = errors.New("session: no identity claimed")
	// ErrModelUnavailable means no trained classifier is available. Fatal at
	// start, not retried.
	ErrModelUnavailable = errors.New("session: no trained model available")
	// ErrLockedOut rejects a start for an identity in security lockout until
	// an administrator resets it.
	ErrLockedOut = errors.New("session: identity is locked out")
)

// stopTimeout bounds how long Stop waits for a worker to exit and release
// the camera.
const stopTimeout = 5 * time.Second

// Classifier is the capability the supervisor needs from the recognition
// model: classification plus a readiness probe at session start.
type Classifier interface {
	recognize.Classifier
	Ready() bool
}

// Lockout records one security lockout for a claimed identity.
type Lockout struct {
	Claimed  string    `json:"claimed"`
	Observed string    `json:"observed"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// Deps are the collaborators a Supervisor drives.
type Deps struct {
	Opener     capture.Opener
	Locator    capture.Locator
	Classifier Classifier
	Ledger     *attendance.Ledger
	Policy     *attendance.AccessPolicy
	Saver      SampleSaver
	Tuning     config.TuningConfig
	OnEnrolled func() // invoked after a completed enrollment batch is saved
}

// Supervisor is the process-wide controller: at most one active capture
// session (verification or enrollment) at a time, since the camera is
// exclusively owned by the active worker.
type Supervisor struct {
	deps  Deps
	state *State

	mu         sync.Mutex
	engine     *Engine
	enrollment *Enrollment

	lockMu   sync.Mutex
	lockouts map[string]Lockout
}

func NewSupervisor(deps Deps) *Supervisor {
	return &Supervisor{
		deps:     deps,
		state:    NewState(),
		lockouts: make(map[string]Lockout),
	}
}

// Start begins a verification session for the claimed identity. Starting
// while a session is active returns the existing status with
// ErrAlreadyRunning rather than disturbing the running session.
func (s *Supervisor) Start(claimed string) (Status, error) {
	if identity.IsBlank(claimed) {
		return s.Status(), ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Running() || s.enrollmentActive() {
		return s.statusLocked(), ErrAlreadyRunning
	}

	if lo, ok := s.lockout(claimed); ok {
		return s.statusLocked(), fmt.Errorf(
			"%w: claimed %q but observed %q over %d attempts",
			ErrLockedOut, lo.Claimed, lo.Observed, lo.Attempts)
	}

	if s.deps.Classifier == nil || !s.deps.Classifier.Ready() {
		return s.statusLocked(), ErrModelUnavailable
	}

	s.state.begin(claimed)
	s.engine = newEngine(
		s.state,
		s.deps.Opener,
		s.deps.Locator,
		s.deps.Classifier,
		s.deps.Ledger,
		s.deps.Tuning.Engine,
		s.recordLockout,
	)
	go s.engine.run()
	return s.statusLocked(), nil
}

// Stop cancels the active verification session and waits for the worker to
// release the camera. Stopping an already-stopped session is a no-op.
func (s *Supervisor) Stop() Status {
	s.mu.Lock()
	engine := s.engine
	s.engine = nil
	s.mu.Unlock()

	if engine != nil {
		engine.Stop(stopTimeout)
	}
	return s.Status()
}

// Status returns a consistent snapshot of the verification session plus the
// current allow list.
func (s *Supervisor) Status() Status {
	st := s.state.Snapshot()
	if s.deps.Policy != nil {
		st.AllowedIdentities = s.deps.Policy.List()
	}
	return st
}

// statusLocked is Status for callers already holding s.mu. The session
// state has its own lock, so this only avoids re-entering s.mu.
func (s *Supervisor) statusLocked() Status {
	st := s.state.Snapshot()
	if s.deps.Policy != nil {
		st.AllowedIdentities = s.deps.Policy.List()
	}
	return st
}

// ClearOutcomeFlags clears the sticky terminal flags. Idempotent.
func (s *Supervisor) ClearOutcomeFlags() {
	s.state.ClearOutcomeFlags()
}

// LatestFrame returns the newest verification preview frame, or nil.
func (s *Supervisor) LatestFrame() image.Image {
	return s.state.Frame()
}

func (s *Supervisor) recordLockout(claimed, observed string, attempts int) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	s.lockouts[identity.Normalize(claimed)] = Lockout{
		Claimed:  claimed,
		Observed: observed,
		Attempts: attempts,
		At:       time.Now(),
	}
}

func (s *Supervisor) lockout(claimed string) (Lockout, bool) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lo, ok := s.lockouts[identity.Normalize(claimed)]
	return lo, ok
}

// ResetLockout clears the security lockout for an identity. Returns false
// when no lockout exists for it.
func (s *Supervisor) ResetLockout(claimed string) bool {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	key := identity.Normalize(claimed)
	if _, ok := s.lockouts[key]; !ok {
		return false
	}
	delete(s.lockouts, key)
	return true
}

// StartEnrollment begins an enrollment capture session. The camera is a
// single shared device, so enrollment is refused while any session runs.
func (s *Supervisor) StartEnrollment(name, role string) (Progress, error) {
	if identity.IsBlank(name) {
		return s.EnrollmentProgress(), ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Running() || s.enrollmentActive() {
		return s.enrollmentProgressLocked(), ErrAlreadyRunning
	}

	s.enrollment = newEnrollment(
		name,
		identity.ParseRole(role),
		s.deps.Opener,
		s.deps.Locator,
		s.deps.Saver,
		s.deps.Tuning,
		s.deps.OnEnrolled,
	)
	go s.enrollment.run()
	return s.enrollmentProgressLocked(), nil
}

// StopEnrollment cancels an active enrollment, discarding the partial
// batch. A no-op when none is running.
func (s *Supervisor) StopEnrollment() Progress {
	s.mu.Lock()
	enrollment := s.enrollment
	s.mu.Unlock()

	if enrollment != nil && enrollment.Running() {
		enrollment.Stop(stopTimeout)
	}
	return s.EnrollmentProgress()
}

// EnrollmentProgress reports the latest enrollment progress. The snapshot
// of a finished enrollment stays visible until the next start.
func (s *Supervisor) EnrollmentProgress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollmentProgressLocked()
}

func (s *Supervisor) enrollmentProgressLocked() Progress {
	if s.enrollment == nil {
		return Progress{
			Total:  s.deps.Tuning.Enrollment.SampleQuota,
			Status: EnrollIdle,
		}
	}
	return s.enrollment.Progress()
}

// EnrollmentFrame returns the newest enrollment preview frame, or nil.
func (s *Supervisor) EnrollmentFrame() image.Image {
	s.mu.Lock()
	enrollment := s.enrollment
	s.mu.Unlock()
	if enrollment == nil {
		return nil
	}
	return enrollment.Frame()
}

func (s *Supervisor) enrollmentActive() bool {
	return s.enrollment != nil && s.enrollment.Running()
}
