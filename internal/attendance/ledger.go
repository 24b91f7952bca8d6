package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/veriface/veriface/internal/identity"
)

// ErrNotAllowed rejects a commit for an identity outside the access policy.
// This is a programming or configuration fault, never silently downgraded.
var ErrNotAllowed = errors.New("attendance: identity not allowed to commit")

// ErrIdentityMismatch rejects a commit whose identity differs from the
// session's claim. This is the single most important safety property of the
// system: attendance is never attributed to anyone but the claimed identity.
var ErrIdentityMismatch = errors.New("attendance: identity differs from session claim")

// RecordWriter appends one attendance row.
type RecordWriter interface {
	AppendAttendance(ctx context.Context, name string, at time.Time) error
}

// Ledger gates attendance commits. It keeps a per-identity last-write
// timestamp for the lifetime of the process, across sessions, so a user
// cannot record twice within the cooldown window by restarting sessions.
type Ledger struct {
	mu       sync.Mutex
	last     map[string]lastWrite
	cooldown time.Duration
	writer   RecordWriter
	policy   *AccessPolicy
	clock    func() time.Time
}

type lastWrite struct {
	name string
	at   time.Time
}

// NewLedger creates a ledger writing through to the given store.
func NewLedger(writer RecordWriter, policy *AccessPolicy, cooldown time.Duration) *Ledger {
	return &Ledger{
		last:     make(map[string]lastWrite),
		cooldown: cooldown,
		writer:   writer,
		policy:   policy,
		clock:    time.Now,
	}
}

// Commit appends an attendance row for name, verifying it against the
// session's claimed identity. It returns (false, nil) when the write is
// suppressed by the cooldown window; that is a benign terminal outcome,
// not an error.
func (l *Ledger) Commit(ctx context.Context, name, claimed string) (bool, error) {
	if !l.policy.Allowed(name) {
		log.Printf("attendance: refused commit for %q: not on allow list", name)
		return false, fmt.Errorf("%w: %q", ErrNotAllowed, name)
	}
	if !identity.Equal(name, claimed) {
		log.Printf("attendance: refused commit for %q while session claims %q", name, claimed)
		return false, fmt.Errorf("%w: got %q, claimed %q", ErrIdentityMismatch, name, claimed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	key := identity.Normalize(name)
	if prev, ok := l.last[key]; ok && now.Sub(prev.at) <= l.cooldown {
		return false, nil
	}

	if err := l.writer.AppendAttendance(ctx, name, now); err != nil {
		return false, fmt.Errorf("writing attendance: %w", err)
	}
	l.last[key] = lastWrite{name: name, at: now}
	return true, nil
}

// Last returns the most recent accepted commit, if any.
func (l *Ledger) Last() (string, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var best lastWrite
	found := false
	for _, w := range l.last {
		if !found || w.at.After(best.at) {
			best = w
			found = true
		}
	}
	return best.name, best.at, found
}
