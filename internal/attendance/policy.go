// Package attendance enforces who may commit attendance and suppresses
// duplicate commits within a cooldown window.
package attendance

import (
	"sort"
	"sync"

	"github.com/veriface/veriface/internal/identity"
)

// RoleLookup resolves an identity's role. It returns false when the
// identity is unknown.
type RoleLookup func(name string) (identity.Role, bool)

// AccessPolicy combines the allow set with the role lookup: an identity may
// commit attendance iff it is on the allow list or holds the admin role.
// Enrollment alone grants nothing.
type AccessPolicy struct {
	mu      sync.RWMutex
	allowed map[string]string // normalized -> display name
	roles   RoleLookup
}

// NewAccessPolicy creates a policy with the given role lookup and initial
// allow list.
func NewAccessPolicy(roles RoleLookup, initial []string) *AccessPolicy {
	p := &AccessPolicy{
		allowed: make(map[string]string),
		roles:   roles,
	}
	for _, name := range initial {
		p.Allow(name)
	}
	return p
}

// Allowed reports whether the identity may commit attendance.
func (p *AccessPolicy) Allowed(name string) bool {
	if p.roles != nil {
		if role, ok := p.roles(name); ok && role == identity.RoleAdmin {
			return true
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.allowed[identity.Normalize(name)]
	return ok
}

// Allow adds an identity to the allow set.
func (p *AccessPolicy) Allow(name string) {
	if identity.IsBlank(name) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed[identity.Normalize(name)] = name
}

// Disallow removes an identity from the allow set. Admins remain implicitly
// allowed through their role.
func (p *AccessPolicy) Disallow(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.allowed, identity.Normalize(name))
}

// List returns the display names on the allow set, sorted.
func (p *AccessPolicy) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.allowed))
	for _, name := range p.allowed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
