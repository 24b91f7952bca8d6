package attendance

import (
	"reflect"
	"testing"

	"github.com/veriface/veriface/internal/identity"
)

func rolesOf(m map[string]identity.Role) RoleLookup {
	return func(name string) (identity.Role, bool) {
		role, ok := m[identity.Normalize(name)]
		return role, ok
	}
}

func TestPolicyAllowList(t *testing.T) {
	p := NewAccessPolicy(nil, []string{"Alice"})

	if !p.Allowed("Alice") {
		t.Error("expected Alice to be allowed")
	}
	if !p.Allowed("alice") {
		t.Error("expected allow check to normalize case")
	}
	if p.Allowed("Bob") {
		t.Error("expected Bob not to be allowed")
	}

	p.Allow("Bob")
	if !p.Allowed("Bob") {
		t.Error("expected Bob to be allowed after Allow")
	}

	p.Disallow("bob")
	if p.Allowed("Bob") {
		t.Error("expected Bob not to be allowed after Disallow")
	}
}

func TestPolicyNormalizesDiacritics(t *testing.T) {
	p := NewAccessPolicy(nil, []string{"José"})
	if !p.Allowed("jose") {
		t.Error("expected diacritics-insensitive allow check")
	}
}

func TestPolicyAdminImplicitlyAllowed(t *testing.T) {
	p := NewAccessPolicy(rolesOf(map[string]identity.Role{
		"root": identity.RoleAdmin,
		"carl": identity.RoleUser,
	}), nil)

	if !p.Allowed("Root") {
		t.Error("expected admin role to allow commits without allow-list entry")
	}
	if p.Allowed("Carl") {
		t.Error("enrollment with user role alone must not allow commits")
	}
}

func TestPolicyIgnoresBlankNames(t *testing.T) {
	p := NewAccessPolicy(nil, []string{"  ", ""})
	if got := p.List(); len(got) != 0 {
		t.Errorf("expected empty allow list, got %v", got)
	}
}

func TestPolicyListSorted(t *testing.T) {
	p := NewAccessPolicy(nil, []string{"Zoe", "Alice", "Mallory"})
	expected := []string{"Alice", "Mallory", "Zoe"}
	if got := p.List(); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}
