package identity

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
	}{
		{"admin", RoleAdmin},
		{" Admin ", RoleAdmin},
		{"ADMIN", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"superuser", RoleUser},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.input); got != tt.expected {
			t.Errorf("ParseRole(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jiří", "Jiri"},
		{"José", "Jose"},
		{"Müller", "Muller"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RemoveDiacritics(tt.input); got != tt.expected {
			t.Errorf("RemoveDiacritics(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  José García "); got != "jose garcia" {
		t.Errorf("Normalize = %q, expected %q", got, "jose garcia")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"Alice", "alice", true},
		{"José", "jose", true},
		{" Bob ", "bob", true},
		{"Alice", "Bob", false},
		{"", "", true},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.expected {
			t.Errorf("Equal(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("   ") {
		t.Error("expected whitespace-only name to be blank")
	}
	if IsBlank("a") {
		t.Error("expected non-empty name not to be blank")
	}
}
