package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ada@example.com", true},
		{"  Ada@Example.COM ", true},
		{"ada@example", false},
		{"ada@@example.com", false},
		{"@example.com", false},
		{"ada example@x.com", false},
		{"ada@.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsValidEmail(tt.in); got != tt.want {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	if got := NormalizePhone(" +1 (555) 010-0199 "); got != "+15550100199" {
		t.Fatalf("NormalizePhone = %q", got)
	}
	if IsValidPhone("12-34") {
		t.Fatal("short phone accepted")
	}
	if !IsValidPhone("(555) 010-0199") {
		t.Fatal("formatted phone rejected")
	}
}

func TestNormalizeString(t *testing.T) {
	if got := NormalizeString("  Ada \t  Lovelace "); got != "Ada Lovelace" {
		t.Fatalf("NormalizeString = %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("Truncate = %q", got)
	}
}
