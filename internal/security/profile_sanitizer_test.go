package security

import "testing"

func TestProfileSanitizer_Sanitize(t *testing.T) {
	s := NewProfileSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Alice Smith", "Alice Smith"},
		{"empty", "", ""},
		{"trims whitespace", "  Alice  ", "Alice"},
		{"strips tags", "<b>Alice</b>", "Alice"},
		{"strips script", "Bob<script>alert(1)</script>", "Bob"},
		{"strips attributes", `<a href="javascript:alert(1)" onclick="x()">link</a>`, "link"},
		{"keeps ampersand", "Smith & Sons", "Smith & Sons"},
		{"keeps apostrophe", "O'Brien", "O'Brien"},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProfileSanitizer_Idempotent(t *testing.T) {
	s := NewProfileSanitizer()
	inputs := []string{"Alice", "<p>1 Main St</p>", "Tom & Jerry", "+1 555-0100"}

	for _, in := range inputs {
		once := s.Sanitize(in)
		twice := s.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize is not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
