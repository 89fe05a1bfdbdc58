package user

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/thriftease/internal/model"
)

func TestRegistrationInput_Validate_Valid(t *testing.T) {
	valid := []RegistrationInput{
		validInput(),
		{Username: "bob.smith@example.com", Password: "x", FullName: "Bob", Address: "A", Telephone: "+81 90-1234-5678"},
		{Username: "u_1", Password: strings.Repeat("p", 72), FullName: "Ü", Address: "B", Telephone: "123"},
	}
	for _, in := range valid {
		if err := in.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", in, err)
		}
	}
}

func TestRegistrationInput_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(in *RegistrationInput)
		field string
	}{
		{"missing username", func(in *RegistrationInput) { in.Username = "" }, "username"},
		{"short username", func(in *RegistrationInput) { in.Username = "ab" }, "username"},
		{"long username", func(in *RegistrationInput) { in.Username = strings.Repeat("a", 65) }, "username"},
		{"username with space", func(in *RegistrationInput) { in.Username = "al ice" }, "username"},
		{"username with markup", func(in *RegistrationInput) { in.Username = "<alice>" }, "username"},
		{"missing password", func(in *RegistrationInput) { in.Password = "" }, "password"},
		{"password over 72 bytes", func(in *RegistrationInput) { in.Password = strings.Repeat("p", 73) }, "password"},
		{"missing full name", func(in *RegistrationInput) { in.FullName = "" }, "full_name"},
		{"long full name", func(in *RegistrationInput) { in.FullName = strings.Repeat("n", 256) }, "full_name"},
		{"missing address", func(in *RegistrationInput) { in.Address = "" }, "address"},
		{"missing telephone", func(in *RegistrationInput) { in.Telephone = "" }, "telephone"},
		{"telephone with letters", func(in *RegistrationInput) { in.Telephone = "call me" }, "telephone"},
		{"telephone too short", func(in *RegistrationInput) { in.Telephone = "12" }, "telephone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mod(&in)
			err := in.Validate()
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var vErr *model.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *model.ValidationError, got %T", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestRegistrationInput_Normalize_KeepsPassword(t *testing.T) {
	in := RegistrationInput{Username: " alice ", Password: " pw ", FullName: " A ", Address: " B ", Telephone: " 123 "}
	in.Normalize()

	if in.Username != "alice" || in.FullName != "A" || in.Address != "B" || in.Telephone != "123" {
		t.Errorf("unexpected normalized input: %+v", in)
	}
	if in.Password != " pw " {
		t.Errorf("Password = %q, must not be trimmed", in.Password)
	}
}
