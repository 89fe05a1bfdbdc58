package user

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/thriftease/internal/model"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	// bcryptは72バイトを超える部分を無視する
	maxPasswordBytes = 72
	maxNameLength    = 255
	maxAddressLength = 1000
)

var (
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]+$`)
	telephonePattern = regexp.MustCompile(`^\+?[0-9][0-9 -]{2,19}$`)
)

// RegistrationInput はユーザー登録フォームの入力値。
// /register と /user/new で同じ検証を行う。
type RegistrationInput struct {
	Username  string
	Password  string
	FullName  string
	Address   string
	Telephone string
}

// Normalize はパスワード以外の項目の前後の空白を取り除く。
func (in *RegistrationInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Address = strings.TrimSpace(in.Address)
	in.Telephone = strings.TrimSpace(in.Telephone)
}

// Validate は入力値を検証する。
// 最初に見つかった問題をmodel.ValidationErrorとして返す。
func (in RegistrationInput) Validate() error {
	switch n := utf8.RuneCountInString(in.Username); {
	case n == 0:
		return model.NewValidationError("username", "Username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		return model.NewValidationError("username", "Username must be between 3 and 64 characters")
	case !usernamePattern.MatchString(in.Username):
		return model.NewValidationError("username", "Username may contain only letters, digits and _ . @ + -")
	}

	if in.Password == "" {
		return model.NewValidationError("password", "Password is required")
	}
	if len(in.Password) > maxPasswordBytes {
		return model.NewValidationError("password", "Password must be at most 72 bytes")
	}

	if in.FullName == "" {
		return model.NewValidationError("full_name", "Full name is required")
	}
	if utf8.RuneCountInString(in.FullName) > maxNameLength {
		return model.NewValidationError("full_name", "Full name is too long")
	}

	if in.Address == "" {
		return model.NewValidationError("address", "Address is required")
	}
	if utf8.RuneCountInString(in.Address) > maxAddressLength {
		return model.NewValidationError("address", "Address is too long")
	}

	if in.Telephone == "" {
		return model.NewValidationError("telephone", "Telephone is required")
	}
	if !telephonePattern.MatchString(in.Telephone) {
		return model.NewValidationError("telephone", "Telephone must contain only digits, spaces, - and a leading +")
	}

	return nil
}
