package model

import (
	"errors"
	"fmt"
)

// 認証・ユーザー管理で扱うエラー種別。
// 呼び出し側はerrors.Isで判定する。
var (
	// ErrInvalidInput は必須項目の欠落や形式不正。フォーム上でその場に表示する。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials はユーザー名またはパスワードの不一致。
	// ユーザー名の存在有無は区別しない。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername はユーザー名が既に登録されている。
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateIdentity は同じ外部IDが既に別ユーザーに紐付いている。
	ErrDuplicateIdentity = errors.New("identity already linked")
	// ErrSessionExpired はセッションの絶対有効期限またはアイドルタイムアウトを超過した。
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionInvalid はセッションCookieが存在しない、または署名が不正。
	ErrSessionInvalid = errors.New("session invalid")
	// ErrUnauthenticated は有効なセッションが必要な操作で未ログインだった。
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUpstreamAuthFailure はOAuthプロバイダー側の拒否・通信失敗。
	ErrUpstreamAuthFailure = errors.New("upstream authentication failure")
	// ErrStoreUnavailable はデータストアの障害。認証失敗とは区別して5xxで返す。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnknownStrategy は未登録の認証ストラテジー名が指定された。
	ErrUnknownStrategy = errors.New("unknown authentication strategy")
)

// ValidationError はフォーム入力の検証エラー。ErrInvalidInputとして判定できる。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap はErrInvalidInputを返す。
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// APIError は統一エラーフォーマットを表す。
// JSONを返すエンドポイントで使用する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Please log in.",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
