// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダーの種別。
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User はアプリケーションのユーザーを表す。
// PasswordHashが空の場合はOAuth専用アカウントであり、ローカル認証ではログインできない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FullName     string
	Address      string
	Telephone    string
	Email        string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はローカル認証用のパスワードが設定されているかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// DisplayName は画面表示用の名前を返す。氏名が未設定の場合はユーザー名を使う。
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Principal はセッションに保持される認証済みユーザーの識別情報。
// ローカル認証・OAuth認証のどちらでも同じ形で格納する。
type Principal struct {
	UserID   string
	Username string
	Name     string
	Provider string
}

// NewPrincipal はUserからPrincipalを生成する。
func NewPrincipal(u *User) *Principal {
	return &Principal{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.DisplayName(),
		Provider: u.Provider,
	}
}
