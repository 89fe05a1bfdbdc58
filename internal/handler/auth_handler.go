// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/thriftease/internal/auth"
	"github.com/hitoshi/thriftease/internal/model"
)

const (
	loginPath     = "/login"
	protectedPath = "/protected"

	loginFailedMessage      = "Invalid username or password."
	loginInputMessage       = "Username and password are required."
	oauthFailedMessage      = "Google sign-in failed. Please try again."
	oauthFailureQueryValue  = "oauth"
	oauthFailureRedirectURL = loginPath + "?error=" + oauthFailureQueryValue
)

// Authenticator は認証ハンドラーが必要とする認証機能。
// auth.Authenticatorが実装する。
type Authenticator interface {
	Begin(w http.ResponseWriter, name string) (string, error)
	Authenticate(w http.ResponseWriter, r *http.Request, name string) (*model.Principal, error)
	IsAuthenticated(r *http.Request) (*model.Principal, bool)
	RequireUser(w http.ResponseWriter, r *http.Request) (*model.Principal, error)
	Logout(w http.ResponseWriter, r *http.Request)
}

// AuthHandler はログイン・ログアウト・OAuthフローのHTTPハンドラー。
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(authenticator Authenticator) *AuthHandler {
	return &AuthHandler{auth: authenticator}
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.IsAuthenticated(r); ok {
		http.Redirect(w, r, protectedPath, http.StatusSeeOther)
		return
	}

	data := pageData{Title: "Login"}
	if r.URL.Query().Get("error") == oauthFailureQueryValue {
		data.Error = oauthFailedMessage
	}
	render(w, r, http.StatusOK, pageLogin, data)
}

// Login はユーザー名・パスワードで認証する。
// POST /login
// 成功時はセッションCookieを発行して/protectedへ、失敗時はフォームを再表示する。
// ユーザーの有無とパスワード不一致は同じメッセージで応答する。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	_, err := h.auth.Authenticate(w, r, auth.StrategyLocal)
	if err == nil {
		http.Redirect(w, r, protectedPath, http.StatusSeeOther)
		return
	}

	data := pageData{
		Title: "Login",
		Form:  formValues{Username: strings.TrimSpace(r.PostFormValue("username"))},
	}

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		data.Error = loginInputMessage
		render(w, r, http.StatusBadRequest, pageLogin, data)
	case errors.Is(err, model.ErrInvalidCredentials):
		data.Error = loginFailedMessage
		render(w, r, http.StatusUnauthorized, pageLogin, data)
	default:
		// 原因はAuthenticatorがログに記録済み
		renderError(w, r, http.StatusInternalServerError)
	}
}

// GoogleBegin はGoogle OAuthフローを開始する。
// GET /auth/google, POST /auth/google
func (h *AuthHandler) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	url, err := h.auth.Begin(w, auth.StrategyGoogle)
	if err != nil {
		slog.Error("failed to start oauth flow", slog.String("error", err.Error()))
		http.Redirect(w, r, oauthFailureRedirectURL, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// プロバイダー側の失敗は同じメッセージでログイン画面へ戻し、
// データストア障害のみ500のエラーページとする。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authenticate(w, r, auth.StrategyGoogle); err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) {
			renderError(w, r, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, oauthFailureRedirectURL, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, protectedPath, http.StatusSeeOther)
}

// Logout はセッションを破棄してログイン画面へリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w, r)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// SessionStatus はログイン状態をJSONで返す。
// GET /api/session
func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	_, ok := h.auth.IsAuthenticated(r)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(map[string]bool{
		"isLoggedIn": ok,
	})
}
