// Package auth は認証ストラテジー、セッション管理、認証フローの調整を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/thriftease/internal/model"
)

// OAuthStateCookieName はOAuthのstate値を保持するCookieの名前。
const OAuthStateCookieName = "oauth_state"

// Strategy はリクエストの入力を検証済みのPrincipalに変換する認証方式。
type Strategy interface {
	// Name はストラテジーの登録名を返す（"local", "google"等）。
	Name() string
	// Attempt はリクエストから認証を試みる。
	Attempt(ctx context.Context, r *http.Request) (*model.Principal, error)
}

// Redirector は外部プロバイダーへのリダイレクトから始まるストラテジー。
type Redirector interface {
	// AuthCodeURL はstateを含む認可URLを生成する。
	AuthCodeURL(state string) string
}

// AttemptRecorder は認証試行の結果を記録する。
type AttemptRecorder interface {
	RecordAuthAttempt(strategy, outcome string)
}

// 認証試行の結果区分。ログとメトリクスで共通に使う。
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUpstreamFailure    = "upstream_failure"
	OutcomeError              = "error"
)

// Authenticator は登録されたストラテジーで認証を行い、結果をセッションCookieに書き込む。
// 起動時に1回生成し、ハンドラーに注入して使う。
type Authenticator struct {
	sessions   *SessionStore
	strategies map[string]Strategy
	recorder   AttemptRecorder
}

// NewAuthenticator はAuthenticatorを生成する。
func NewAuthenticator(sessions *SessionStore, strategies ...Strategy) *Authenticator {
	a := &Authenticator{
		sessions:   sessions,
		strategies: make(map[string]Strategy, len(strategies)),
	}
	for _, s := range strategies {
		a.Use(s)
	}
	return a
}

// Use はストラテジーを登録する。同名のストラテジーは上書きされる。
func (a *Authenticator) Use(s Strategy) {
	a.strategies[s.Name()] = s
}

// Strategy は登録名でストラテジーを検索する。
func (a *Authenticator) Strategy(name string) (Strategy, bool) {
	s, ok := a.strategies[name]
	return s, ok
}

// SetRecorder は認証試行の記録先を設定する。
func (a *Authenticator) SetRecorder(r AttemptRecorder) {
	a.recorder = r
}

// Begin はリダイレクト型ストラテジーの認証フローを開始する。
// stateを生成してCookieに保存し、プロバイダーの認可URLを返す。
func (a *Authenticator) Begin(w http.ResponseWriter, name string) (string, error) {
	s, ok := a.Strategy(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownStrategy, name)
	}
	redirector, ok := s.(Redirector)
	if !ok {
		return "", fmt.Errorf("strategy %s does not support redirects", name)
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   a.sessions.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return redirector.AuthCodeURL(state), nil
}

// Authenticate は指定ストラテジーで認証し、成功時はセッションCookieを発行する。
// 失敗時はセッションCookieに触れない。
func (a *Authenticator) Authenticate(w http.ResponseWriter, r *http.Request, name string) (*model.Principal, error) {
	s, ok := a.Strategy(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownStrategy, name)
	}

	if _, ok := s.(Redirector); ok {
		// stateは一度きり。成否にかかわらず破棄する
		http.SetCookie(w, &http.Cookie{
			Name:     OAuthStateCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.sessions.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	principal, err := s.Attempt(r.Context(), r)
	if err != nil {
		outcome := classifyFailure(err)
		a.record(name, outcome)
		level := slog.LevelWarn
		if outcome == OutcomeError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "login failed",
			slog.String("strategy", name),
			slog.String("reason", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	session, err := a.sessions.Create(*principal)
	if err != nil {
		a.record(name, OutcomeError)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := a.sessions.Write(w, session); err != nil {
		a.record(name, OutcomeError)
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	a.record(name, OutcomeSuccess)
	slog.Info("login succeeded",
		slog.String("strategy", name),
		slog.String("user_id", principal.UserID),
	)
	return principal, nil
}

// IsAuthenticated は有効なセッションがあればPrincipalを返す。
// 未ログイン・改ざん・期限切れはいずれも(nil, false)となり、エラーにはしない。
// 最終アクティビティは更新しない。アイドル時間の延長は保護ページのRequireUserだけが行う。
func (a *Authenticator) IsAuthenticated(r *http.Request) (*model.Principal, bool) {
	session, err := a.sessions.Read(r)
	if err != nil {
		return nil, false
	}
	return &session.Principal, true
}

// RequireUser は有効なセッションを要求する。
// 有効な場合は最終アクティビティを更新してCookieを再発行し、Principalを返す。
// 無効な場合はErrUnauthenticatedを返す。
func (a *Authenticator) RequireUser(w http.ResponseWriter, r *http.Request) (*model.Principal, error) {
	session, err := a.sessions.Read(r)
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			// 期限切れCookieはその場で破棄する
			a.sessions.Destroy(w)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	a.sessions.Touch(session)
	if err := a.sessions.Write(w, session); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return &session.Principal, nil
}

// Logout はセッションCookieを破棄する。
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := a.IsAuthenticated(r); ok {
		slog.Info("user logged out", slog.String("user_id", principal.UserID))
	}
	a.sessions.Destroy(w)
}

func (a *Authenticator) record(strategy, outcome string) {
	if a.recorder != nil {
		a.recorder.RecordAuthAttempt(strategy, outcome)
	}
}

// classifyFailure は認証失敗の原因を区分する。
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(err, model.ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, model.ErrUpstreamAuthFailure):
		return OutcomeUpstreamFailure
	default:
		return OutcomeError
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
