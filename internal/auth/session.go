package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/thriftease/internal/model"
)

const (
	// SessionCookieName はセッションCookieの名前。
	SessionCookieName = "_session"

	sessionIssuer = "thriftease"
)

// SessionConfig はセッションストアの設定。
type SessionConfig struct {
	// Secrets は署名鍵の一覧。先頭の鍵で署名し、検証はすべての鍵で試みる。
	Secrets      []string
	MaxAge       time.Duration // 絶対有効期間
	IdleTimeout  time.Duration // 最終アクティビティからの許容時間
	CookieSecure bool
	CookieDomain string
}

// Session はCookieに保持される署名済みセッション。
type Session struct {
	ID           string
	Principal    model.Principal
	CreatedAt    time.Time
	LastActivity time.Time
}

// sessionClaims はセッションCookieのJWTペイロード。
type sessionClaims struct {
	UserID       string `json:"uid"`
	Username     string `json:"usr"`
	Name         string `json:"name,omitempty"`
	Provider     string `json:"prv"`
	// CreatedAt と LastActivity はUnixミリ秒。iat/expは秒単位のため期限判定には使わない
	CreatedAt    int64 `json:"cat"`
	LastActivity int64 `json:"lat"`
	jwt.RegisteredClaims
}

// SessionStore はセッションCookieの署名・検証と有効期限判定を行う。
// サーバー側に状態は持たない。
type SessionStore struct {
	config SessionConfig
	keys   [][]byte
	now    func() time.Time
}

// NewSessionStore はSessionStoreを生成する。署名鍵が1つもない場合はエラーを返す。
func NewSessionStore(config SessionConfig) (*SessionStore, error) {
	if len(config.Secrets) == 0 {
		return nil, errors.New("at least one session secret is required")
	}
	if config.MaxAge <= 0 {
		return nil, errors.New("session max age must be positive")
	}

	keys := make([][]byte, 0, len(config.Secrets))
	for _, s := range config.Secrets {
		if s == "" {
			return nil, errors.New("session secret must not be empty")
		}
		keys = append(keys, []byte(s))
	}

	return &SessionStore{
		config: config,
		keys:   keys,
		now:    time.Now,
	}, nil
}

// Create は認証済みユーザーの新しいセッションを生成する。
// 作成時刻を最終アクティビティ時刻として記録する。
func (s *SessionStore) Create(principal model.Principal) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now().Truncate(time.Millisecond)
	return &Session{
		ID:           id,
		Principal:    principal,
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

// Touch は最終アクティビティ時刻を現在時刻に更新する。
func (s *SessionStore) Touch(session *Session) {
	session.LastActivity = s.now().Truncate(time.Millisecond)
}

// Encode はセッションを先頭の鍵で署名したCookie値に変換する。
func (s *SessionStore) Encode(session *Session) (string, error) {
	claims := sessionClaims{
		UserID:       session.Principal.UserID,
		Username:     session.Principal.Username,
		Name:         session.Principal.Name,
		Provider:     session.Principal.Provider,
		CreatedAt:    session.CreatedAt.UnixMilli(),
		LastActivity: session.LastActivity.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    sessionIssuer,
			Subject:   session.Principal.UserID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.CreatedAt.Add(s.config.MaxAge)),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return value, nil
}

// Decode はCookie値を検証してセッションに復元する。
// 署名不正・形式不正はErrSessionInvalid、期限切れはErrSessionExpiredを返す。
// 絶対有効期間を先に判定し、その後アイドルタイムアウトを判定する。
func (s *SessionStore) Decode(value string) (*Session, error) {
	var lastErr error
	for _, key := range s.keys {
		claims := &sessionClaims{}
		_, err := jwt.ParseWithClaims(value, claims,
			func(*jwt.Token) (any, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		if err == nil {
			session, err := claims.session()
			if err != nil {
				return nil, err
			}
			if err := s.checkExpiry(session); err != nil {
				return nil, err
			}
			return session, nil
		}
		lastErr = err
		// 別の鍵で署名されている可能性があるのは署名不一致の場合のみ
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", model.ErrSessionInvalid, lastErr)
}

// Read はリクエストのセッションCookieを読み取って検証する。
// Cookieが無い場合もErrSessionInvalidを返す。panicはしない。
func (s *SessionStore) Read(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, model.ErrSessionInvalid
	}
	return s.Decode(cookie.Value)
}

// Write はセッションを署名してCookieとしてレスポンスに設定する。
// Cookieの有効期間は絶対有効期間の残り時間とする。
func (s *SessionStore) Write(w http.ResponseWriter, session *Session) error {
	value, err := s.Encode(session)
	if err != nil {
		return err
	}

	maxAge := int(session.CreatedAt.Add(s.config.MaxAge).Sub(s.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, s.cookie(value, maxAge))
	return nil
}

// Destroy はセッションCookieを失効させる。
// 空の値で上書きするため、以後のReadは必ず失敗する。
func (s *SessionStore) Destroy(w http.ResponseWriter) {
	c := s.cookie("", -1)
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (s *SessionStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *SessionStore) checkExpiry(session *Session) error {
	now := s.now()
	if now.After(session.CreatedAt.Add(s.config.MaxAge)) {
		return fmt.Errorf("absolute lifetime exceeded: %w", model.ErrSessionExpired)
	}
	if s.config.IdleTimeout > 0 && now.After(session.LastActivity.Add(s.config.IdleTimeout)) {
		return fmt.Errorf("idle timeout exceeded: %w", model.ErrSessionExpired)
	}
	return nil
}

// session はクレームからSessionを復元する。必須クレームが欠けていればErrSessionInvalid。
func (c *sessionClaims) session() (*Session, error) {
	if c.Issuer != sessionIssuer || c.UserID == "" || c.CreatedAt == 0 || c.LastActivity == 0 {
		return nil, fmt.Errorf("%w: missing required claims", model.ErrSessionInvalid)
	}
	return &Session{
		ID: c.ID,
		Principal: model.Principal{
			UserID:   c.UserID,
			Username: c.Username,
			Name:     c.Name,
			Provider: c.Provider,
		},
		CreatedAt:    time.UnixMilli(c.CreatedAt),
		LastActivity: time.UnixMilli(c.LastActivity),
	}, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
