package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/thriftease/internal/model"
)

// --- モック定義 ---

type mockAccountResolver struct {
	resolveFn func(ctx context.Context, info *OAuthUserInfo) (*model.User, error)
}

func (m *mockAccountResolver) ResolveOAuthUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	return m.resolveFn(ctx, info)
}

// newGoogleTestServers はトークンエンドポイントとユーザー情報エンドポイントのテストサーバーを起動する。
func newGoogleTestServers(t *testing.T, userInfo map[string]any) (tokenURL, userInfoURL string) {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if got := r.PostForm.Get("code"); got != "test-auth-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenServer.Close)

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Authorizationヘッダーの検証
		if got := r.Header.Get("Authorization"); got != "Bearer test-access-token" {
			t.Errorf("unexpected Authorization header: %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
	t.Cleanup(userInfoServer.Close)

	return tokenServer.URL, userInfoServer.URL
}

func newCallbackRequest(query, stateCookie string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query, nil)
	if stateCookie != "" {
		req.AddCookie(&http.Cookie{Name: OAuthStateCookieName, Value: stateCookie})
	}
	return req
}

func TestGoogleStrategy_AuthCodeURL_ContainsRequiredParams(t *testing.T) {
	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	}, nil)

	url := strategy.AuthCodeURL("test-state-value")

	if !strings.HasPrefix(url, "https://accounts.google.com/") {
		t.Errorf("expected google auth endpoint, got %q", url)
	}

	tests := []struct {
		name     string
		contains string
	}{
		{"client_id", "client_id=test-client-id"},
		{"redirect_uri", "redirect_uri="},
		{"state", "state=test-state-value"},
		{"response_type", "response_type=code"},
		{"scope email", "email"},
		{"scope profile", "profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(url, tt.contains) {
				t.Errorf("URL should contain %q, got %q", tt.contains, url)
			}
		})
	}
}

func TestGoogleStrategy_Name(t *testing.T) {
	strategy := NewGoogleStrategy(GoogleOAuthConfig{}, nil)
	if strategy.Name() != "google" {
		t.Errorf("Name() = %q, want %q", strategy.Name(), "google")
	}
}

func TestGoogleStrategy_ExchangeCode_Success(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{
		"sub":            "google-sub-12345",
		"email":          "user@gmail.com",
		"email_verified": true,
		"name":           "Google User",
	})

	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
	}, nil)

	userInfo, err := strategy.ExchangeCode(context.Background(), "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if userInfo.Provider != "google" {
		t.Errorf("provider = %q, want %q", userInfo.Provider, "google")
	}
	if userInfo.ProviderUserID != "google-sub-12345" {
		t.Errorf("providerUserID = %q, want %q", userInfo.ProviderUserID, "google-sub-12345")
	}
	if userInfo.Email != "user@gmail.com" {
		t.Errorf("email = %q, want %q", userInfo.Email, "user@gmail.com")
	}
	if !userInfo.EmailVerified {
		t.Error("expected email to be verified")
	}
	if userInfo.Name != "Google User" {
		t.Errorf("name = %q, want %q", userInfo.Name, "Google User")
	}
}

func TestGoogleStrategy_ExchangeCode_TokenError(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{"sub": "x"})

	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
	}, nil)

	if _, err := strategy.ExchangeCode(context.Background(), "invalid-code"); err == nil {
		t.Fatal("expected error from ExchangeCode with invalid code")
	}
}

func TestGoogleStrategy_ExchangeCode_EmptySub(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{"email": "user@gmail.com"})

	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID: "test-client-id", TokenURL: tokenURL, UserInfoURL: userInfoURL,
	}, nil)

	if _, err := strategy.ExchangeCode(context.Background(), "test-auth-code"); err == nil {
		t.Fatal("expected error for empty sub")
	}
}

func TestGoogleStrategy_Attempt_Success(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{
		"sub":   "google-sub-12345",
		"email": "user@gmail.com",
		"name":  "Google User",
	})

	var resolved *OAuthUserInfo
	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID: "test-client-id", TokenURL: tokenURL, UserInfoURL: userInfoURL,
	}, &mockAccountResolver{
		resolveFn: func(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
			resolved = info
			return &model.User{ID: "user-1", Username: "user@gmail.com", FullName: "Google User", Provider: "google"}, nil
		},
	})

	req := newCallbackRequest("code=test-auth-code&state=abc", "abc")
	principal, err := strategy.Attempt(req.Context(), req)
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if principal.UserID != "user-1" || principal.Name != "Google User" || principal.Provider != "google" {
		t.Errorf("unexpected principal: %+v", principal)
	}
	if resolved == nil || resolved.ProviderUserID != "google-sub-12345" {
		t.Errorf("resolver received %+v", resolved)
	}
}

func TestGoogleStrategy_Attempt_UpstreamFailures(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{"sub": "google-sub-12345"})

	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID: "test-client-id", TokenURL: tokenURL, UserInfoURL: userInfoURL,
	}, &mockAccountResolver{
		resolveFn: func(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
			t.Error("resolver must not be called")
			return nil, nil
		},
	})

	tests := []struct {
		name   string
		query  string
		cookie string
	}{
		{"provider error", "error=access_denied&state=abc", "abc"},
		{"state mismatch", "code=test-auth-code&state=abc", "xyz"},
		{"missing state cookie", "code=test-auth-code&state=abc", ""},
		{"missing code", "state=abc", "abc"},
		{"exchange failure", "code=bad-code&state=abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newCallbackRequest(tt.query, tt.cookie)
			principal, err := strategy.Attempt(req.Context(), req)
			if !errors.Is(err, model.ErrUpstreamAuthFailure) {
				t.Errorf("expected ErrUpstreamAuthFailure, got %v", err)
			}
			if principal != nil {
				t.Errorf("expected nil principal, got %+v", principal)
			}
		})
	}
}

func TestGoogleStrategy_Attempt_ResolverError_IsNotUpstreamFailure(t *testing.T) {
	tokenURL, userInfoURL := newGoogleTestServers(t, map[string]any{"sub": "google-sub-12345"})

	strategy := NewGoogleStrategy(GoogleOAuthConfig{
		ClientID: "test-client-id", TokenURL: tokenURL, UserInfoURL: userInfoURL,
	}, &mockAccountResolver{
		resolveFn: func(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
			return nil, model.ErrStoreUnavailable
		},
	})

	req := newCallbackRequest("code=test-auth-code&state=abc", "abc")
	_, err := strategy.Attempt(req.Context(), req)
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, model.ErrUpstreamAuthFailure) {
		t.Error("store failure must not be reported as upstream failure")
	}
}
