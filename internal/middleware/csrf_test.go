package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestCSRFHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	mw := NewCSRFMiddleware(CSRFConfig{CookieSecure: false, CookieDomain: ""})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newTestCSRFHandler(t, &called)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/login", nil))

			if !called {
				t.Fatalf("handler should have been called for %s request", method)
			}
			if w.Result().StatusCode != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
			}
		})
	}
}

func TestCSRFMiddleware_GETRequest_SetsCSRFCookieAndContextToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{CookieSecure: true})

	var ctxToken string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	var csrfCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	if csrfCookie == nil {
		t.Fatal("expected csrf_token cookie to be set")
	}
	if len(csrfCookie.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(csrfCookie.Value))
	}
	if !csrfCookie.Secure {
		t.Error("expected Secure cookie")
	}
	if csrfCookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", csrfCookie.SameSite)
	}
	// 初回GETでもフォームに埋め込めるよう、発行したトークンをコンテキストに載せる
	if ctxToken != csrfCookie.Value {
		t.Errorf("context token = %q, want %q", ctxToken, csrfCookie.Value)
	}
}

func TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	var ctxToken string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Errorf("expected no Set-Cookie, got %d cookies", len(w.Result().Cookies()))
	}
	if ctxToken != "existing-token" {
		t.Errorf("context token = %q, want %q", ctxToken, "existing-token")
	}
}

func TestCSRFMiddleware_POSTRequest_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		form   string
	}{
		{name: "no cookie", header: "token-abc"},
		{name: "no submitted token", cookie: "token-abc"},
		{name: "header mismatch", cookie: "token-abc", header: "token-xyz"},
		{name: "form mismatch", cookie: "token-abc", form: "token-xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newTestCSRFHandler(t, &called)

			form := url.Values{}
			if tt.form != "" {
				form.Set(CSRFFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if called {
				t.Error("handler should not be called")
			}
			if w.Result().StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFMiddleware_POSTRequest_ValidHeaderToken_PassesThrough(t *testing.T) {
	called := false
	handler := newTestCSRFHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
	req.Header.Set(csrfHeaderName, "token-abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Fatal("handler should have been called")
	}
}

func TestCSRFMiddleware_POSTRequest_ValidFormToken_PassesThroughAndKeepsForm(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	var username string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 後続のハンドラーからもフォーム値を読めること
		username = r.PostFormValue("username")
		w.WriteHeader(http.StatusOK)
	}))

	form := url.Values{"username": {"alice"}, CSRFFormField: {"token-abc"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if username != "alice" {
		t.Errorf("username = %q, want %q", username, "alice")
	}
}

func TestCSRFMiddleware_AllStateMutatingMethods_RequireToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newTestCSRFHandler(t, &called)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/user/new", nil))

			if called {
				t.Errorf("%s without token should not reach handler", method)
			}
			if w.Result().StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFTokenHandler_ReturnsContextToken(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(NewCSRFTokenHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want %q", body["token"], "existing-token")
	}
}

func TestCSRFTokenHandler_WithoutMiddleware_Returns500(t *testing.T) {
	w := httptest.NewRecorder()
	NewCSRFTokenHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
