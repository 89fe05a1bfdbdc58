// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/thriftease/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var principalContextKey = contextKey("principal")

// SessionGuard は有効なセッションを要求するインターフェース。
// auth.Authenticatorが実装する。
type SessionGuard interface {
	RequireUser(w http.ResponseWriter, r *http.Request) (*model.Principal, error)
}

// NewRequireUserMiddleware はセッションCookieを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストはloginPathへリダイレクトする。
// Acceptにapplication/jsonを含むリクエストにはリダイレクトせず401のJSONを返す。
func NewRequireUserMiddleware(guard SessionGuard, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := guard.RequireUser(w, r)
			if err != nil {
				if errors.Is(err, model.ErrUnauthenticated) {
					if wantsJSON(r) {
						WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
						return
					}
					http.Redirect(w, r, loginPath, http.StatusSeeOther)
					return
				}
				slog.Error("failed to verify session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				if wantsJSON(r) {
					WriteInternalServerError(w)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			AnnotateUserID(r.Context(), principal.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// PrincipalFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// RequireUserミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	principal, err := PrincipalFromContext(ctx)
	if err != nil {
		return "", err
	}
	if principal.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return principal.UserID, nil
}

// ContextWithPrincipal はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
