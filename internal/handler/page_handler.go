package handler

import (
	"net/http"

	"github.com/hitoshi/thriftease/internal/middleware"
	"github.com/hitoshi/thriftease/internal/model"
)

// PageHandler は静的なページのHTTPハンドラー。
type PageHandler struct {
	sessions SessionChecker
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(sessions SessionChecker) *PageHandler {
	return &PageHandler{sessions: sessions}
}

// Home はトップページを表示する。ログイン状態に応じてLoginリンクかLogoutボタンを出す。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	principal, _ := h.sessions.IsAuthenticated(r)
	render(w, r, http.StatusOK, pageIndex, pageData{
		Title:     "Home",
		Principal: principal,
	})
}

// Protected はログインユーザー向けのページを表示する。
// GET /protected
func (h *PageHandler) Protected(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, pageProtected, pageData{
		Title:     "Protected",
		Principal: principal,
	})
}

// principalOrNil はRequireUserミドルウェアが設定したPrincipalを返す。未設定ならnil。
func principalOrNil(r *http.Request) *model.Principal {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		return nil
	}
	return p
}
