package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/thriftease/internal/model"
	"github.com/hitoshi/thriftease/internal/user"
)

const (
	duplicateUsernameMessage = "That username is already taken."
	invalidInputMessage      = "Please check the form and try again."
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, in user.RegistrationInput) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// SessionChecker はログイン状態を確認するインターフェース。
type SessionChecker interface {
	IsAuthenticated(r *http.Request) (*model.Principal, bool)
}

// UserHandler はユーザー登録と一覧のHTTPハンドラー。
type UserHandler struct {
	service  UserServiceInterface
	sessions SessionChecker
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, sessions SessionChecker) *UserHandler {
	return &UserHandler{
		service:  service,
		sessions: sessions,
	}
}

// RegisterPage は登録フォームを表示する。ログイン済みの場合は/protectedへリダイレクトする。
// GET /register
func (h *UserHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.IsAuthenticated(r); ok {
		http.Redirect(w, r, protectedPath, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, pageRegister, pageData{Title: "Register"})
}

// Register はユーザーを登録し、成功時はログイン画面へリダイレクトする。
// POST /register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, pageRegister, "Register", loginPath)
}

// List はユーザー一覧を表示する。
// GET /user
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError)
		return
	}
	render(w, r, http.StatusOK, pageUsers, pageData{
		Title:     "Users",
		Principal: principalOrNil(r),
		Users:     users,
	})
}

// NewPage はユーザー作成フォームを表示する。
// GET /user/new
func (h *UserHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pageUserNew, pageData{
		Title:     "Create user",
		Principal: principalOrNil(r),
	})
}

// Create はユーザーを作成し、成功時は一覧へリダイレクトする。
// POST /user/new
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, pageUserNew, "Create user", "/user")
}

// create は登録フォームの共通処理。検証・ハッシュ化はuser.Serviceが行う。
func (h *UserHandler) create(w http.ResponseWriter, r *http.Request, page, title, successPath string) {
	if err := r.ParseForm(); err != nil {
		render(w, r, http.StatusBadRequest, page, pageData{Title: title, Error: invalidInputMessage})
		return
	}

	in := user.RegistrationInput{
		Username:  r.PostForm.Get("username"),
		Password:  r.PostForm.Get("password"),
		FullName:  r.PostForm.Get("full_name"),
		Address:   r.PostForm.Get("address"),
		Telephone: r.PostForm.Get("telephone"),
	}

	_, err := h.service.Register(r.Context(), in)
	if err == nil {
		http.Redirect(w, r, successPath, http.StatusSeeOther)
		return
	}

	data := pageData{
		Title:     title,
		Principal: principalOrNil(r),
		Form: formValues{
			Username:  in.Username,
			FullName:  in.FullName,
			Address:   in.Address,
			Telephone: in.Telephone,
		},
	}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Error = verr.Message
		render(w, r, http.StatusBadRequest, page, data)
	case errors.Is(err, model.ErrInvalidInput):
		data.Error = invalidInputMessage
		render(w, r, http.StatusBadRequest, page, data)
	case errors.Is(err, model.ErrDuplicateUsername):
		data.Error = duplicateUsernameMessage
		render(w, r, http.StatusConflict, page, data)
	default:
		slog.Error("failed to register user", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError)
	}
}
