package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/thriftease/internal/model"
	"github.com/hitoshi/thriftease/internal/user"
)

// --- モック定義 ---

type mockAuthenticator struct {
	beginFn           func(w http.ResponseWriter, name string) (string, error)
	authenticateFn    func(w http.ResponseWriter, r *http.Request, name string) (*model.Principal, error)
	isAuthenticatedFn func(r *http.Request) (*model.Principal, bool)
	requireUserFn     func(w http.ResponseWriter, r *http.Request) (*model.Principal, error)
	logoutCalled      bool
	strategies        []string
}

func (m *mockAuthenticator) Begin(w http.ResponseWriter, name string) (string, error) {
	m.strategies = append(m.strategies, name)
	if m.beginFn != nil {
		return m.beginFn(w, name)
	}
	return "", model.ErrUnknownStrategy
}

func (m *mockAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request, name string) (*model.Principal, error) {
	m.strategies = append(m.strategies, name)
	if m.authenticateFn != nil {
		return m.authenticateFn(w, r, name)
	}
	return nil, model.ErrInvalidCredentials
}

func (m *mockAuthenticator) IsAuthenticated(r *http.Request) (*model.Principal, bool) {
	if m.isAuthenticatedFn != nil {
		return m.isAuthenticatedFn(r)
	}
	return nil, false
}

func (m *mockAuthenticator) RequireUser(w http.ResponseWriter, r *http.Request) (*model.Principal, error) {
	if m.requireUserFn != nil {
		return m.requireUserFn(w, r)
	}
	return nil, model.ErrUnauthenticated
}

func (m *mockAuthenticator) Logout(w http.ResponseWriter, r *http.Request) {
	m.logoutCalled = true
}

type mockUserService struct {
	registerFn func(ctx context.Context, in user.RegistrationInput) (*model.User, error)
	listFn     func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, in user.RegistrationInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: "user-1", Username: in.Username}, nil
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func loggedIn(p *model.Principal) func(r *http.Request) (*model.Principal, bool) {
	return func(r *http.Request) (*model.Principal, bool) { return p, true }
}
