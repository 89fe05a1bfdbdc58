package auth

import (
	"context"

	"github.com/hitoshi/thriftease/internal/model"
)

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn     func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	listFn               func(ctx context.Context) ([]*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
	linkIdentityFn       func(ctx context.Context, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) LinkIdentity(ctx context.Context, identity *model.Identity) error {
	if m.linkIdentityFn != nil {
		return m.linkIdentityFn(ctx, identity)
	}
	return nil
}

type mockIdentityRepo struct {
	findByProviderAndProviderUserIDFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderAndProviderUserIDFn != nil {
		return m.findByProviderAndProviderUserIDFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

// fakeHasher はbcryptを使わない照合器。"hashed:"+平文をハッシュとする。
type fakeHasher struct {
	verifyCalls int
	verifyErr   error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *fakeHasher) Verify(hash, password string) (bool, error) {
	h.verifyCalls++
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	return hash == "hashed:"+password, nil
}
