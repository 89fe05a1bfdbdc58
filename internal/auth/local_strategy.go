package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/thriftease/internal/model"
)

// StrategyLocal はユーザー名・パスワード認証の登録名。
const StrategyLocal = "local"

// UserFinder はローカル認証に必要なユーザー検索インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// LocalStrategy はフォームのusername/passwordで認証するストラテジー。
type LocalStrategy struct {
	users     UserFinder
	hasher    PasswordHasher
	dummyHash string
}

// NewLocalStrategy はLocalStrategyを生成する。
func NewLocalStrategy(users UserFinder, hasher PasswordHasher) *LocalStrategy {
	// 存在しないユーザーでも照合処理を行い、応答時間からユーザーの有無を推測させない
	dummy, _ := hasher.Hash("thriftease-dummy-password")
	return &LocalStrategy{
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
	}
}

// Name はストラテジー名を返す。
func (s *LocalStrategy) Name() string {
	return StrategyLocal
}

// Attempt はフォームの資格情報を検証する。
// 入力欠落はErrInvalidInput（ストアは参照しない）、ユーザー不在とパスワード不一致は
// どちらもErrInvalidCredentials、ストア障害はErrStoreUnavailableを返す。
func (s *LocalStrategy) Attempt(ctx context.Context, r *http.Request) (*model.Principal, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", model.ErrInvalidInput)
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", model.ErrInvalidInput)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || !user.HasPassword() {
		if s.dummyHash != "" {
			_, _ = s.hasher.Verify(s.dummyHash, password)
		}
		return nil, model.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}

	return model.NewPrincipal(user), nil
}

// compile-time interface check
var _ Strategy = (*LocalStrategy)(nil)
