package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/thriftease/internal/model"
	"github.com/hitoshi/thriftease/internal/repository"
)

// AccountService は外部IdPのプロフィールをローカルユーザーに対応付ける。
type AccountService struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	now       func() time.Time
}

// NewAccountService はAccountServiceを生成する。
func NewAccountService(userRepo repository.UserRepository, identRepo repository.IdentityRepository) *AccountService {
	return &AccountService{
		userRepo:  userRepo,
		identRepo: identRepo,
		now:       time.Now,
	}
}

// ResolveOAuthUser はプロフィールに対応するユーザーを返す。
// identitiesで既存ユーザーを特定し、無ければ検証済みメールアドレスで既存ユーザーに紐付ける。
// どちらにも該当しない場合はusersレコードとidentitiesレコードを同時に作成する。
func (s *AccountService) ResolveOAuthUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	if info == nil || info.ProviderUserID == "" {
		return nil, fmt.Errorf("provider user ID is required: %w", model.ErrInvalidInput)
	}

	user, err := s.findLinkedUser(ctx, info)
	if err != nil || user != nil {
		return user, err
	}

	user, err = s.createUser(ctx, info, preferredUsername(info))
	switch {
	case errors.Is(err, model.ErrDuplicateIdentity):
		// 同じプロフィールの初回ログインが並行して先に完了した
		return s.requireLinkedUser(ctx, info)
	case errors.Is(err, model.ErrDuplicateUsername):
		// 並行ログインか、ローカルユーザーが同じユーザー名を使っている
		linked, lerr := s.findLinkedUser(ctx, info)
		if lerr != nil || linked != nil {
			return linked, lerr
		}
		return s.createUser(ctx, info, fallbackUsername(info))
	}
	return user, err
}

// findLinkedUser はidentityまたはメールアドレスで既存ユーザーを探す。
// 見つからない場合は(nil, nil)を返す。
func (s *AccountService) findLinkedUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	// 1. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		user, err := s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %s linked to identity not found: %w", identity.UserID, model.ErrStoreUnavailable)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
		return user, nil
	}

	// 2. 検証済みメールアドレスで既存ユーザーを検索し、identityを紐付ける
	if info.Email == "" || !info.EmailVerified {
		return nil, nil
	}
	user, err := s.userRepo.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	err = s.userRepo.LinkIdentity(ctx, &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      s.now(),
	})
	if err != nil && !errors.Is(err, model.ErrDuplicateIdentity) {
		return nil, fmt.Errorf("failed to link identity: %w", err)
	}

	slog.Info("identity linked to existing user",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, nil
}

func (s *AccountService) requireLinkedUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	user, err := s.findLinkedUser(ctx, info)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("identity exists but user could not be resolved: %w", model.ErrStoreUnavailable)
	}
	return user, nil
}

// createUser はusersレコードとidentitiesレコードを同時に作成する。
func (s *AccountService) createUser(ctx context.Context, info *OAuthUserInfo, username string) (*model.User, error) {
	now := s.now()
	user := &model.User{
		ID:        uuid.New().String(),
		Username:  username,
		FullName:  info.Name,
		Email:     info.Email,
		Provider:  info.Provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, nil
}

// preferredUsername はメールアドレスをユーザー名として使う。
func preferredUsername(info *OAuthUserInfo) string {
	if info.Email != "" {
		return info.Email
	}
	return fallbackUsername(info)
}

func fallbackUsername(info *OAuthUserInfo) string {
	return info.Provider + "-" + info.ProviderUserID
}

// compile-time interface check
var _ AccountResolver = (*AccountService)(nil)
