// Package user はユーザー登録と一覧のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/thriftease/internal/model"
	"github.com/hitoshi/thriftease/internal/repository"
	"github.com/hitoshi/thriftease/internal/security"
)

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// RegistrationRecorder は登録結果を記録する。
type RegistrationRecorder interface {
	RecordRegistration(outcome string)
}

// 登録結果の区分。
const (
	OutcomeRegistered   = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeDuplicate    = "duplicate"
	OutcomeError        = "error"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	hasher    PasswordHasher
	sanitizer security.ProfileSanitizer
	recorder  RegistrationRecorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	sanitizer security.ProfileSanitizer,
) *Service {
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// SetRecorder は登録結果の記録先を設定する。
func (s *Service) SetRecorder(r RegistrationRecorder) {
	s.recorder = r
}

// Register はローカルユーザーを登録する。
// プロフィール項目のマークアップを除去してから検証し、パスワードはハッシュのみを保存する。
// 入力不正はmodel.ErrInvalidInput、ユーザー名重複はmodel.ErrDuplicateUsernameを返す。
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*model.User, error) {
	in.Normalize()
	in.FullName = s.sanitizer.Sanitize(in.FullName)
	in.Address = s.sanitizer.Sanitize(in.Address)
	in.Telephone = s.sanitizer.Sanitize(in.Telephone)

	if err := in.Validate(); err != nil {
		s.record(OutcomeInvalidInput)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.record(OutcomeError)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Address:      in.Address,
		Telephone:    in.Telephone,
		Provider:     model.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateUsername) {
			s.record(OutcomeDuplicate)
			return nil, err
		}
		s.record(OutcomeError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record(OutcomeRegistered)
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// List は登録済みユーザーの一覧を返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRegistration(outcome)
	}
}
