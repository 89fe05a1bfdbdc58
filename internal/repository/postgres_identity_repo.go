package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/thriftease/internal/model"
)

// identityColumns はidentities行の読み出し順。scanIdentityと対応させる。
const identityColumns = `id, user_id, provider, provider_user_id, created_at`

// PostgresIdentityRepo はOAuthの外部アカウントとローカルユーザーの紐付けを参照する。
// 紐付けの作成はユーザー作成と同一トランザクションで行うため、
// PostgresUserRepoのCreateWithIdentityとLinkIdentityが担う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はOAuthコールバックで受け取ったsubから紐付けを引く。
// 初回ログインなど未紐付けの場合は(nil, nil)を返し、呼び出し側がメール照合や新規作成に進む。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+`
		 FROM identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("failed to find identity", err)
	}
	return identity, nil
}

func scanIdentity(row *sql.Row) (*model.Identity, error) {
	var identity model.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.UserID,
		&identity.Provider,
		&identity.ProviderUserID,
		&identity.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
