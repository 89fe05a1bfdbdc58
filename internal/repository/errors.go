package repository

import (
	"errors"
	"fmt"

	"github.com/hitoshi/thriftease/internal/model"
	"github.com/lib/pq"
)

// pqUniqueViolation は一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// isUniqueViolation はerrがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// storeError は永続化層の障害をErrStoreUnavailableでラップする。
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
