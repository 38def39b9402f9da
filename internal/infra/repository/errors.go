package repository

import (
	"errors"
	"fmt"

	repo "canteen/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgresのエラーコード
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// translateError はgorm/pgxのエラーをrepositoryのエラーにそろえる。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}

	return translateTxError(err)
}

// translateTxError はcommit/rollbackまわりの同時実行エラーだけを変換する。
// fnが返したエラーはそのまま返す。
func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s", repo.ErrConcurrentUpdate, pgErr.Message)
		}
	}
	return err
}
