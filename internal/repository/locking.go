package repository

import (
	"errors"

	"factorymes/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a row lock with NOWAIT so a contended read fails fast instead
// of queueing; the caller surfaces domain.ErrResourceBusy and lets the client
// retry with backoff. SQLite has no row locks — its single-writer database
// lock already serializes, and the clause would be a syntax error there.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() != "postgres" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"})
}

// lockNotAvailable is the PostgreSQL error code raised by NOWAIT.
const lockNotAvailable = "55P03"

// translateLockError maps lock-contention failures onto the retryable
// domain error; anything else passes through untouched.
func translateLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
		return domain.ErrResourceBusy
	}
	return err
}
