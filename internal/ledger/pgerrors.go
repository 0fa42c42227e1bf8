package ledger

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the ledger reacts to.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

// mapPgError translates lock and constraint failures into ledger errors and
// leaves everything else untouched.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgLockNotAvailable, pgQueryCanceled, pgDeadlockDetected, pgSerializationFailure:
		return fmt.Errorf("%w: %s", ErrLockTimeout, pgErr.Message)
	case pgCheckViolation:
		if pgErr.ConstraintName == "wallets_balance_non_negative" {
			return ErrInsufficientBalance
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
