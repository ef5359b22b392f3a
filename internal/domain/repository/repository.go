package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bitscode/internal/common"

	"github.com/jackc/pgx/v5/pgconn"
)

// Transactor runs fn inside one database transaction. fn's tx is handed to
// repository methods; returning an error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type sqlTransactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin transaction", err)
	}
	defer tx.Rollback() // No-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbError("commit transaction", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conn(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

// dbError classifies a driver error. Unique violations become ErrConflict.
// Foreign key violations and malformed ids (a non-UUID key can never match a
// row) become ErrNotFound. Everything else is ErrPersistence.
func dbError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, common.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record does not exist: %w", op, common.ErrNotFound)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%s: malformed identifier: %w", op, common.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrPersistence, err)
}

// expectAffected turns a zero-row update or delete into ErrNotFound.
func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}
