package db

import (
	"context"
	"database/sql"
	"errors"

	"citymap-backend-go/internal/services"

	"github.com/jmoiron/sqlx"
)

// Store runs engine units of work as Postgres transactions. Rows read inside
// InTx are locked with FOR UPDATE until commit.
type Store struct {
	DB *sqlx.DB
}

var _ services.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx services.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(&pgTx{tx: tx, lock: true}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) View(ctx context.Context, fn func(tx services.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgTx struct {
	tx   *sqlx.Tx
	lock bool
}

func (t *pgTx) forUpdate() string {
	if t.lock {
		return " FOR UPDATE"
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return services.ErrRecordNotFound
	}
	return err
}
