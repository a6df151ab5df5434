package repository

import (
	"database/sql"
	"log/slog"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

// SQLExecutor is the subset of database/sql shared by *sql.DB and *sql.Tx.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var _ SQLExecutor = (*sql.DB)(nil)
var _ SQLExecutor = (*sql.Tx)(nil)

// Store is the Postgres unit-of-work root. A Store built from *sql.DB runs
// each operation in its own transaction; a Store obtained inside
// WithTransaction shares the enclosing one.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Ledger returns the ledger store bound to the current executor.
func (s *Store) Ledger() domain.LedgerStore {
	return &ledgerRepository{store: s}
}

// Transactions returns the transaction repository bound to the current executor.
func (s *Store) Transactions() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

// WithTransaction executes fn within a single database transaction.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	return s.withTx(func(tx *Store) error {
		return fn(tx)
	})
}

func (s *Store) withTx(fn func(*Store) error) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		// Already inside a transaction; reuse it.
		return fn(s)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.ErrCannotBeginTx.WithDetails(err.Error())
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
