package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

// ledgerRepository is the Postgres implementation of domain.LedgerStore.
// Per-account serialization comes from row locks: every balance mutation
// reads the account row with FOR UPDATE inside a transaction, so two
// concurrent operations on the same account never observe the same stale
// balance.
type ledgerRepository struct {
	store *Store
}

func (r *ledgerRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, owner_name, phone_number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now()
	_, err := r.store.executor.Exec(
		query,
		account.ID,
		account.OwnerName,
		account.PhoneNumber,
		account.Balance.String(),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			r.store.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
			return errors.ErrDuplicateAccount
		}
		r.store.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.store.logger.Info("Account created", "account_id", account.ID)
	return nil
}

func (r *ledgerRepository) GetAccount(id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, owner_name, phone_number, balance, created_at, updated_at
		FROM accounts WHERE id = $1
	`
	return r.scanAccount(r.store.executor, query, id)
}

func (r *ledgerRepository) GetBalance(id uuid.UUID) (decimal.Decimal, error) {
	account, err := r.GetAccount(id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// getAccountForUpdate locks the account row until the enclosing transaction
// ends. Must only be called on a transactional executor.
func (r *ledgerRepository) getAccountForUpdate(q SQLExecutor, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, owner_name, phone_number, balance, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`
	return r.scanAccount(q, query, id)
}

func (r *ledgerRepository) scanAccount(q SQLExecutor, query string, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := q.QueryRow(query, id).Scan(
		&account.ID,
		&account.OwnerName,
		&account.PhoneNumber,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		r.store.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.store.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	account.Balance = balance
	return &account, nil
}

func (r *ledgerRepository) Reserve(accountID, transactionID uuid.UUID, amount decimal.Decimal) error {
	return r.store.withTx(func(tx *Store) error {
		account, err := r.getAccountForUpdate(tx.executor, accountID)
		if err != nil {
			return err
		}

		if account.Balance.LessThan(amount) {
			r.store.logger.Warn("Reservation refused, balance too low",
				"account_id", accountID,
				"transaction_id", transactionID,
				"balance", account.Balance,
				"amount", amount)
			return errors.ErrInsufficientFunds
		}

		now := time.Now()
		newBalance := account.Balance.Sub(amount)

		if err := updateBalance(tx.executor, accountID, newBalance, now); err != nil {
			r.store.logger.Error("Failed to debit account for reservation", "account_id", accountID, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to reserve funds").WithDetails(err.Error())
		}

		insert := `
			INSERT INTO reservations (transaction_id, account_id, amount, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.executor.Exec(insert, transactionID, accountID, amount.String(), domain.ReservationHeld, now, now); err != nil {
			r.store.logger.Error("Failed to record reservation", "transaction_id", transactionID, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to record reservation").WithDetails(err.Error())
		}

		r.store.logger.Info("Funds reserved",
			"account_id", accountID,
			"transaction_id", transactionID,
			"amount", amount,
			"new_balance", newBalance)
		return nil
	})
}

func (r *ledgerRepository) CommitReservation(transactionID uuid.UUID) error {
	return r.store.withTx(func(tx *Store) error {
		reservation, err := r.getReservationForUpdate(tx.executor, transactionID)
		if err != nil {
			return err
		}

		// Already committed or released: idempotent no-op.
		if reservation.State != domain.ReservationHeld {
			return nil
		}

		if err := r.setReservationState(tx.executor, transactionID, domain.ReservationCommitted); err != nil {
			return err
		}

		r.store.logger.Info("Reservation committed",
			"transaction_id", transactionID,
			"account_id", reservation.AccountID,
			"amount", reservation.Amount)
		return nil
	})
}

func (r *ledgerRepository) ReleaseReservation(transactionID uuid.UUID) error {
	return r.store.withTx(func(tx *Store) error {
		reservation, err := r.getReservationForUpdate(tx.executor, transactionID)
		if err != nil {
			return err
		}

		// Only held funds can flow back; committed or released handles are
		// idempotent no-ops.
		if reservation.State != domain.ReservationHeld {
			return nil
		}

		account, err := r.getAccountForUpdate(tx.executor, reservation.AccountID)
		if err != nil {
			return err
		}

		now := time.Now()
		newBalance := account.Balance.Add(reservation.Amount)

		if err := updateBalance(tx.executor, reservation.AccountID, newBalance, now); err != nil {
			r.store.logger.Error("Failed to restore reserved funds", "account_id", reservation.AccountID, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to release reservation").WithDetails(err.Error())
		}

		if err := r.setReservationState(tx.executor, transactionID, domain.ReservationReleased); err != nil {
			return err
		}

		r.store.logger.Info("Reservation released",
			"transaction_id", transactionID,
			"account_id", reservation.AccountID,
			"amount", reservation.Amount,
			"new_balance", newBalance)
		return nil
	})
}

func (r *ledgerRepository) Credit(accountID uuid.UUID, amount decimal.Decimal) error {
	return r.store.withTx(func(tx *Store) error {
		account, err := r.getAccountForUpdate(tx.executor, accountID)
		if err != nil {
			return err
		}

		now := time.Now()
		newBalance := account.Balance.Add(amount)

		if err := updateBalance(tx.executor, accountID, newBalance, now); err != nil {
			r.store.logger.Error("Failed to credit account", "account_id", accountID, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to credit account").WithDetails(err.Error())
		}

		r.store.logger.Info("Account credited", "account_id", accountID, "amount", amount, "new_balance", newBalance)
		return nil
	})
}

func (r *ledgerRepository) getReservationForUpdate(q SQLExecutor, transactionID uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT transaction_id, account_id, amount, state, created_at, updated_at
		FROM reservations WHERE transaction_id = $1 FOR UPDATE
	`

	var reservation domain.Reservation
	var amountStr string

	err := q.QueryRow(query, transactionID).Scan(
		&reservation.TransactionID,
		&reservation.AccountID,
		&amountStr,
		&reservation.State,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.store.logger.Warn("Reservation not found", "transaction_id", transactionID)
			return nil, errors.NewAppError(errors.InternalError, "reservation not found")
		}
		r.store.logger.Error("Failed to get reservation", "transaction_id", transactionID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get reservation").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse reservation amount").WithDetails(err.Error())
	}

	reservation.Amount = amount
	return &reservation, nil
}

func (r *ledgerRepository) setReservationState(q SQLExecutor, transactionID uuid.UUID, state domain.ReservationState) error {
	query := `UPDATE reservations SET state = $1, updated_at = $2 WHERE transaction_id = $3`

	if _, err := q.Exec(query, state, time.Now(), transactionID); err != nil {
		r.store.logger.Error("Failed to update reservation state",
			"transaction_id", transactionID, "state", state, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update reservation state").WithDetails(err.Error())
	}
	return nil
}

func updateBalance(q SQLExecutor, accountID uuid.UUID, newBalance decimal.Decimal, now time.Time) error {
	query := `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`

	result, err := q.Exec(query, newBalance.String(), now, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}
