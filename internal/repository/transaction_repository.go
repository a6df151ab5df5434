package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

type transactionRepository struct {
	store *Store
}

const transactionColumns = `
	id, type, account_id, counterparty_account_id, item_id, amount,
	status, gateway_reference, created_at, finalized_at
`

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, type, account_id, counterparty_account_id, item_id, amount, status, gateway_reference, created_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	_, err := r.store.executor.Exec(
		query,
		tx.ID,
		tx.Type,
		tx.AccountID,
		tx.CounterpartyAccountID,
		tx.ItemID,
		tx.Amount.String(),
		tx.Status,
		tx.GatewayReference,
		now,
		tx.FinalizedAt,
	)

	if err != nil {
		r.store.logger.Error("Failed to create transaction",
			"transaction_id", tx.ID,
			"type", tx.Type,
			"account_id", tx.AccountID,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	r.store.logger.Info("Transaction created",
		"transaction_id", tx.ID, "type", tx.Type, "status", tx.Status)
	return nil
}

func (r *transactionRepository) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(query, id)
}

func (r *transactionRepository) GetTransactionForUpdate(id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return r.scanTransaction(query, id)
}

func (r *transactionRepository) ListTransactionsByAccount(accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 OR counterparty_account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.store.executor.Query(query, accountID)
	if err != nil {
		r.store.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to read transactions").WithDetails(err.Error())
	}

	return transactions, nil
}

func (r *transactionRepository) scanTransaction(query string, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := scanTransactionRow(r.store.executor.QueryRow(query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		r.store.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, err
	}
	return tx, nil
}

func scanTransactionRow(scan func(dest ...interface{}) error) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr string
	var counterparty sql.NullString
	var itemID sql.NullString
	var gatewayRef sql.NullString
	var finalizedAt sql.NullTime

	err := scan(
		&tx.ID,
		&tx.Type,
		&tx.AccountID,
		&counterparty,
		&itemID,
		&amountStr,
		&tx.Status,
		&gatewayRef,
		&tx.CreatedAt,
		&finalizedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.NewAppError(errors.InternalError, "failed to scan transaction").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	tx.Amount = amount

	if counterparty.Valid {
		id, err := uuid.Parse(counterparty.String)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse counterparty id").WithDetails(err.Error())
		}
		tx.CounterpartyAccountID = &id
	}
	if itemID.Valid {
		tx.ItemID = &itemID.String
	}
	if gatewayRef.Valid {
		tx.GatewayReference = &gatewayRef.String
	}
	if finalizedAt.Valid {
		tx.FinalizedAt = &finalizedAt.Time
	}

	return &tx, nil
}

// UpdateTransactionStatus applies a status transition after checking it
// against the allowed-transition table, so a terminal transaction can never
// be finalized a second time even by a racing caller.
func (r *transactionRepository) UpdateTransactionStatus(id uuid.UUID, status domain.TransactionStatus) error {
	return r.store.withTx(func(tx *Store) error {
		repo := &transactionRepository{store: tx}

		current, err := repo.GetTransactionForUpdate(id)
		if err != nil {
			return err
		}

		if !current.Status.CanTransitionTo(status) {
			r.store.logger.Error("Refused invalid status transition",
				"transaction_id", id, "from", current.Status, "to", status)
			return errors.NewAppErrorf(errors.InternalError,
				"invalid status transition from %s to %s", current.Status, status)
		}

		var finalizedAt interface{}
		if status.IsTerminal() {
			finalizedAt = time.Now()
		}

		query := `UPDATE transactions SET status = $1, finalized_at = $2 WHERE id = $3`
		if _, err := tx.executor.Exec(query, status, finalizedAt, id); err != nil {
			r.store.logger.Error("Failed to update transaction status",
				"transaction_id", id, "status", status, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to update transaction status").WithDetails(err.Error())
		}

		r.store.logger.Info("Transaction status updated",
			"transaction_id", id, "from", current.Status, "to", status)
		return nil
	})
}

func (r *transactionRepository) SetGatewayReference(id uuid.UUID, reference string) error {
	query := `UPDATE transactions SET gateway_reference = $1 WHERE id = $2`

	result, err := r.store.executor.Exec(query, reference, id)
	if err != nil {
		r.store.logger.Error("Failed to set gateway reference",
			"transaction_id", id, "gateway_reference", reference, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to set gateway reference").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}
