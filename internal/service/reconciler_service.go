package service

import (
	"log/slog"

	"github.com/google/uuid"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

// ReconcilerService consumes asynchronous gateway confirmations. The
// provider delivers them at least once, unordered and possibly duplicated,
// so every path here has to be idempotent.
type ReconcilerService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewReconcilerService(store domain.Store, logger *slog.Logger) *ReconcilerService {
	return &ReconcilerService{
		store:  store,
		logger: logger,
	}
}

// HandleCallback finalizes or reverses the transaction the gateway reports
// on. The whole reconciliation runs in one database transaction holding the
// transaction row lock, so two callbacks for the same id serialize and the
// second one observes a terminal state and becomes a no-op.
func (s *ReconcilerService) HandleCallback(transactionID uuid.UUID, success bool, gatewayReference string) error {
	return s.store.WithTransaction(func(store domain.Store) error {
		tx, err := store.Transactions().GetTransactionForUpdate(transactionID)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.TransactionNotFound {
				s.logger.Warn("Callback for unknown transaction, ignoring",
					"transaction_id", transactionID,
					"gateway_reference", gatewayReference)
				return errors.ErrUnknownTransaction
			}
			return err
		}

		if tx.Status.IsTerminal() {
			s.logger.Info("Duplicate callback for finalized transaction, ignoring",
				"transaction_id", transactionID,
				"status", tx.Status)
			return nil
		}

		if tx.Status != domain.StatusGatewayPending {
			// The callback outran the coordinator's own bookkeeping. Refuse
			// it so the provider redelivers once the transaction is pending.
			s.logger.Warn("Callback for transaction not awaiting confirmation",
				"transaction_id", transactionID,
				"status", tx.Status)
			return errors.ErrUnknownTransaction
		}

		if gatewayReference != "" && tx.GatewayReference == nil {
			if err := store.Transactions().SetGatewayReference(transactionID, gatewayReference); err != nil {
				return err
			}
		}

		if success {
			return s.confirm(store, tx)
		}
		return s.reverse(store, tx)
	})
}

func (s *ReconcilerService) confirm(store domain.Store, tx *domain.Transaction) error {
	switch tx.Type {
	case domain.TypeDeposit:
		if err := store.Ledger().Credit(tx.AccountID, tx.Amount); err != nil {
			return err
		}
	case domain.TypeWithdrawal:
		if err := store.Ledger().CommitReservation(tx.ID); err != nil {
			return err
		}
	default:
		return errors.NewAppErrorf(errors.InternalError,
			"transaction type %s has no gateway leg", tx.Type)
	}

	if err := store.Transactions().UpdateTransactionStatus(tx.ID, domain.StatusConfirmed); err != nil {
		return err
	}

	s.logger.Info("Transaction confirmed by gateway",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount)
	return nil
}

func (s *ReconcilerService) reverse(store domain.Store, tx *domain.Transaction) error {
	// Deposits hold no reservation; there is nothing to give back.
	if tx.Type == domain.TypeWithdrawal {
		if err := store.Ledger().ReleaseReservation(tx.ID); err != nil {
			return err
		}
	}

	if err := store.Transactions().UpdateTransactionStatus(tx.ID, domain.StatusReversed); err != nil {
		return err
	}

	s.logger.Info("Transaction reversed after gateway failure",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount)
	return nil
}
