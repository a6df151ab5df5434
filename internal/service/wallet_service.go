package service

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
	"marketplace-wallet/internal/gateway"
)

// WalletService coordinates deposits, withdrawals and purchases. Ledger
// mutations happen before any gateway call and no account lock is held while
// waiting on the provider: the reservation protocol keeps balances
// consistent across the asynchronous window.
type WalletService struct {
	store   domain.Store
	gateway gateway.Gateway
	logger  *slog.Logger
}

func NewWalletService(store domain.Store, gw gateway.Gateway, logger *slog.Logger) *WalletService {
	return &WalletService{
		store:   store,
		gateway: gw,
		logger:  logger,
	}
}

func (s *WalletService) GetBalance(accountID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Ledger().GetBalance(accountID)
}

func (s *WalletService) GetTransaction(id uuid.UUID) (*domain.Transaction, error) {
	return s.store.Transactions().GetTransactionByID(id)
}

func (s *WalletService) GetHistory(accountID uuid.UUID) ([]*domain.Transaction, error) {
	if _, err := s.store.Ledger().GetAccount(accountID); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListTransactionsByAccount(accountID)
}

// Deposit initiates a gateway deposit. No funds are at risk before the
// provider confirms, so there is no reservation; the transaction waits in
// GATEWAY_PENDING until the callback credits the account.
func (s *WalletService) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, phoneNumber string) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	account, err := s.store.Ledger().GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if phoneNumber == "" {
		phoneNumber = account.PhoneNumber
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		Type:      domain.TypeDeposit,
		AccountID: accountID,
		Amount:    amount,
		Status:    domain.StatusCreated,
	}
	if err := s.store.Transactions().CreateTransaction(tx); err != nil {
		return nil, err
	}

	result, err := s.gateway.InitiateDeposit(ctx, tx.ID, amount, phoneNumber)
	if err != nil {
		s.logger.Warn("Deposit initiation failed", "transaction_id", tx.ID, "error", err)
		s.reverse(tx)
		return nil, err
	}

	return s.markPending(tx, result.GatewayReference)
}

// Withdraw reserves the funds first, so a concurrent withdrawal can never
// spend the same balance twice, then initiates the gateway payout. On
// synchronous rejection or timeout the reservation flows straight back.
func (s *WalletService) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, phoneNumber string) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if phoneNumber == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "phone number is required")
	}

	if _, err := s.store.Ledger().GetAccount(accountID); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		Type:      domain.TypeWithdrawal,
		AccountID: accountID,
		Amount:    amount,
		Status:    domain.StatusCreated,
	}
	if err := s.store.Transactions().CreateTransaction(tx); err != nil {
		return nil, err
	}

	if err := s.store.Ledger().Reserve(accountID, tx.ID, amount); err != nil {
		s.reverse(tx)
		return nil, err
	}
	if err := s.transition(tx, domain.StatusReserved); err != nil {
		s.releaseAndReverse(tx)
		return nil, err
	}

	result, err := s.gateway.InitiateWithdrawal(ctx, tx.ID, amount, phoneNumber)
	if err != nil {
		s.logger.Warn("Withdrawal initiation failed", "transaction_id", tx.ID, "error", err)
		s.releaseAndReverse(tx)
		return nil, err
	}

	return s.markPending(tx, result.GatewayReference)
}

// Purchase moves funds between two wallet accounts. There is no gateway leg:
// the transfer settles synchronously, and the buyer is never left debited
// without either a matching seller credit or an explicit reversal.
func (s *WalletService) Purchase(buyerID, sellerID uuid.UUID, itemID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if buyerID == sellerID {
		return nil, errors.ErrSameAccountTransfer
	}

	if _, err := s.store.Ledger().GetAccount(buyerID); err != nil {
		return nil, err
	}
	if _, err := s.store.Ledger().GetAccount(sellerID); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  domain.TypePurchase,
		AccountID:             buyerID,
		CounterpartyAccountID: &sellerID,
		Amount:                amount,
		Status:                domain.StatusCreated,
	}
	if itemID != "" {
		tx.ItemID = &itemID
	}
	if err := s.store.Transactions().CreateTransaction(tx); err != nil {
		return nil, err
	}

	// The whole settlement runs in one database transaction: a failure at
	// any step rolls back the reservation and any seller credit together.
	// The two account rows are locked in id order so two purchases over the
	// same pair of accounts in opposite roles cannot deadlock.
	err := s.store.WithTransaction(func(store domain.Store) error {
		reserveBuyer := func() error { return store.Ledger().Reserve(buyerID, tx.ID, amount) }
		creditSeller := func() error { return store.Ledger().Credit(sellerID, amount) }

		first, second := reserveBuyer, creditSeller
		if bytes.Compare(sellerID[:], buyerID[:]) < 0 {
			first, second = creditSeller, reserveBuyer
		}

		if err := first(); err != nil {
			return err
		}
		if err := second(); err != nil {
			return err
		}

		if err := store.Ledger().CommitReservation(tx.ID); err != nil {
			return err
		}
		if err := store.Transactions().UpdateTransactionStatus(tx.ID, domain.StatusReserved); err != nil {
			return err
		}
		return store.Transactions().UpdateTransactionStatus(tx.ID, domain.StatusConfirmed)
	})
	if err != nil {
		s.logger.Error("Purchase settlement failed",
			"transaction_id", tx.ID, "seller_id", sellerID, "error", err)
		// The rollback already returned any moved funds; only the record
		// needs to be finalized.
		s.reverse(tx)
		return nil, err
	}
	tx.Status = domain.StatusConfirmed

	s.logger.Info("Purchase confirmed",
		"transaction_id", tx.ID,
		"buyer_id", buyerID,
		"seller_id", sellerID,
		"amount", amount)
	return tx, nil
}

func (s *WalletService) markPending(tx *domain.Transaction, gatewayReference string) (*domain.Transaction, error) {
	if err := s.store.Transactions().SetGatewayReference(tx.ID, gatewayReference); err != nil {
		return nil, err
	}
	tx.GatewayReference = &gatewayReference

	if err := s.transition(tx, domain.StatusGatewayPending); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *WalletService) transition(tx *domain.Transaction, status domain.TransactionStatus) error {
	if err := s.store.Transactions().UpdateTransactionStatus(tx.ID, status); err != nil {
		return err
	}
	tx.Status = status
	return nil
}

func (s *WalletService) reverse(tx *domain.Transaction) {
	if err := s.transition(tx, domain.StatusReversed); err != nil {
		s.logger.Error("Failed to mark transaction reversed", "transaction_id", tx.ID, "error", err)
	}
}

func (s *WalletService) releaseAndReverse(tx *domain.Transaction) {
	if err := s.store.Ledger().ReleaseReservation(tx.ID); err != nil {
		// The funds are still held. Leave the transaction non-terminal so
		// the release can be retried; marking it REVERSED here would strand
		// the reservation behind a terminal status forever.
		s.logger.Error("Failed to release reservation, leaving transaction open",
			"transaction_id", tx.ID, "status", tx.Status, "error", err)
		return
	}
	s.reverse(tx)
}

// validateAmount rejects non-positive amounts and anything finer than cents
// before any ledger mutation happens. Trailing zeros are fine: "10.550" is
// the same money as "10.55".
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return errors.ErrInvalidAmount
	}
	return nil
}
