package service

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

func (s *AccountService) CreateAccount(ownerName, phoneNumber string, initialBalance decimal.Decimal) (*domain.Account, error) {
	if ownerName == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "owner name is required")
	}
	if initialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	// Guard against fat-finger seeds.
	maxInitialBalance := decimal.NewFromInt(10_000_000_000)
	if initialBalance.GreaterThan(maxInitialBalance) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance exceeds maximum limit")
	}

	account := &domain.Account{
		ID:          uuid.New(),
		OwnerName:   ownerName,
		PhoneNumber: phoneNumber,
		Balance:     initialBalance,
	}

	if err := s.store.Ledger().CreateAccount(account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "owner_name", ownerName)
	return account, nil
}

func (s *AccountService) GetAccount(accountID string) (*domain.Account, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "invalid account id format")
	}

	return s.store.Ledger().GetAccount(id)
}
