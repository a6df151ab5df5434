package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypePurchase   TransactionType = "PURCHASE"
)

type TransactionStatus string

const (
	StatusCreated        TransactionStatus = "CREATED"
	StatusReserved       TransactionStatus = "RESERVED"
	StatusGatewayPending TransactionStatus = "GATEWAY_PENDING"
	StatusConfirmed      TransactionStatus = "CONFIRMED"
	StatusReversed       TransactionStatus = "REVERSED"
)

// AllowedTransitions defines the valid status transitions. CONFIRMED and
// REVERSED are terminal.
func AllowedTransitions() map[TransactionStatus][]TransactionStatus {
	return map[TransactionStatus][]TransactionStatus{
		StatusCreated:        {StatusReserved, StatusGatewayPending, StatusReversed},
		StatusReserved:       {StatusGatewayPending, StatusConfirmed, StatusReversed},
		StatusGatewayPending: {StatusConfirmed, StatusReversed},
		StatusConfirmed:      {},
		StatusReversed:       {},
	}
}

func (s TransactionStatus) CanTransitionTo(target TransactionStatus) bool {
	for _, allowed := range AllowedTransitions()[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusReversed
}

// Transaction is the ledger entry for a single wallet operation. Records are
// never deleted; failed operations stay behind in REVERSED as an audit trail.
type Transaction struct {
	ID                    uuid.UUID         `json:"transaction_id"`
	Type                  TransactionType   `json:"type"`
	AccountID             uuid.UUID         `json:"account_id"`
	CounterpartyAccountID *uuid.UUID        `json:"counterparty_account_id,omitempty"`
	ItemID                *string           `json:"item_id,omitempty"`
	Amount                decimal.Decimal   `json:"amount"`
	Status                TransactionStatus `json:"status"`
	GatewayReference      *string           `json:"gateway_reference,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	FinalizedAt           *time.Time        `json:"finalized_at,omitempty"`
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	GetTransactionByID(id uuid.UUID) (*Transaction, error)

	// GetTransactionForUpdate locks the transaction row for the remainder of
	// the enclosing store transaction. The reconciler uses it to serialize
	// concurrent callbacks for the same transaction id.
	GetTransactionForUpdate(id uuid.UUID) (*Transaction, error)

	ListTransactionsByAccount(accountID uuid.UUID) ([]*Transaction, error)

	// UpdateTransactionStatus applies a status transition, refusing any
	// transition not present in AllowedTransitions. Terminal transitions set
	// finalized_at.
	UpdateTransactionStatus(id uuid.UUID, status TransactionStatus) error

	SetGatewayReference(id uuid.UUID, reference string) error
}
