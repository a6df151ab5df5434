package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID          uuid.UUID       `json:"account_id"`
	OwnerName   string          `json:"owner_name"`
	PhoneNumber string          `json:"phone_number"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ReservationState string

const (
	ReservationHeld      ReservationState = "HELD"
	ReservationCommitted ReservationState = "COMMITTED"
	ReservationReleased  ReservationState = "RELEASED"
)

type Reservation struct {
	TransactionID uuid.UUID        `json:"transaction_id"`
	AccountID     uuid.UUID        `json:"account_id"`
	Amount        decimal.Decimal  `json:"amount"`
	State         ReservationState `json:"state"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// LedgerStore owns every balance mutation. Reservations are keyed by the
// transaction id that created them, which doubles as the idempotency key:
// committing or releasing the same reservation twice is a no-op.
type LedgerStore interface {
	CreateAccount(account *Account) error
	GetAccount(id uuid.UUID) (*Account, error)
	GetBalance(id uuid.UUID) (decimal.Decimal, error)

	// Reserve atomically checks balance >= amount, decrements the balance
	// and records a held reservation under transactionID. It must not mutate
	// anything when the balance is too low.
	Reserve(accountID, transactionID uuid.UUID, amount decimal.Decimal) error

	CommitReservation(transactionID uuid.UUID) error

	// ReleaseReservation returns still-held funds to the account balance.
	ReleaseReservation(transactionID uuid.UUID) error

	// Credit atomically increments the account balance.
	Credit(accountID uuid.UUID, amount decimal.Decimal) error
}
