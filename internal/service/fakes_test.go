package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
	"marketplace-wallet/internal/gateway"
)

// memStore is an in-memory domain.Store. A single mutex makes every ledger
// operation atomic, matching the row-level serialization the Postgres store
// provides; WithTransaction serializes whole units of work the way the
// database transaction does for the reconciler.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	accounts     map[uuid.UUID]*domain.Account
	reservations map[uuid.UUID]*domain.Reservation
	transactions map[uuid.UUID]*domain.Transaction

	// creditErr injects a credit failure for a given account, used to drive
	// the purchase rollback path. releaseErr fails the next release, used to
	// drive the stuck-reservation path.
	creditErr  map[uuid.UUID]error
	releaseErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[uuid.UUID]*domain.Account),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		creditErr:    make(map[uuid.UUID]error),
	}
}

func (s *memStore) addAccount(balance string) uuid.UUID {
	id := uuid.New()
	s.accounts[id] = &domain.Account{
		ID:          id,
		OwnerName:   "test-" + id.String()[:8],
		PhoneNumber: "254700000000",
		Balance:     decimal.RequireFromString(balance),
	}
	return id
}

func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *memStore) Ledger() domain.LedgerStore                 { return &memLedger{s} }
func (s *memStore) Transactions() domain.TransactionRepository { return &memTransactions{s} }

func (s *memStore) WithTransaction(fn func(domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	// Restoring the snapshot on error mirrors the database rollback.
	snap := s.snapshot()
	if err := fn(&memTxStore{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts     map[uuid.UUID]*domain.Account
	reservations map[uuid.UUID]*domain.Reservation
	transactions map[uuid.UUID]*domain.Transaction
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		accounts:     make(map[uuid.UUID]*domain.Account, len(s.accounts)),
		reservations: make(map[uuid.UUID]*domain.Reservation, len(s.reservations)),
		transactions: make(map[uuid.UUID]*domain.Transaction, len(s.transactions)),
	}
	for id, account := range s.accounts {
		copied := *account
		snap.accounts[id] = &copied
	}
	for id, reservation := range s.reservations {
		copied := *reservation
		snap.reservations[id] = &copied
	}
	for id, tx := range s.transactions {
		copied := *tx
		snap.transactions[id] = &copied
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.reservations = snap.reservations
	s.transactions = snap.transactions
}

// memTxStore is the store handed out inside WithTransaction. It shares the
// backing maps and does not retake txMu.
type memTxStore struct {
	*memStore
}

func (s *memTxStore) WithTransaction(fn func(domain.Store) error) error {
	return fn(s)
}

type memLedger struct {
	s *memStore
}

func (l *memLedger) CreateAccount(account *domain.Account) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if _, ok := l.s.accounts[account.ID]; ok {
		return errors.ErrDuplicateAccount
	}
	copied := *account
	l.s.accounts[account.ID] = &copied
	return nil
}

func (l *memLedger) GetAccount(id uuid.UUID) (*domain.Account, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	account, ok := l.s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (l *memLedger) GetBalance(id uuid.UUID) (decimal.Decimal, error) {
	account, err := l.GetAccount(id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (l *memLedger) Reserve(accountID, transactionID uuid.UUID, amount decimal.Decimal) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	account, ok := l.s.accounts[accountID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if account.Balance.LessThan(amount) {
		return errors.ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(amount)
	l.s.reservations[transactionID] = &domain.Reservation{
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		State:         domain.ReservationHeld,
	}
	return nil
}

func (l *memLedger) CommitReservation(transactionID uuid.UUID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	reservation, ok := l.s.reservations[transactionID]
	if !ok {
		return errors.NewAppError(errors.InternalError, "reservation not found")
	}
	if reservation.State == domain.ReservationHeld {
		reservation.State = domain.ReservationCommitted
	}
	return nil
}

func (l *memLedger) ReleaseReservation(transactionID uuid.UUID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.releaseErr != nil {
		return l.s.releaseErr
	}
	reservation, ok := l.s.reservations[transactionID]
	if !ok {
		return errors.NewAppError(errors.InternalError, "reservation not found")
	}
	if reservation.State == domain.ReservationHeld {
		l.s.accounts[reservation.AccountID].Balance =
			l.s.accounts[reservation.AccountID].Balance.Add(reservation.Amount)
		reservation.State = domain.ReservationReleased
	}
	return nil
}

func (l *memLedger) Credit(accountID uuid.UUID, amount decimal.Decimal) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if err, ok := l.s.creditErr[accountID]; ok {
		return err
	}
	account, ok := l.s.accounts[accountID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(amount)
	return nil
}

type memTransactions struct {
	s *memStore
}

func (r *memTransactions) CreateTransaction(tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *tx
	r.s.transactions[tx.ID] = &copied
	return nil
}

func (r *memTransactions) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (r *memTransactions) GetTransactionForUpdate(id uuid.UUID) (*domain.Transaction, error) {
	return r.GetTransactionByID(id)
}

func (r *memTransactions) ListTransactionsByAccount(accountID uuid.UUID) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*domain.Transaction
	for _, tx := range r.s.transactions {
		if tx.AccountID == accountID ||
			(tx.CounterpartyAccountID != nil && *tx.CounterpartyAccountID == accountID) {
			copied := *tx
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *memTransactions) UpdateTransactionStatus(id uuid.UUID, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return errors.ErrTransactionNotFound
	}
	if !tx.Status.CanTransitionTo(status) {
		return errors.NewAppErrorf(errors.InternalError,
			"invalid status transition from %s to %s", tx.Status, status)
	}
	tx.Status = status
	return nil
}

func (r *memTransactions) SetGatewayReference(id uuid.UUID, reference string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return errors.ErrTransactionNotFound
	}
	tx.GatewayReference = &reference
	return nil
}

// fakeGateway scripts the provider's synchronous responses.
type fakeGateway struct {
	mu          sync.Mutex
	depositErr  error
	withdrawErr error
	calls       []uuid.UUID
}

func (g *fakeGateway) InitiateDeposit(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payerPhone string) (*gateway.InitiationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, transactionID)
	if g.depositErr != nil {
		return nil, g.depositErr
	}
	return &gateway.InitiationResult{GatewayReference: "MM-" + transactionID.String()[:8]}, nil
}

func (g *fakeGateway) InitiateWithdrawal(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payeePhone string) (*gateway.InitiationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, transactionID)
	if g.withdrawErr != nil {
		return nil, g.withdrawErr
	}
	return &gateway.InitiationResult{GatewayReference: "MM-" + transactionID.String()[:8]}, nil
}
