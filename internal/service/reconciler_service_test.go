package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
)

func TestHandleCallback_UnknownTransaction(t *testing.T) {
	_, _, _, reconciler := newTestServices()

	err := reconciler.HandleCallback(uuid.New(), true, "MPE999")
	assertErrorCode(t, err, errors.UnknownTransaction)
}

func TestHandleCallback_DuplicateDeliveryIsIdempotent(t *testing.T) {
	store, _, wallet, reconciler := newTestServices()
	account := store.addAccount("0.00")

	tx, err := wallet.Deposit(context.Background(), account, amt("100.00"), "")
	require.NoError(t, err)

	require.NoError(t, reconciler.HandleCallback(tx.ID, true, "MPE123"))
	require.NoError(t, reconciler.HandleCallback(tx.ID, true, "MPE123"))

	// Applied twice, credited once.
	assert.True(t, store.balance(account).Equal(amt("100.00")))
}

func TestHandleCallback_ConcurrentDuplicatesCreditOnce(t *testing.T) {
	store, _, wallet, reconciler := newTestServices()
	account := store.addAccount("0.00")

	tx, err := wallet.Deposit(context.Background(), account, amt("100.00"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reconciler.HandleCallback(tx.ID, true, "MPE123")
		}()
	}
	wg.Wait()

	assert.True(t, store.balance(account).Equal(amt("100.00")))

	final, err := wallet.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, final.Status)
}

func TestHandleCallback_ConflictingOutcomesApplyFirstOnly(t *testing.T) {
	store, _, wallet, reconciler := newTestServices()
	account := store.addAccount("100.00")

	tx, err := wallet.Withdraw(context.Background(), account, amt("60.00"), "254711000000")
	require.NoError(t, err)

	require.NoError(t, reconciler.HandleCallback(tx.ID, false, "MPE456"))
	// Success arriving after the reversal is a stale duplicate.
	require.NoError(t, reconciler.HandleCallback(tx.ID, true, "MPE456"))

	assert.True(t, store.balance(account).Equal(amt("100.00")))

	final, err := wallet.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReversed, final.Status)
}

func TestHandleCallback_BeforeGatewayPendingIsRefused(t *testing.T) {
	store, _, _, reconciler := newTestServices()
	account := store.addAccount("0.00")

	// A callback that outruns the coordinator's bookkeeping: the transaction
	// exists but is not yet awaiting confirmation.
	tx := &domain.Transaction{
		ID:        uuid.New(),
		Type:      domain.TypeDeposit,
		AccountID: account,
		Amount:    amt("100.00"),
		Status:    domain.StatusCreated,
	}
	require.NoError(t, store.Transactions().CreateTransaction(tx))

	err := reconciler.HandleCallback(tx.ID, true, "MPE123")
	assertErrorCode(t, err, errors.UnknownTransaction)
	assert.True(t, store.balance(account).IsZero())
}

func TestHandleCallback_RecordsGatewayReference(t *testing.T) {
	store, _, _, reconciler := newTestServices()
	account := store.addAccount("0.00")

	// Simulates resuming after a crash between "gateway accepted" and the
	// reference being recorded: the pending transaction has no reference yet.
	tx := &domain.Transaction{
		ID:        uuid.New(),
		Type:      domain.TypeDeposit,
		AccountID: account,
		Amount:    amt("100.00"),
		Status:    domain.StatusGatewayPending,
	}
	require.NoError(t, store.Transactions().CreateTransaction(tx))

	require.NoError(t, reconciler.HandleCallback(tx.ID, true, "MPE777"))

	final, err := store.Transactions().GetTransactionByID(tx.ID)
	require.NoError(t, err)
	require.NotNil(t, final.GatewayReference)
	assert.Equal(t, "MPE777", *final.GatewayReference)
	assert.True(t, store.balance(account).Equal(amt("100.00")))
}
