package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiationResult is the synchronous half of a gateway operation. The
// outcome itself arrives later through the callback endpoint, at least once,
// unordered and possibly duplicated.
type InitiationResult struct {
	GatewayReference string
}

// Gateway initiates real-world money movement with the mobile-money
// provider. The transaction id is passed through so the provider echoes it
// in callbacks, letting the reconciler match and deduplicate them.
type Gateway interface {
	InitiateDeposit(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payerPhone string) (*InitiationResult, error)
	InitiateWithdrawal(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payeePhone string) (*InitiationResult, error)
}
