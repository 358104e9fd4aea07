package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferService is the external fungible-asset collaborator. Each holder
// of escrowed funds (the ledger, the auction engine) is wired with its own
// instance; Pull credits that holder's escrow, Push pays out of it.
//
// Both calls either fully succeed or fully fail. A failure aborts the
// enclosing operation: callers wrap it in ErrTransferFailed or
// ErrRefundFailed and unwind any in-flight mutation.
type TransferService interface {
	// Pull debits amount of the asset from owner into the holder's escrow.
	// Fails if the owner's balance or allowance is insufficient.
	Pull(ctx context.Context, assetId string, owner string, amount decimal.Decimal) error

	// Push credits amount of the asset from the holder's escrow to the
	// recipient. Failure means the holder's own accounting is broken and is
	// treated as an internal invariant violation by settlement.
	Push(ctx context.Context, assetId string, recipient string, amount decimal.Decimal) error
}
