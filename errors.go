package core

import "github.com/pkg/errors"

// Every rejected precondition surfaces its own sentinel so callers can
// discriminate cause with errors.Is.
var (
	// validation
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrBidTooLow         = errors.New("bid too low")
	ErrDuplicateAuction  = errors.New("duplicate auction")
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrAuctionInactive   = errors.New("auction inactive")
	ErrAuctionExpired    = errors.New("auction expired")
	ErrAuctionNotExpired = errors.New("auction not expired")

	// risk
	ErrWouldUndercollateralize = errors.New("would undercollateralize")
	ErrNotUndercollateralized  = errors.New("not undercollateralized")
	ErrInsufficientCollateral  = errors.New("insufficient collateral")
	ErrNoCollateral            = errors.New("no collateral")
	ErrUnknownAsset            = errors.New("unknown asset")
	ErrPositionNotFound        = errors.New("position not found")

	// access
	ErrNotOwner        = errors.New("not owner")
	ErrNotPriceUpdater = errors.New("not price updater")

	// collaborator failure. Always fatal to the enclosing operation; state
	// is left exactly as before the call.
	ErrTransferFailed = errors.New("transfer failed")
	ErrRefundFailed   = errors.New("refund failed")

	// ErrSettlementStuck is returned when an auction reached its terminal
	// state but a payout transfer failed. The escrowed funds need operator
	// intervention; the auction itself is closed for good.
	ErrSettlementStuck = errors.New("settlement stuck")
)
