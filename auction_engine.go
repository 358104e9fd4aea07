package core

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AuctionEngine runs independent, keyed auctions over escrowed collateral
// and settles them to the highest bidder or back to the seller. Every public
// operation executes as a single serialized transaction: state is mutated
// only after all collaborator pulls for the operation have succeeded, and is
// unwound when a later step fails.
//
// Bids are denominated in the engine's quote asset; proceeds are paid to the
// seller in that asset.
type AuctionEngine struct {
	mux sync.Mutex

	auctions   AuctionStore
	operates   OperateStore
	transfer   TransferService
	bidAssetId string
	clk        clock.Clock
	log        Log
}

func NewAuctionEngine(auctions AuctionStore, operates OperateStore, transfer TransferService, bidAssetId string, clk clock.Clock, log Log) *AuctionEngine {
	return &AuctionEngine{
		auctions:   auctions,
		operates:   operates,
		transfer:   transfer,
		bidAssetId: bidAssetId,
		clk:        clk,
		log:        log,
	}
}

// StartAuction escrows collateralAmount of the asset pulled from the caller
// and opens a new auction with a deadline of now + AUCTION_DURATION. The id
// must not denote any prior auction, active or settled.
func (e *AuctionEngine) StartAuction(ctx context.Context, caller string, auctionId string, assetId string, collateralAmount decimal.Decimal, seller string) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if collateralAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if _, err := e.auctions.GetAuction(ctx, auctionId); err == nil {
		return ErrDuplicateAuction
	} else if !errors.Is(err, ErrAuctionNotFound) {
		return errors.Wrap(err, "get auction")
	}

	if err := e.transfer.Pull(ctx, assetId, caller, collateralAmount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	auction := NewAuction(e.clk, auctionId, assetId, collateralAmount, seller)
	if err := e.auctions.CreateAuction(ctx, auction); err != nil {
		// collateral already escrowed, hand it back
		if pushErr := e.transfer.Push(ctx, assetId, caller, collateralAmount); pushErr != nil {
			e.log.Error().Err(pushErr).Str("auction", auctionId).Msg("unwind of escrowed collateral failed")
		}
		return errors.Wrap(err, "create auction")
	}

	e.log.Info().
		Str("auction", auctionId).
		Str("asset", assetId).
		Str("collateral", collateralAmount.String()).
		Str("seller", seller).
		Msg("auction started")
	e.record(ctx, NewOperate(e.clk, OTAuctionStarted, seller, assetId, collateralAmount, auctionId))
	return nil
}

// PlaceBid escrows the bid and displaces the previous highest bidder. The
// displaced bidder is refunded in full strictly before the new bid is
// recorded; if the refund fails the new bid is unwound and rejected.
func (e *AuctionEngine) PlaceBid(ctx context.Context, bidder string, auctionId string, bidAmount decimal.Decimal) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	auction, err := e.auctions.GetAuction(ctx, auctionId)
	if err != nil {
		return err
	}
	if !auction.IsActive {
		return ErrAuctionInactive
	}
	if auction.Expired(e.clk.Now()) {
		return ErrAuctionExpired
	}
	// strict increase keeps the highest bidder well defined; ties rejected
	if !bidAmount.GreaterThan(auction.CurrentBid) {
		return ErrBidTooLow
	}

	prevBidder := auction.HighestBidder
	prevBid := auction.CurrentBid

	if err := e.transfer.Pull(ctx, e.bidAssetId, bidder, bidAmount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	if auction.HasBids() {
		if err := e.transfer.Push(ctx, e.bidAssetId, prevBidder, prevBid); err != nil {
			if pushErr := e.transfer.Push(ctx, e.bidAssetId, bidder, bidAmount); pushErr != nil {
				e.log.Error().Err(pushErr).Str("auction", auctionId).Msg("unwind of rejected bid failed")
			}
			return errors.Wrap(ErrRefundFailed, err.Error())
		}
	}

	auction = auction.Clone()
	auction.CurrentBid = bidAmount
	auction.HighestBidder = bidder
	if err := e.auctions.UpsertAuction(ctx, auction); err != nil {
		// both transfers already happened, reverse them so escrow matches
		// the record that still names the previous bidder
		if pushErr := e.transfer.Push(ctx, e.bidAssetId, bidder, bidAmount); pushErr != nil {
			e.log.Error().Err(pushErr).Str("auction", auctionId).Msg("unwind of unrecorded bid failed")
		}
		if prevBidder != "" {
			if pullErr := e.transfer.Pull(ctx, e.bidAssetId, prevBidder, prevBid); pullErr != nil {
				e.log.Error().Err(pullErr).Str("auction", auctionId).Msg("re-escrow of refunded bid failed")
			}
		}
		return errors.Wrap(err, "upsert auction")
	}

	e.log.Info().
		Str("auction", auctionId).
		Str("bidder", bidder).
		Str("bid", bidAmount.String()).
		Msg("bid placed")
	e.record(ctx, NewOperate(e.clk, OTBidPlaced, bidder, auction.AssetID, bidAmount, auctionId))
	return nil
}

// EndAuction settles an expired auction, exactly once. Anyone may call it;
// the protocol must not depend on a specific party acting.
//
// The terminal transition is committed before the payout transfers so a
// transfer failure can neither reopen the auction nor let the collateral be
// sold twice. A payout failure after the transition surfaces
// ErrSettlementStuck and is an operator alert, not a retryable state.
func (e *AuctionEngine) EndAuction(ctx context.Context, auctionId string) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	auction, err := e.auctions.GetAuction(ctx, auctionId)
	if err != nil {
		return err
	}
	if !auction.IsActive {
		return ErrAuctionInactive
	}
	if !auction.Expired(e.clk.Now()) {
		return ErrAuctionNotExpired
	}

	auction = auction.Clone()
	auction.IsActive = false
	auction.SettledAt = e.clk.Now().Unix()
	if err := e.auctions.UpsertAuction(ctx, auction); err != nil {
		return errors.Wrap(err, "upsert auction")
	}

	if auction.HasBids() {
		if err := e.transfer.Push(ctx, auction.AssetID, auction.HighestBidder, auction.CollateralAmount); err != nil {
			e.alertStuck(auction, "collateral payout failed", err)
			return errors.Wrap(ErrSettlementStuck, err.Error())
		}
		if err := e.transfer.Push(ctx, e.bidAssetId, auction.Seller, auction.CurrentBid); err != nil {
			e.alertStuck(auction, "proceeds payout failed", err)
			return errors.Wrap(ErrSettlementStuck, err.Error())
		}
	} else {
		if err := e.transfer.Push(ctx, auction.AssetID, auction.Seller, auction.CollateralAmount); err != nil {
			e.alertStuck(auction, "collateral return failed", err)
			return errors.Wrap(ErrSettlementStuck, err.Error())
		}
	}

	e.log.Info().
		Str("auction", auctionId).
		Str("winner", auction.HighestBidder).
		Str("bid", auction.CurrentBid.String()).
		Msg("auction ended")
	e.record(ctx, NewOperate(e.clk, OTAuctionEnded, auction.Seller, auction.AssetID, auction.CurrentBid, auctionId))
	return nil
}

// Auction returns a copy of the full auction record.
func (e *AuctionEngine) Auction(ctx context.Context, auctionId string) (*Auction, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	auction, err := e.auctions.GetAuction(ctx, auctionId)
	if err != nil {
		return nil, err
	}
	return auction.Clone(), nil
}

func (e *AuctionEngine) alertStuck(auction *Auction, msg string, err error) {
	e.log.Error().
		Err(err).
		Str("auction", auction.Id).
		Str("asset", auction.AssetID).
		Str("collateral", auction.CollateralAmount.String()).
		Str("bid", auction.CurrentBid.String()).
		Msg("settlement stuck: " + msg)
}

func (e *AuctionEngine) record(ctx context.Context, operate Operate) {
	if e.operates == nil {
		return
	}
	if err := e.operates.CreateOperate(ctx, &operate); err != nil {
		e.log.Warn().Err(err).Msg("record operate")
	}
}
