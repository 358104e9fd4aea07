package core

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// LedgerConfig carries the ledger's identities and risk parameters.
//
// Account is the ledger's own address at the transfer collaborator: deposits
// are escrowed under it and the auction engine pulls liquidated collateral
// from it. DebtAssetID denominates all debt and borrow disbursements.
type LedgerConfig struct {
	Owner       string
	Account     string
	DebtAssetID string

	// LiquidationThreshold defaults to DEFAULT_LIQUIDATION_THRESHOLD when
	// zero.
	LiquidationThreshold decimal.Decimal
}

// LendingLedger tracks each user's collateral and debt, computes
// collateralization health against fresh oracle reads, and hands
// undercollateralized positions to the auction engine. All operations are
// serialized behind one mutex; collaborator failures unwind the operation.
type LendingLedger struct {
	mux sync.Mutex

	cfg       LedgerConfig
	threshold decimal.Decimal

	positions    PositionStore
	assets       AssetStore
	liquidations LiquidationStore
	operates     OperateStore

	oracle   *PriceOracle
	engine   *AuctionEngine
	transfer TransferService
	clk      clock.Clock
	log      Log
}

func NewLendingLedger(
	cfg LedgerConfig,
	positions PositionStore,
	assets AssetStore,
	liquidations LiquidationStore,
	operates OperateStore,
	oracle *PriceOracle,
	engine *AuctionEngine,
	transfer TransferService,
	clk clock.Clock,
	log Log,
) *LendingLedger {
	threshold := cfg.LiquidationThreshold
	if threshold.IsZero() {
		threshold = DEFAULT_LIQUIDATION_THRESHOLD
	}
	return &LendingLedger{
		cfg:          cfg,
		threshold:    threshold,
		positions:    positions,
		assets:       assets,
		liquidations: liquidations,
		operates:     operates,
		oracle:       oracle,
		engine:       engine,
		transfer:     transfer,
		clk:          clk,
		log:          log,
	}
}

// DepositCollateral pulls amount of the asset from the user into the
// ledger's escrow and credits the user's position. The position is created
// implicitly on first deposit.
func (l *LendingLedger) DepositCollateral(ctx context.Context, user string, assetId string, amount decimal.Decimal) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if l.assets != nil {
		if asset, err := l.assets.GetAsset(ctx, assetId); err == nil && amount.LessThan(asset.Dust) {
			return ErrInvalidAmount
		}
	}

	if err := l.transfer.Pull(ctx, assetId, user, amount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	position, err := l.findOrCreatePosition(ctx, user)
	if err == nil {
		position = position.Clone()
		position.AddCollateral(assetId, amount)
		position.UpdatedAt = l.clk.Now().Unix()
		err = l.positions.UpsertPosition(ctx, position)
	}
	if err != nil {
		// escrow already holds the funds, hand them back
		if pushErr := l.transfer.Push(ctx, assetId, user, amount); pushErr != nil {
			l.log.Error().Err(pushErr).Str("user", user).Msg("unwind of deposit failed")
		}
		return errors.Wrap(err, "deposit collateral")
	}

	l.log.Info().Str("user", user).Str("asset", assetId).Str("amount", amount.String()).Msg("collateral deposited")
	l.record(ctx, NewOperate(l.clk, OTCollateralDeposited, user, assetId, amount, ""))
	return nil
}

// WithdrawCollateral returns amount of the asset to the user, provided the
// remaining collateral still covers the outstanding debt at the target
// ratio.
func (l *LendingLedger) WithdrawCollateral(ctx context.Context, user string, assetId string, amount decimal.Decimal) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return ErrInsufficientCollateral
		}
		return err
	}
	if position.CollateralAmount(assetId).LessThan(amount) {
		return ErrInsufficientCollateral
	}

	remaining := position.Clone()
	remaining.AddCollateral(assetId, amount.Neg())
	remaining.UpdatedAt = l.clk.Now().Unix()

	if remaining.Debt.GreaterThan(ZERO_AMOUNT_THRESHOLD) {
		value, err := CollateralValue(ctx, l.oracle, remaining)
		if err != nil {
			return err
		}
		if !MeetsCollateralRatio(value, remaining.Debt, COLLATERALIZATION_RATIO) {
			return ErrWouldUndercollateralize
		}
	}

	if err := l.transfer.Push(ctx, assetId, user, amount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}
	if err := l.positions.UpsertPosition(ctx, remaining); err != nil {
		// the tokens already left escrow, take them back
		if pullErr := l.transfer.Pull(ctx, assetId, user, amount); pullErr != nil {
			l.log.Error().Err(pullErr).Str("user", user).Msg("unwind of withdrawal failed")
		}
		return errors.Wrap(err, "withdraw collateral")
	}

	l.log.Info().Str("user", user).Str("asset", assetId).Str("amount", amount.String()).Msg("collateral withdrawn")
	l.record(ctx, NewOperate(l.clk, OTCollateralWithdrawn, user, assetId, amount, ""))
	return nil
}

// Borrow increases the user's debt and disburses the debt asset, provided
// the post-borrow debt stays covered at COLLATERALIZATION_RATIO.
func (l *LendingLedger) Borrow(ctx context.Context, user string, amount decimal.Decimal) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	position, err := l.findOrCreatePosition(ctx, user)
	if err != nil {
		return err
	}
	position = position.Clone()
	position.Debt = position.Debt.Add(amount)
	position.UpdatedAt = l.clk.Now().Unix()

	value, err := CollateralValue(ctx, l.oracle, position)
	if err != nil {
		return err
	}
	if !MeetsCollateralRatio(value, position.Debt, COLLATERALIZATION_RATIO) {
		return ErrWouldUndercollateralize
	}

	if err := l.transfer.Push(ctx, l.cfg.DebtAssetID, user, amount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}
	if err := l.positions.UpsertPosition(ctx, position); err != nil {
		// no debt was recorded, recall the disbursement
		if pullErr := l.transfer.Pull(ctx, l.cfg.DebtAssetID, user, amount); pullErr != nil {
			l.log.Error().Err(pullErr).Str("user", user).Msg("unwind of borrow failed")
		}
		return errors.Wrap(err, "borrow")
	}

	l.log.Info().Str("user", user).Str("amount", amount.String()).Msg("borrow issued")
	l.record(ctx, NewOperate(l.clk, OTBorrowIssued, user, l.cfg.DebtAssetID, amount, ""))
	return nil
}

// Repay pulls the debt asset from the user and reduces their debt. Amounts
// above the outstanding debt are rejected rather than truncated.
func (l *LendingLedger) Repay(ctx context.Context, user string, amount decimal.Decimal) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return ErrInvalidAmount
		}
		return err
	}
	if amount.GreaterThan(position.Debt) {
		return ErrInvalidAmount
	}

	if err := l.transfer.Pull(ctx, l.cfg.DebtAssetID, user, amount); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}

	position = position.Clone()
	position.Debt = position.Debt.Sub(amount)
	position.UpdatedAt = l.clk.Now().Unix()
	if err := l.positions.UpsertPosition(ctx, position); err != nil {
		if pushErr := l.transfer.Push(ctx, l.cfg.DebtAssetID, user, amount); pushErr != nil {
			l.log.Error().Err(pushErr).Str("user", user).Msg("unwind of repay failed")
		}
		return errors.Wrap(err, "repay")
	}

	l.log.Info().Str("user", user).Str("amount", amount.String()).Msg("debt repaid")
	l.record(ctx, NewOperate(l.clk, OTDebtRepaid, user, l.cfg.DebtAssetID, amount, ""))
	return nil
}

// IsUndercollateralized reports whether the user's collateral value, at
// current oracle prices, falls below the liquidation threshold relative to
// their debt. A position holding an unpriced asset fails closed with
// ErrUnknownAsset rather than passing the check.
func (l *LendingLedger) IsUndercollateralized(ctx context.Context, user string) (bool, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return false, nil
		}
		return false, err
	}
	return l.isUndercollateralized(ctx, position)
}

func (l *LendingLedger) isUndercollateralized(ctx context.Context, position *Position) (bool, error) {
	if position.Debt.LessThanOrEqual(ZERO_AMOUNT_THRESHOLD) {
		return false, nil
	}
	value, err := CollateralValue(ctx, l.oracle, position)
	if err != nil {
		return false, err
	}
	return BelowLiquidationThreshold(value, position.Debt, l.threshold), nil
}

// Liquidate opens an auction over the user's full holding of the asset and
// zeroes that entry in the position. The collateral is represented by the
// pending auction from then on; debt is untouched until the auction's
// proceeds reach the seller. Returns the auction id.
//
// A position that cannot be priced (ErrUnknownAsset) is not liquidatable:
// the health check fails closed by rejecting the call, never by waving the
// liquidation through.
func (l *LendingLedger) Liquidate(ctx context.Context, user string, assetId string) (string, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return "", ErrNotUndercollateralized
		}
		return "", err
	}

	under, err := l.isUndercollateralized(ctx, position)
	if err != nil {
		return "", err
	}
	if !under {
		return "", ErrNotUndercollateralized
	}

	holding := position.CollateralAmount(assetId)
	if holding.LessThanOrEqual(ZERO_AMOUNT_THRESHOLD) {
		return "", ErrNoCollateral
	}

	nonce := position.LiquidationNonce + 1
	auctionId := NewAuctionId(user, assetId, nonce)

	// zero the holding before the auction exists: a failed store write here
	// aborts cleanly, while an auction without a matching position write
	// would count the collateral twice
	updated := position.Clone()
	updated.SetCollateral(assetId, decimal.Zero)
	updated.LiquidationNonce = nonce
	updated.UpdatedAt = l.clk.Now().Unix()
	if err := l.positions.UpsertPosition(ctx, updated); err != nil {
		return "", errors.Wrap(err, "liquidate")
	}

	// the engine pulls the escrowed collateral from the ledger's account
	if err := l.engine.StartAuction(ctx, l.cfg.Account, auctionId, assetId, holding, user); err != nil {
		if restoreErr := l.positions.UpsertPosition(ctx, position); restoreErr != nil {
			l.log.Error().Err(restoreErr).Str("user", user).Msg("restore of position after failed auction start failed")
		}
		return "", err
	}

	if l.liquidations != nil {
		liquidation := NewLiquidation(l.clk, auctionId, user, assetId, holding, updated.Debt)
		if err := l.liquidations.CreateLiquidation(ctx, liquidation); err != nil {
			l.log.Warn().Err(err).Str("auction", auctionId).Msg("record liquidation")
		}
	}

	l.log.Info().
		Str("user", user).
		Str("asset", assetId).
		Str("collateral", holding.String()).
		Str("auction", auctionId).
		Msg("liquidation triggered")
	l.record(ctx, NewOperate(l.clk, OTLiquidationTriggered, user, assetId, holding, auctionId))
	return auctionId, nil
}

// CollateralAmount returns the user's deposited amount of the asset.
func (l *LendingLedger) CollateralAmount(ctx context.Context, user string, assetId string) (decimal.Decimal, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return position.CollateralAmount(assetId), nil
}

// Position returns a copy of the user's full position record.
func (l *LendingLedger) Position(ctx context.Context, user string) (*Position, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

// SetLiquidationThreshold tunes the liquidation trigger. Owner only.
func (l *LendingLedger) SetLiquidationThreshold(ctx context.Context, caller string, value decimal.Decimal) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if caller != l.cfg.Owner {
		return ErrNotOwner
	}
	if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(ONE) {
		return ErrInvalidAmount
	}

	l.threshold = value
	l.log.Info().Str("threshold", value.String()).Msg("liquidation threshold changed")
	l.record(ctx, NewOperate(l.clk, OTThresholdChanged, caller, "", value, ""))
	return nil
}

// LiquidationThreshold returns the current liquidation trigger ratio.
func (l *LendingLedger) LiquidationThreshold() decimal.Decimal {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.threshold
}

// Owner returns the privileged identity allowed to tune parameters.
func (l *LendingLedger) Owner() string {
	return l.cfg.Owner
}

func (l *LendingLedger) record(ctx context.Context, operate Operate) {
	if l.operates == nil {
		return
	}
	if err := l.operates.CreateOperate(ctx, &operate); err != nil {
		l.log.Warn().Err(err).Msg("record operate")
	}
}

func (l *LendingLedger) findOrCreatePosition(ctx context.Context, user string) (*Position, error) {
	position, err := l.positions.GetPosition(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPositionNotFound) {
			return NewPosition(l.clk, user), nil
		}
		return nil, err
	}
	return position, nil
}
