package core

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	PriceStore interface {
		// GetPrice returns ErrUnknownAsset when no entry exists. A missing
		// entry is distinct from a stored zero price.
		GetPrice(ctx context.Context, assetId string) (*PriceEntry, error)
		SetPrice(ctx context.Context, entry *PriceEntry) error
	}

	// PriceEntry maps an asset to its current unit price in the common
	// quote unit. A zero price is a valid, maximally risky quote.
	PriceEntry struct {
		AssetID   string          `gorm:"primaryKey;size:64" json:"assetId"`
		Price     decimal.Decimal `gorm:"type:decimal(32,16)" json:"price"`
		UpdatedAt int64           `json:"updatedAt"`
	}
)

// PriceOracle owns PriceEntry records. Reads are open to all; writes are
// restricted to the configured updater identity. No staleness or TWAP
// hardening is applied here; that belongs to a production feed in front of
// SetPrice.
type PriceOracle struct {
	mux sync.Mutex

	updater  string
	prices   PriceStore
	operates OperateStore
	clk      clock.Clock
	log      Log
}

func NewPriceOracle(updater string, prices PriceStore, operates OperateStore, clk clock.Clock, log Log) *PriceOracle {
	return &PriceOracle{
		updater:  updater,
		prices:   prices,
		operates: operates,
		clk:      clk,
		log:      log,
	}
}

// SetPrice sets or overwrites the entry for the asset. The value is not
// bounds-checked; callers sanity-check upstream if they need to.
func (o *PriceOracle) SetPrice(ctx context.Context, caller string, assetId string, price decimal.Decimal) error {
	o.mux.Lock()
	defer o.mux.Unlock()

	if caller != o.updater {
		return ErrNotPriceUpdater
	}
	if price.IsNegative() {
		return ErrInvalidAmount
	}

	entry := &PriceEntry{
		AssetID:   assetId,
		Price:     price,
		UpdatedAt: o.clk.Now().Unix(),
	}
	if err := o.prices.SetPrice(ctx, entry); err != nil {
		return errors.Wrap(err, "set price")
	}

	o.log.Info().Str("asset", assetId).Str("price", price.String()).Msg("price updated")
	o.record(ctx, NewOperate(o.clk, OTPriceUpdated, caller, assetId, price, ""))
	return nil
}

// GetPrice returns the stored price unconditionally, or ErrUnknownAsset if
// no entry exists.
func (o *PriceOracle) GetPrice(ctx context.Context, assetId string) (decimal.Decimal, error) {
	entry, err := o.prices.GetPrice(ctx, assetId)
	if err != nil {
		return decimal.Zero, err
	}
	return entry.Price, nil
}

func (o *PriceOracle) record(ctx context.Context, operate Operate) {
	if o.operates == nil {
		return
	}
	if err := o.operates.CreateOperate(ctx, &operate); err != nil {
		o.log.Warn().Err(err).Msg("record operate")
	}
}
