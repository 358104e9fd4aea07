package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

type (
	PositionStore interface {
		// GetPosition returns ErrPositionNotFound when the user has never
		// deposited. An empty position is equivalent to a missing one.
		GetPosition(ctx context.Context, user string) (*Position, error)
		UpsertPosition(ctx context.Context, position *Position) error
	}

	// Position is the per-user collateral and debt record. Created
	// implicitly on first deposit, never explicitly destroyed; a position
	// with zero collateral and zero debt is indistinguishable from none.
	Position struct {
		User       string          `gorm:"primaryKey;size:64" json:"user"`
		Collateral CollateralMap   `gorm:"type:text" json:"collateral"`
		Debt       decimal.Decimal `gorm:"type:decimal(32,16)" json:"debt"`

		// LiquidationNonce distinguishes successive auctions over the same
		// (user, asset) pair so a stuck settlement can be re-auctioned
		// under a fresh id.
		LiquidationNonce int64 `json:"liquidationNonce"`

		CreatedAt int64 `json:"createdAt"`
		UpdatedAt int64 `json:"updatedAt"`
	}

	// CollateralMap maps asset id to the deposited amount.
	CollateralMap map[string]decimal.Decimal
)

func NewPosition(clk clock.Clock, user string) *Position {
	return &Position{
		User:       user,
		Collateral: CollateralMap{},
		Debt:       decimal.Zero,
		CreatedAt:  clk.Now().Unix(),
		UpdatedAt:  clk.Now().Unix(),
	}
}

func (p *Position) CollateralAmount(assetId string) decimal.Decimal {
	amount, ok := p.Collateral[assetId]
	if !ok {
		return decimal.Zero
	}
	return amount
}

func (p *Position) AddCollateral(assetId string, delta decimal.Decimal) {
	next := p.CollateralAmount(assetId).Add(delta)
	if next.LessThanOrEqual(decimal.Zero) {
		delete(p.Collateral, assetId)
		return
	}
	p.Collateral[assetId] = next
}

func (p *Position) SetCollateral(assetId string, amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		delete(p.Collateral, assetId)
		return
	}
	p.Collateral[assetId] = amount
}

func (p *Position) IsEmpty() bool {
	if !p.Debt.LessThan(EMPTY_BALANCE_THRESHOLD) {
		return false
	}
	for _, amount := range p.Collateral {
		if !amount.LessThan(EMPTY_BALANCE_THRESHOLD) {
			return false
		}
	}
	return true
}

func (p *Position) Clone() *Position {
	collateral := make(CollateralMap, len(p.Collateral))
	for assetId, amount := range p.Collateral {
		collateral[assetId] = amount
	}
	return &Position{
		User:             p.User,
		Collateral:       collateral,
		Debt:             p.Debt,
		LiquidationNonce: p.LiquidationNonce,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (j CollateralMap) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *CollateralMap) Scan(value any) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}
