package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

type (
	LiquidationStore interface {
		CreateLiquidation(ctx context.Context, liquidation *Liquidation) error
		GetLiquidationByAuctionId(ctx context.Context, auctionId string) (*Liquidation, error)
		ListLiquidationsByUser(ctx context.Context, user string) ([]*Liquidation, error)
	}

	// Liquidation links a liquidated position to the auction now holding
	// its collateral. The ledger keeps only this reference; the auction
	// record itself is owned by the engine.
	Liquidation struct {
		AuctionID        string          `gorm:"primaryKey;size:36" json:"auctionId"`
		User             string          `gorm:"size:64;index" json:"user"`
		AssetID          string          `gorm:"size:64" json:"assetId"`
		CollateralAmount decimal.Decimal `gorm:"type:decimal(32,16)" json:"collateralAmount"`
		DebtAtTrigger    decimal.Decimal `gorm:"type:decimal(32,16)" json:"debtAtTrigger"`
		CreatedAt        int64           `json:"createdAt"`
	}
)

func NewLiquidation(clk clock.Clock, auctionId string, user string, assetId string, collateralAmount, debtAtTrigger decimal.Decimal) *Liquidation {
	return &Liquidation{
		AuctionID:        auctionId,
		User:             user,
		AssetID:          assetId,
		CollateralAmount: collateralAmount,
		DebtAtTrigger:    debtAtTrigger,
		CreatedAt:        clk.Now().Unix(),
	}
}
