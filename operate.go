package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type (
	OperateStore interface {
		CreateOperate(ctx context.Context, operate *Operate) error
		ListOperates(ctx context.Context, user string, op OperateType, createdBeforeAt, limit int64) ([]Operate, error)
	}

	// Operate is the observable-event record written for every state
	// transition. External indexers and UIs consume these; nothing inside
	// the core reads them back.
	Operate struct {
		Id        uuid.UUID       `gorm:"primaryKey;size:36" json:"id"`
		Op        OperateType     `gorm:"index" json:"op"`
		User      string          `gorm:"size:64;index" json:"user"`
		AssetID   string          `gorm:"size:64" json:"assetId,omitempty"`
		Amount    decimal.Decimal `gorm:"type:decimal(32,16)" json:"amount"`
		AuctionID string          `gorm:"size:36" json:"auctionId,omitempty"`
		CreatedAt int64           `gorm:"index" json:"createdAt"`
	}
)

type OperateType uint8

const (
	OTCollateralDeposited OperateType = iota + 1
	OTCollateralWithdrawn
	OTBorrowIssued
	OTDebtRepaid
	OTPriceUpdated
	OTAuctionStarted
	OTBidPlaced
	OTAuctionEnded
	OTLiquidationTriggered
	OTThresholdChanged
)

func (o OperateType) String() string {
	switch o {
	case OTCollateralDeposited:
		return "CollateralDeposited"
	case OTCollateralWithdrawn:
		return "CollateralWithdrawn"
	case OTBorrowIssued:
		return "BorrowIssued"
	case OTDebtRepaid:
		return "DebtRepaid"
	case OTPriceUpdated:
		return "PriceUpdated"
	case OTAuctionStarted:
		return "AuctionStarted"
	case OTBidPlaced:
		return "BidPlaced"
	case OTAuctionEnded:
		return "AuctionEnded"
	case OTLiquidationTriggered:
		return "LiquidationTriggered"
	case OTThresholdChanged:
		return "ThresholdChanged"
	default:
		return "Unknown"
	}
}

func NewOperate(clk clock.Clock, op OperateType, user string, assetId string, amount decimal.Decimal, auctionId string) Operate {
	return Operate{
		Id:        uuid.Must(uuid.NewV4()),
		Op:        op,
		User:      user,
		AssetID:   assetId,
		Amount:    amount,
		AuctionID: auctionId,
		CreatedAt: clk.Now().Unix(),
	}
}
