package core

import (
	"context"
	"strconv"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"

	"github.com/vaultlend/core/utils"
)

type (
	AuctionStore interface {
		// GetAuction returns ErrAuctionNotFound when the id denotes no
		// auction, active or settled.
		GetAuction(ctx context.Context, auctionId string) (*Auction, error)
		CreateAuction(ctx context.Context, auction *Auction) error
		UpsertAuction(ctx context.Context, auction *Auction) error
	}

	// Auction is a timed ascending auction over an escrowed collateral
	// amount. CollateralAmount is fixed at start and never altered by
	// bidding. Once IsActive is false the record is immutable.
	Auction struct {
		Id               string          `gorm:"primaryKey;size:36" json:"id"`
		AssetID          string          `gorm:"size:64;index" json:"assetId"`
		CollateralAmount decimal.Decimal `gorm:"type:decimal(32,16)" json:"collateralAmount"`
		Seller           string          `gorm:"size:64;index" json:"seller"`

		CurrentBid    decimal.Decimal `gorm:"type:decimal(32,16)" json:"currentBid"`
		HighestBidder string          `gorm:"size:64" json:"highestBidder,omitempty"`

		Deadline int64 `json:"deadline"`
		IsActive bool  `json:"isActive"`

		CreatedAt int64 `json:"createdAt"`
		SettledAt int64 `json:"settledAt,omitempty"`
	}
)

// NewAuctionId derives a deterministic auction id from the seller, the
// collateral asset and a nonce, so per-asset auctions stay distinguishable
// and a failed settlement can be re-auctioned under the next nonce.
func NewAuctionId(seller string, assetId string, nonce int64) string {
	return utils.GenUuidFromStrings(seller, assetId, strconv.FormatInt(nonce, 10))
}

func NewAuction(clk clock.Clock, auctionId string, assetId string, collateralAmount decimal.Decimal, seller string) *Auction {
	now := clk.Now()
	return &Auction{
		Id:               auctionId,
		AssetID:          assetId,
		CollateralAmount: collateralAmount,
		Seller:           seller,
		CurrentBid:       decimal.Zero,
		Deadline:         now.Add(AUCTION_DURATION).Unix(),
		IsActive:         true,
		CreatedAt:        now.Unix(),
	}
}

func (a *Auction) HasBids() bool {
	return a.HighestBidder != ""
}

func (a *Auction) Expired(now time.Time) bool {
	return now.Unix() >= a.Deadline
}

func (a *Auction) Clone() *Auction {
	clone := *a
	return &clone
}
