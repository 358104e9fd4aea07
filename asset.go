package core

import (
	"context"

	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/shopspring/decimal"
)

type (
	AssetStore interface {
		GetAsset(ctx context.Context, assetId string) (*Asset, error)
		ListAllAssets(ctx context.Context) ([]*Asset, error)
		UpsertAsset(ctx context.Context, asset *Asset) error
	}

	// Asset is an opaque fungible-token identity plus the metadata the
	// ledger needs to validate deposits. The external transfer collaborator
	// is keyed by AssetID.
	Asset struct {
		AssetID   string          `gorm:"primaryKey;size:64" json:"assetId,omitempty"`
		ChainID   string          `gorm:"size:64" json:"chainId,omitempty"`
		Symbol    string          `gorm:"size:20" json:"symbol,omitempty"`
		Name      string          `gorm:"size:128" json:"name,omitempty"`
		Precision int32           `json:"precision,omitempty"`
		Dust      decimal.Decimal `gorm:"type:decimal(32,16)" json:"dust,omitempty"`
	}
)

func NewAssetFromMixin(asset *mixin.SafeAsset) *Asset {
	return &Asset{
		AssetID:   asset.AssetID,
		ChainID:   asset.ChainID,
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		Precision: asset.Precision,
		Dust:      asset.Dust,
	}
}
