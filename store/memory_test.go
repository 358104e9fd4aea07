package store_test

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlend/core"
	"github.com/vaultlend/core/store"
)

func TestMemoryStoreSentinels(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetPrice(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUnknownAsset)

	_, err = s.GetPosition(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrPositionNotFound)

	_, err = s.GetAuction(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrAuctionNotFound)

	_, err = s.GetAsset(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUnknownAsset)
}

func TestMemoryStoreCreateAuctionOnce(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	clk := clock.NewMock()

	auction := core.NewAuction(clk, "auction-1", "asset-1", decimal.NewFromInt(10), "alice")
	require.NoError(t, s.CreateAuction(ctx, auction))

	err := s.CreateAuction(ctx, auction)
	assert.ErrorIs(t, err, core.ErrDuplicateAuction)

	// upsert overwrites, create never does
	auction.IsActive = false
	require.NoError(t, s.UpsertAuction(ctx, auction))
	got, err := s.GetAuction(ctx, "auction-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestMemoryStoreNoAliasing(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	clk := clock.NewMock()

	position := core.NewPosition(clk, "alice")
	position.AddCollateral("asset-1", decimal.NewFromInt(5))
	require.NoError(t, s.UpsertPosition(ctx, position))

	// mutating the caller's copy must not leak into the store
	position.AddCollateral("asset-1", decimal.NewFromInt(100))

	got, err := s.GetPosition(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.CollateralAmount("asset-1").Equal(decimal.NewFromInt(5)))

	// nor the other way around
	got.Debt = decimal.NewFromInt(999)
	again, err := s.GetPosition(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, again.Debt.IsZero())
}

func TestMemoryStoreAssetRegistry(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	// sync the registry from upstream asset metadata
	require.NoError(t, s.UpsertAsset(ctx, core.NewAssetFromMixin(&mixin.SafeAsset{
		AssetID:   "asset-1",
		ChainID:   "chain-1",
		Symbol:    "ONE",
		Name:      "Asset One",
		Precision: 8,
		Dust:      decimal.NewFromFloat(0.001),
	})))
	require.NoError(t, s.UpsertAsset(ctx, core.NewAssetFromMixin(&mixin.SafeAsset{
		AssetID: "asset-2",
		Symbol:  "TWO",
	})))

	assets, err := s.ListAllAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	got, err := s.GetAsset(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, "ONE", got.Symbol)
	assert.True(t, got.Dust.Equal(decimal.NewFromFloat(0.001)))

	// re-sync overwrites in place
	require.NoError(t, s.UpsertAsset(ctx, &core.Asset{AssetID: "asset-2", Symbol: "TWO2"}))
	got, err = s.GetAsset(ctx, "asset-2")
	require.NoError(t, err)
	assert.Equal(t, "TWO2", got.Symbol)
	assets, err = s.ListAllAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestMemoryStoreListOperates(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	clk := clock.NewMock()

	for i := 0; i < 3; i++ {
		op := core.NewOperate(clk, core.OTCollateralDeposited, "alice", "asset-1", decimal.NewFromInt(int64(i+1)), "")
		require.NoError(t, s.CreateOperate(ctx, &op))
	}
	op := core.NewOperate(clk, core.OTBorrowIssued, "bob", "asset-2", decimal.NewFromInt(7), "")
	require.NoError(t, s.CreateOperate(ctx, &op))

	got, err := s.ListOperates(ctx, "alice", core.OTCollateralDeposited, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	// newest first
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(3)))

	got, err = s.ListOperates(ctx, "alice", core.OTCollateralDeposited, 0, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListOperates(ctx, "bob", 0, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, core.OTBorrowIssued, got[0].Op)
}
