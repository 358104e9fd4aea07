// Package store provides implementations of the core store interfaces: a
// gorm-backed one for persistence and an in-memory one for tests and
// embedding.
package store

import (
	"context"
	"sync"

	"github.com/vaultlend/core"
)

// MemoryStore implements every core store interface with in-memory maps.
// Records are copied on the way in and out so callers never alias stored
// state.
type MemoryStore struct {
	mu           sync.RWMutex
	prices       map[string]*core.PriceEntry
	positions    map[string]*core.Position
	auctions     map[string]*core.Auction
	assets       map[string]*core.Asset
	liquidations map[string]*core.Liquidation
	operates     []core.Operate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:       make(map[string]*core.PriceEntry),
		positions:    make(map[string]*core.Position),
		auctions:     make(map[string]*core.Auction),
		assets:       make(map[string]*core.Asset),
		liquidations: make(map[string]*core.Liquidation),
	}
}

// --- core.PriceStore ---

func (s *MemoryStore) GetPrice(_ context.Context, assetId string) (*core.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.prices[assetId]
	if !ok {
		return nil, core.ErrUnknownAsset
	}
	cloned := *entry
	return &cloned, nil
}

func (s *MemoryStore) SetPrice(_ context.Context, entry *core.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *entry
	s.prices[entry.AssetID] = &cloned
	return nil
}

// --- core.PositionStore ---

func (s *MemoryStore) GetPosition(_ context.Context, user string) (*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.positions[user]
	if !ok {
		return nil, core.ErrPositionNotFound
	}
	return position.Clone(), nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, position *core.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[position.User] = position.Clone()
	return nil
}

// --- core.AuctionStore ---

func (s *MemoryStore) GetAuction(_ context.Context, auctionId string) (*core.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionId]
	if !ok {
		return nil, core.ErrAuctionNotFound
	}
	return auction.Clone(), nil
}

func (s *MemoryStore) CreateAuction(_ context.Context, auction *core.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.Id]; ok {
		return core.ErrDuplicateAuction
	}
	s.auctions[auction.Id] = auction.Clone()
	return nil
}

func (s *MemoryStore) UpsertAuction(_ context.Context, auction *core.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions[auction.Id] = auction.Clone()
	return nil
}

// --- core.AssetStore ---

func (s *MemoryStore) GetAsset(_ context.Context, assetId string) (*core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetId]
	if !ok {
		return nil, core.ErrUnknownAsset
	}
	cloned := *asset
	return &cloned, nil
}

func (s *MemoryStore) ListAllAssets(_ context.Context) ([]*core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]*core.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		cloned := *asset
		assets = append(assets, &cloned)
	}
	return assets, nil
}

func (s *MemoryStore) UpsertAsset(_ context.Context, asset *core.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *asset
	s.assets[asset.AssetID] = &cloned
	return nil
}

// --- core.LiquidationStore ---

func (s *MemoryStore) CreateLiquidation(_ context.Context, liquidation *core.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *liquidation
	s.liquidations[liquidation.AuctionID] = &cloned
	return nil
}

func (s *MemoryStore) GetLiquidationByAuctionId(_ context.Context, auctionId string) (*core.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	liquidation, ok := s.liquidations[auctionId]
	if !ok {
		return nil, core.ErrAuctionNotFound
	}
	cloned := *liquidation
	return &cloned, nil
}

func (s *MemoryStore) ListLiquidationsByUser(_ context.Context, user string) ([]*core.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.Liquidation
	for _, liquidation := range s.liquidations {
		if liquidation.User == user {
			cloned := *liquidation
			result = append(result, &cloned)
		}
	}
	return result, nil
}

// --- core.OperateStore ---

func (s *MemoryStore) CreateOperate(_ context.Context, operate *core.Operate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operates = append(s.operates, *operate)
	return nil
}

func (s *MemoryStore) ListOperates(_ context.Context, user string, op core.OperateType, createdBeforeAt, limit int64) ([]core.Operate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []core.Operate
	for i := len(s.operates) - 1; i >= 0; i-- {
		operate := s.operates[i]
		if user != "" && operate.User != user {
			continue
		}
		if op != 0 && operate.Op != op {
			continue
		}
		if createdBeforeAt > 0 && operate.CreatedAt >= createdBeforeAt {
			continue
		}
		result = append(result, operate)
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
	}
	return result, nil
}
