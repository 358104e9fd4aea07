package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaultlend/core"
)

// GormStore implements every core store interface on a gorm connection.
// Not-found lookups are translated to the matching core sentinel so callers
// never see gorm.ErrRecordNotFound.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&core.PriceEntry{},
		&core.Position{},
		&core.Auction{},
		&core.Asset{},
		&core.Liquidation{},
		&core.Operate{},
	)
}

// --- core.PriceStore ---

func (s *GormStore) GetPrice(ctx context.Context, assetId string) (*core.PriceEntry, error) {
	var entry core.PriceEntry
	if err := s.db.WithContext(ctx).Where("asset_id = ?", assetId).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUnknownAsset
		}
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) SetPrice(ctx context.Context, entry *core.PriceEntry) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			UpdateAll: true,
		}).
		Create(entry).Error
}

// --- core.PositionStore ---

func (s *GormStore) GetPosition(ctx context.Context, user string) (*core.Position, error) {
	var position core.Position
	if err := s.db.WithContext(ctx).Where("user = ?", user).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrPositionNotFound
		}
		return nil, err
	}
	return &position, nil
}

func (s *GormStore) UpsertPosition(ctx context.Context, position *core.Position) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user"}},
			UpdateAll: true,
		}).
		Create(position).Error
}

// --- core.AuctionStore ---

func (s *GormStore) GetAuction(ctx context.Context, auctionId string) (*core.Auction, error) {
	var auction core.Auction
	if err := s.db.WithContext(ctx).Where("id = ?", auctionId).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

func (s *GormStore) CreateAuction(ctx context.Context, auction *core.Auction) error {
	return s.db.WithContext(ctx).Create(auction).Error
}

func (s *GormStore) UpsertAuction(ctx context.Context, auction *core.Auction) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(auction).Error
}

// --- core.AssetStore ---

func (s *GormStore) GetAsset(ctx context.Context, assetId string) (*core.Asset, error) {
	var asset core.Asset
	if err := s.db.WithContext(ctx).Where("asset_id = ?", assetId).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUnknownAsset
		}
		return nil, err
	}
	return &asset, nil
}

func (s *GormStore) ListAllAssets(ctx context.Context) ([]*core.Asset, error) {
	var assets []*core.Asset
	if err := s.db.WithContext(ctx).Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *GormStore) UpsertAsset(ctx context.Context, asset *core.Asset) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			UpdateAll: true,
		}).
		Create(asset).Error
}

// --- core.LiquidationStore ---

func (s *GormStore) CreateLiquidation(ctx context.Context, liquidation *core.Liquidation) error {
	return s.db.WithContext(ctx).Create(liquidation).Error
}

func (s *GormStore) GetLiquidationByAuctionId(ctx context.Context, auctionId string) (*core.Liquidation, error) {
	var liquidation core.Liquidation
	if err := s.db.WithContext(ctx).Where("auction_id = ?", auctionId).First(&liquidation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrAuctionNotFound
		}
		return nil, err
	}
	return &liquidation, nil
}

func (s *GormStore) ListLiquidationsByUser(ctx context.Context, user string) ([]*core.Liquidation, error) {
	var liquidations []*core.Liquidation
	if err := s.db.WithContext(ctx).Where("user = ?", user).Find(&liquidations).Error; err != nil {
		return nil, err
	}
	return liquidations, nil
}

// --- core.OperateStore ---

func (s *GormStore) CreateOperate(ctx context.Context, operate *core.Operate) error {
	return s.db.WithContext(ctx).Create(operate).Error
}

func (s *GormStore) ListOperates(ctx context.Context, user string, op core.OperateType, createdBeforeAt, limit int64) ([]core.Operate, error) {
	query := s.db.WithContext(ctx).Model(&core.Operate{})
	if user != "" {
		query = query.Where("user = ?", user)
	}
	if op != 0 {
		query = query.Where("op = ?", op)
	}
	if createdBeforeAt > 0 {
		query = query.Where("created_at < ?", createdBeforeAt)
	}
	if limit > 0 {
		query = query.Limit(int(limit))
	}

	var operates []core.Operate
	if err := query.Order("created_at desc").Find(&operates).Error; err != nil {
		return nil, err
	}
	return operates, nil
}
