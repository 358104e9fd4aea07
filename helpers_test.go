package core_test

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultlend/core"
	"github.com/vaultlend/core/store"
)

const (
	mtkAsset   = "mtk-asset"
	usdAsset   = "usd-asset"
	ownerAddr  = "owner"
	ledgerAddr = "ledger-escrow"
	engineAddr = "engine-escrow"
)

// tokenBook is the in-memory fungible-asset collaborator shared by all
// escrow holders in a test. Pull and push failures can be injected per
// account to exercise the unwind paths.
type tokenBook struct {
	balances map[string]map[string]decimal.Decimal // asset -> account -> balance

	failPullFrom map[string]bool
	failPushTo   map[string]bool
}

func newTokenBook() *tokenBook {
	return &tokenBook{
		balances:     make(map[string]map[string]decimal.Decimal),
		failPullFrom: make(map[string]bool),
		failPushTo:   make(map[string]bool),
	}
}

func (b *tokenBook) mint(assetId, account string, amount decimal.Decimal) {
	if b.balances[assetId] == nil {
		b.balances[assetId] = make(map[string]decimal.Decimal)
	}
	b.balances[assetId][account] = b.balanceOf(assetId, account).Add(amount)
}

func (b *tokenBook) balanceOf(assetId, account string) decimal.Decimal {
	if b.balances[assetId] == nil {
		return decimal.Zero
	}
	balance, ok := b.balances[assetId][account]
	if !ok {
		return decimal.Zero
	}
	return balance
}

func (b *tokenBook) move(assetId, from, to string, amount decimal.Decimal) error {
	if b.balanceOf(assetId, from).LessThan(amount) {
		return errors.Errorf("insufficient balance of %s for %s", assetId, from)
	}
	b.mint(assetId, from, amount.Neg())
	b.mint(assetId, to, amount)
	return nil
}

// transferFor binds the book to one escrow holder.
func (b *tokenBook) transferFor(escrow string) core.TransferService {
	return &escrowTransfer{book: b, escrow: escrow}
}

type escrowTransfer struct {
	book   *tokenBook
	escrow string
}

func (t *escrowTransfer) Pull(_ context.Context, assetId string, owner string, amount decimal.Decimal) error {
	if t.book.failPullFrom[owner] {
		return errors.New("pull rejected")
	}
	return t.book.move(assetId, owner, t.escrow, amount)
}

func (t *escrowTransfer) Push(_ context.Context, assetId string, recipient string, amount decimal.Decimal) error {
	if t.book.failPushTo[recipient] {
		return errors.New("push rejected")
	}
	return t.book.move(assetId, t.escrow, recipient, amount)
}

type testEnv struct {
	clk    *clock.Mock
	book   *tokenBook
	store  *store.MemoryStore
	oracle *core.PriceOracle
	engine *core.AuctionEngine
	ledger *core.LendingLedger
}

// storeSetup interposes on individual store interfaces while the rest stay
// backed by the shared MemoryStore.
type storeSetup struct {
	wrapAuctions  func(core.AuctionStore) core.AuctionStore
	wrapPositions func(core.PositionStore) core.PositionStore
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvStores(t, storeSetup{})
}

func newTestEnvStores(t *testing.T, setup storeSetup) *testEnv {
	t.Helper()

	clk := clock.NewMock()
	book := newTokenBook()
	mem := store.NewMemoryStore()

	var auctions core.AuctionStore = mem
	if setup.wrapAuctions != nil {
		auctions = setup.wrapAuctions(mem)
	}
	var positions core.PositionStore = mem
	if setup.wrapPositions != nil {
		positions = setup.wrapPositions(mem)
	}

	logger := zerolog.Nop()
	log := &logger

	oracle := core.NewPriceOracle(ownerAddr, mem, mem, clk, log)
	engine := core.NewAuctionEngine(auctions, mem, book.transferFor(engineAddr), usdAsset, clk, log)
	ledger := core.NewLendingLedger(
		core.LedgerConfig{
			Owner:       ownerAddr,
			Account:     ledgerAddr,
			DebtAssetID: usdAsset,
		},
		positions, mem, mem, mem,
		oracle, engine, book.transferFor(ledgerAddr), clk, log,
	)

	return &testEnv{
		clk:    clk,
		book:   book,
		store:  mem,
		oracle: oracle,
		engine: engine,
		ledger: ledger,
	}
}

func (env *testEnv) setPrice(t *testing.T, assetId string, price decimal.Decimal) {
	t.Helper()
	if err := env.oracle.SetPrice(context.Background(), ownerAddr, assetId, price); err != nil {
		t.Fatalf("set price: %v", err)
	}
}

// flakyAuctionStore fails the next upsertFailures upserts, then recovers.
type flakyAuctionStore struct {
	core.AuctionStore
	upsertFailures int
}

func (s *flakyAuctionStore) UpsertAuction(ctx context.Context, auction *core.Auction) error {
	if s.upsertFailures > 0 {
		s.upsertFailures--
		return errors.New("storage offline")
	}
	return s.AuctionStore.UpsertAuction(ctx, auction)
}

type flakyPositionStore struct {
	core.PositionStore
	upsertFailures int
}

func (s *flakyPositionStore) UpsertPosition(ctx context.Context, position *core.Position) error {
	if s.upsertFailures > 0 {
		s.upsertFailures--
		return errors.New("storage offline")
	}
	return s.PositionStore.UpsertPosition(ctx, position)
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}
