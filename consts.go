package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AUCTION_DURATION is the fixed bidding window of every collateral
	// auction. Settlement is permitted once the deadline has passed.
	AUCTION_DURATION = 24 * time.Hour
)

var (
	ONE     = decimal.NewFromInt(1)
	HUNDRED = decimal.NewFromInt(100)

	// COLLATERALIZATION_RATIO is the minimum collateral-value-to-debt ratio,
	// expressed in percent, a position must keep to borrow more. Fixed, not
	// runtime tunable.
	COLLATERALIZATION_RATIO = decimal.NewFromInt(150)

	// DEFAULT_LIQUIDATION_THRESHOLD is the ratio below which an existing
	// position becomes eligible for forced liquidation.
	DEFAULT_LIQUIDATION_THRESHOLD = decimal.NewFromFloat(0.75)

	ZERO_AMOUNT_THRESHOLD   = decimal.Zero
	EMPTY_BALANCE_THRESHOLD = decimal.NewFromFloat(0.00000001)
)
