package core

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Health is never cached. Every check below recomputes from current state
// plus a fresh oracle read.

// CollateralValue prices a position's collateral as the sum over each held
// asset of amount * price. ErrUnknownAsset propagates: a position holding an
// asset with no price feed cannot be health-checked and must fail closed,
// never be silently skipped.
func CollateralValue(ctx context.Context, oracle *PriceOracle, position *Position) (decimal.Decimal, error) {
	assetIds := make([]string, 0, len(position.Collateral))
	for assetId := range position.Collateral {
		assetIds = append(assetIds, assetId)
	}
	sort.Strings(assetIds)

	total := decimal.Zero
	for _, assetId := range assetIds {
		price, err := oracle.GetPrice(ctx, assetId)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(CalcValue(position.Collateral[assetId], price))
	}
	return total, nil
}

func CalcValue(amount decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(price)
}

// MeetsCollateralRatio reports whether value * 100 >= debt * ratioPercent.
// Used with COLLATERALIZATION_RATIO at borrow and withdraw time.
func MeetsCollateralRatio(value, debt, ratioPercent decimal.Decimal) bool {
	return value.Mul(HUNDRED).GreaterThanOrEqual(debt.Mul(ratioPercent))
}

// BelowLiquidationThreshold reports whether value * 100 < debt * threshold
// * 100, the liquidation trigger. A zero-debt position is never below the
// threshold.
func BelowLiquidationThreshold(value, debt, threshold decimal.Decimal) bool {
	if debt.LessThanOrEqual(ZERO_AMOUNT_THRESHOLD) {
		return false
	}
	return value.Mul(HUNDRED).LessThan(debt.Mul(threshold.Mul(HUNDRED)))
}
