package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when a line item or tier fails validation.
var ErrInvalidInput = errors.New("pricing: invalid input")

// Tier is a customer loyalty level. The set is closed; dispatch happens
// through lookup tables keyed by Tier so an unknown value is always an
// explicit error, never a silent fallback.
type Tier string

const (
	TierBase   Tier = "BASE"
	TierSilver Tier = "SILVER"
	TierGold   Tier = "GOLD"
)

// ParseTier decodes a stored tier value.
func ParseTier(value string) (Tier, error) {
	tier := Tier(value)
	if _, ok := freightTierMultiplier[tier]; !ok {
		return "", fmt.Errorf("unknown tier %q: %w", value, ErrInvalidInput)
	}
	return tier, nil
}

// LineItem describes one cart line as the engine sees it. The engine never
// mutates its input.
type LineItem struct {
	Qty        int64
	UnitPrice  decimal.Decimal
	UnitWeight decimal.Decimal
}

// Quote breaks a computed total into its components.
type Quote struct {
	ProductTotal   decimal.Decimal `json:"productTotal"`
	VolumeDiscount decimal.Decimal `json:"volumeDiscount"`
	Freight        decimal.Decimal `json:"freight"`
	Total          decimal.Decimal `json:"total"`
}

var (
	five     = decimal.NewFromInt(5)
	ten      = decimal.NewFromInt(10)
	fifty    = decimal.NewFromInt(50)
	fiveHund = decimal.NewFromInt(500)
	oneThous = decimal.NewFromInt(1000)

	rateLight  = decimal.NewFromInt(2)
	rateMedium = decimal.NewFromInt(4)
	rateHeavy  = decimal.NewFromInt(7)

	half      = decimal.RequireFromString("0.5")
	ninetyPct = decimal.RequireFromString("0.9")
	eightyPct = decimal.RequireFromString("0.8")
)

// freightTierMultiplier is the tier discount applied to the freight base.
var freightTierMultiplier = map[Tier]decimal.Decimal{
	TierBase:   decimal.NewFromInt(1),
	TierSilver: half,
	TierGold:   decimal.Zero,
}

// Freight returns the shipping cost for the given total weight and tier.
// Band bounds are inclusive on the upper edge: 5, 10 and 50 belong to the
// cheaper band.
func Freight(totalWeight decimal.Decimal, tier Tier) (decimal.Decimal, error) {
	multiplier, ok := freightTierMultiplier[tier]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown tier %q: %w", tier, ErrInvalidInput)
	}
	if totalWeight.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative weight: %w", ErrInvalidInput)
	}
	return freightByWeight(totalWeight).Mul(multiplier), nil
}

func freightByWeight(w decimal.Decimal) decimal.Decimal {
	switch {
	case w.LessThanOrEqual(five):
		return decimal.Zero
	case w.LessThanOrEqual(ten):
		return w.Mul(rateLight)
	case w.LessThanOrEqual(fifty):
		return w.Mul(rateMedium)
	default:
		return w.Mul(rateHeavy)
	}
}

// volumeDiscount returns the amount to subtract from the product total.
// Thresholds are strict greater-than: exactly 500 gets no discount and
// exactly 1000 stays in the 10% band.
func volumeDiscount(productTotal decimal.Decimal) decimal.Decimal {
	switch {
	case productTotal.GreaterThan(oneThous):
		return productTotal.Sub(productTotal.Mul(eightyPct))
	case productTotal.GreaterThan(fiveHund):
		return productTotal.Sub(productTotal.Mul(ninetyPct))
	default:
		return decimal.Zero
	}
}

// ComputeQuote prices a cart: product subtotal, weight-based freight with
// the tier discount, and the volume discount on the product subtotal only.
// Deterministic and side-effect-free.
func ComputeQuote(items []LineItem, tier Tier) (Quote, error) {
	if _, ok := freightTierMultiplier[tier]; !ok {
		return Quote{}, fmt.Errorf("unknown tier %q: %w", tier, ErrInvalidInput)
	}

	productTotal := decimal.Zero
	totalWeight := decimal.Zero
	for i, item := range items {
		if item.Qty <= 0 {
			return Quote{}, fmt.Errorf("item %d: quantity must be positive: %w", i, ErrInvalidInput)
		}
		if item.UnitPrice.IsNegative() {
			return Quote{}, fmt.Errorf("item %d: negative unit price: %w", i, ErrInvalidInput)
		}
		if item.UnitWeight.IsNegative() {
			return Quote{}, fmt.Errorf("item %d: negative unit weight: %w", i, ErrInvalidInput)
		}
		qty := decimal.NewFromInt(item.Qty)
		productTotal = productTotal.Add(item.UnitPrice.Mul(qty))
		totalWeight = totalWeight.Add(item.UnitWeight.Mul(qty))
	}

	freight, err := Freight(totalWeight, tier)
	if err != nil {
		return Quote{}, err
	}
	discount := volumeDiscount(productTotal)

	return Quote{
		ProductTotal:   productTotal,
		VolumeDiscount: discount,
		Freight:        freight,
		Total:          productTotal.Sub(discount).Add(freight),
	}, nil
}

// ComputeTotal returns the final charge for the cart.
func ComputeTotal(items []LineItem, tier Tier) (decimal.Decimal, error) {
	quote, err := ComputeQuote(items, tier)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Total, nil
}
