// internal/position/config.go
package position

import (
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
)

// ThresholdMode selects how SellThreshold is compared with the current price.
type ThresholdMode string

const (
	// ThresholdAbsolute: цена >= SellThreshold
	ThresholdAbsolute ThresholdMode = "absolute"
	// ThresholdMultiple: цена >= referencePrice * SellThreshold
	ThresholdMultiple ThresholdMode = "multiple"
)

const WSOLMint = "So11111111111111111111111111111111111111112"

var (
	DefaultOpenAmount    = decimal.NewFromInt(100000)
	DefaultSellThreshold = decimal.NewFromInt(10000000)
	DefaultSellFraction  = decimal.RequireFromString("0.1")
)

type Config struct {
	BaseMint      string
	OpenAmount    decimal.Decimal
	QuoteAmount   decimal.Decimal // объём пробной котировки; по умолчанию OpenAmount
	SellThreshold decimal.Decimal
	SellFraction  decimal.Decimal
	ThresholdMode ThresholdMode
}

func DefaultConfig() Config {
	return Config{
		BaseMint:      WSOLMint,
		OpenAmount:    DefaultOpenAmount,
		SellThreshold: DefaultSellThreshold,
		SellFraction:  DefaultSellFraction,
		ThresholdMode: ThresholdAbsolute,
	}
}

func (c *Config) Validate() error {
	const op = "position.Config"
	if c.BaseMint == "" {
		return domain.Errorf(domain.KindConfig, op, "base mint is required")
	}
	if !c.OpenAmount.IsPositive() {
		return domain.Errorf(domain.KindConfig, op, "open amount must be positive, got %s", c.OpenAmount)
	}
	if c.QuoteAmount.IsZero() {
		c.QuoteAmount = c.OpenAmount
	}
	if !c.QuoteAmount.IsPositive() {
		return domain.Errorf(domain.KindConfig, op, "quote amount must be positive, got %s", c.QuoteAmount)
	}
	if !c.SellThreshold.IsPositive() {
		return domain.Errorf(domain.KindConfig, op, "sell threshold must be positive, got %s", c.SellThreshold)
	}
	if !c.SellFraction.IsPositive() || c.SellFraction.GreaterThan(decimal.NewFromInt(1)) {
		return domain.Errorf(domain.KindConfig, op, "sell fraction must be in (0, 1], got %s", c.SellFraction)
	}
	switch c.ThresholdMode {
	case "":
		c.ThresholdMode = ThresholdAbsolute
	case ThresholdAbsolute, ThresholdMultiple:
	default:
		return domain.Errorf(domain.KindConfig, op, "unknown threshold mode %q", c.ThresholdMode)
	}
	return nil
}

// reached reports whether the sell rule fires.
func (c Config) reached(price, reference decimal.Decimal) bool {
	if !price.IsPositive() {
		return false
	}
	if c.ThresholdMode == ThresholdMultiple {
		return reference.IsPositive() && price.GreaterThanOrEqual(reference.Mul(c.SellThreshold))
	}
	return price.GreaterThanOrEqual(c.SellThreshold)
}

var one = decimal.NewFromInt(1)

// sellQuantity: доля от amount, усечённая до целых единиц. Если доля обнуляется
// или остаток меньше одной единицы, продаётся всё.
func (c Config) sellQuantity(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	qty := amount.Mul(c.SellFraction).Truncate(0)
	if !qty.IsPositive() || amount.Sub(qty).LessThan(one) {
		return amount
	}
	return qty
}
