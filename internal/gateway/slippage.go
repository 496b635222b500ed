// internal/gateway/slippage.go
package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed задаёт допустимое отклонение в единицах выходного токена
	SlippageFixed SlippageType = "fixed"
	// SlippagePercent использует процент от ожидаемого выхода
	SlippagePercent SlippageType = "percent"
	// SlippageNone не ограничивает минимальный выход
	SlippageNone SlippageType = "none"
)

var hundred = decimal.NewFromInt(100)

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	Type SlippageType `mapstructure:"type" json:"type"`
	// Value содержит значение для выбранной политики:
	// - для SlippageFixed: допустимое отклонение в базовых единицах выходного токена
	// - для SlippagePercent: процент (1.0 = 1%)
	// - для SlippageNone: игнорируется
	Value float64 `mapstructure:"value" json:"value"`
}

func (s SlippageConfig) Validate() error {
	switch s.Type {
	case SlippageFixed, SlippagePercent:
		if s.Value < 0 {
			return fmt.Errorf("slippage value must be non-negative, got %v", s.Value)
		}
		if s.Type == SlippagePercent && s.Value > 100 {
			return fmt.Errorf("slippage percent must be <= 100, got %v", s.Value)
		}
		return nil
	case SlippageNone:
		return nil
	default:
		return fmt.Errorf("unknown slippage type %q", s.Type)
	}
}

// NeedsQuote reports whether Percent depends on the expected output.
func (s SlippageConfig) NeedsQuote() bool {
	return s.Type == SlippageFixed
}

// Percent возвращает допуск в процентах для запроса к шлюзу.
func (s SlippageConfig) Percent(expectedOut decimal.Decimal) decimal.Decimal {
	switch s.Type {
	case SlippagePercent:
		return decimal.NewFromFloat(s.Value)
	case SlippageFixed:
		if !expectedOut.IsPositive() {
			return hundred
		}
		pct := decimal.NewFromFloat(s.Value).Div(expectedOut).Mul(hundred)
		if pct.GreaterThan(hundred) {
			return hundred
		}
		return pct.Round(4)
	default:
		return hundred
	}
}

// MinAmountOut вычисляет минимальный выход на основе политики проскальзывания
func (s SlippageConfig) MinAmountOut(expectedOut decimal.Decimal) decimal.Decimal {
	switch s.Type {
	case SlippageFixed:
		out := expectedOut.Sub(decimal.NewFromFloat(s.Value))
		if out.LessThan(decimal.NewFromInt(1)) {
			return decimal.NewFromInt(1)
		}
		return out.Floor()
	case SlippagePercent:
		multiplier := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(s.Value).Div(hundred))
		return expectedOut.Mul(multiplier).Floor()
	default:
		// 1 как минимальное значение для прохождения валидации
		return decimal.NewFromInt(1)
	}
}
