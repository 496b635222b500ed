package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one tracked holding of a non-base token.
type Position struct {
	TokenID   string          `json:"token_id"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	OpenedAt  time.Time       `json:"opened_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// NewPosition opens a position at the given reference price.
func NewPosition(tokenID string, amount, price decimal.Decimal) Position {
	now := time.Now().UTC()
	return Position{
		TokenID:   tokenID,
		Symbol:    tokenID,
		Amount:    amount,
		Price:     price,
		OpenedAt:  now,
		UpdatedAt: now,
	}
}

// Closed reports whether nothing is left to liquidate.
func (p Position) Closed() bool {
	return !p.Amount.IsPositive()
}

// Equal compares the persisted fields only.
func (p Position) Equal(o Position) bool {
	return p.TokenID == o.TokenID &&
		p.Symbol == o.Symbol &&
		p.Amount.Equal(o.Amount) &&
		p.Price.Equal(o.Price)
}
