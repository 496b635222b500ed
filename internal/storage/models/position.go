// internal/storage/models/position.go
package models

import (
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
)

// Position is one row of the portfolio snapshot.
type Position struct {
	TokenID   string          `gorm:"primarykey;type:varchar(44)"`
	Symbol    string          `gorm:"not null;type:varchar(44)"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Price     decimal.Decimal `gorm:"type:numeric;not null"`
	OpenedAt  *time.Time
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

func (Position) TableName() string { return "positions" }

func NewPosition(p domain.Position) Position {
	return Position{
		TokenID:   p.TokenID,
		Symbol:    p.Symbol,
		Amount:    p.Amount,
		Price:     p.Price,
		OpenedAt:  timePtr(p.OpenedAt),
		UpdatedAt: timePtr(p.UpdatedAt),
	}
}

func (m Position) Domain() domain.Position {
	p := domain.Position{
		TokenID: m.TokenID,
		Symbol:  m.Symbol,
		Amount:  m.Amount,
		Price:   m.Price,
	}
	if m.OpenedAt != nil {
		p.OpenedAt = m.OpenedAt.UTC()
	}
	if m.UpdatedAt != nil {
		p.UpdatedAt = m.UpdatedAt.UTC()
	}
	return p
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
