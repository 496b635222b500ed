// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
)

// Trade is one journaled order attempt.
type Trade struct {
	BaseModel
	RecordID  string          `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Timestamp time.Time       `gorm:"index;not null"`
	Side      string          `gorm:"not null;type:varchar(8)"`
	Token     string          `gorm:"index;not null;type:varchar(44)"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Price     decimal.Decimal `gorm:"type:numeric"`
	Signature string          `gorm:"type:varchar(88)"`
	Success   bool            `gorm:"not null"`
	ErrorKind string          `gorm:"type:varchar(32)"`
	ErrorMsg  string          `gorm:"type:text"`
}

func (Trade) TableName() string { return "trades" }

func NewTrade(rec domain.TradeRecord) Trade {
	return Trade{
		RecordID:  rec.ID,
		Timestamp: rec.Timestamp.UTC(),
		Side:      string(rec.Side),
		Token:     rec.Token,
		Amount:    rec.Amount,
		Price:     rec.Price,
		Signature: rec.Signature,
		Success:   rec.Success,
		ErrorKind: string(rec.ErrorKind),
		ErrorMsg:  rec.ErrorMsg,
	}
}

func (m Trade) Domain() domain.TradeRecord {
	return domain.TradeRecord{
		ID:        m.RecordID,
		Timestamp: m.Timestamp.UTC(),
		Side:      domain.Side(m.Side),
		Token:     m.Token,
		Amount:    m.Amount,
		Price:     m.Price,
		Signature: m.Signature,
		Success:   m.Success,
		ErrorKind: domain.Kind(m.ErrorKind),
		ErrorMsg:  m.ErrorMsg,
	}
}
