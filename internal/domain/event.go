package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PoolDetection is produced once per matched notification and consumed
// immediately by the position manager. It is never persisted.
type PoolDetection struct {
	Signature  string    `json:"signature"`
	Slot       uint64    `json:"slot,omitempty"`
	TokenA     string    `json:"token_a"`
	TokenB     string    `json:"token_b"`
	DetectedAt time.Time `json:"detected_at"`

	// Заполняются, если удалось разобрать данные initialize2
	OpenTime       time.Time `json:"open_time,omitempty"`
	InitCoinAmount uint64    `json:"init_coin_amount,omitempty"`
	InitPcAmount   uint64    `json:"init_pc_amount,omitempty"`
}

// Tokens returns the pair in instruction order.
func (d PoolDetection) Tokens() [2]string {
	return [2]string{d.TokenA, d.TokenB}
}

// Side of an order relative to the base currency.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderResult is what the order gateway reports for an executed swap.
type OrderResult struct {
	Signatures []string        `json:"signatures"`
	OutAmount  decimal.Decimal `json:"out_amount"`
}

// Signature returns the first submitted signature, if any.
func (r OrderResult) Signature() string {
	if len(r.Signatures) == 0 {
		return ""
	}
	return r.Signatures[0]
}

// TradeRecord is an append-only audit entry, one per order attempt.
type TradeRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Side      Side            `json:"side"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Success   bool            `json:"success"`
	ErrorKind Kind            `json:"error_kind,omitempty"`
	ErrorMsg  string          `json:"error_msg,omitempty"`
}

// NewTradeRecord builds a record for an order attempt. A nil err marks success.
func NewTradeRecord(side Side, token string, amount decimal.Decimal, res OrderResult, err error) TradeRecord {
	rec := TradeRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Side:      side,
		Token:     token,
		Amount:    amount,
		Signature: res.Signature(),
		Success:   err == nil,
	}
	if err != nil {
		rec.ErrorKind = KindOf(err)
		rec.ErrorMsg = err.Error()
	}
	return rec
}
