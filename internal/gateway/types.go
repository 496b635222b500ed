// internal/gateway/types.go
package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultBaseURL        = "https://ny.solana.dex.blxrbdn.com"
	DefaultProject        = "P_RAYDIUM"
	DefaultSubmitStrategy = "P_SUBMIT_ALL"
	DefaultComputeLimit   = 1000
	DefaultComputePrice   = "2000"
	DefaultTimeout        = 15 * time.Second
	DefaultRatePerSec     = 5

	quotePath  = "/api/v2/raydium/quotes"
	swapPath   = "/api/v2/trade/swap"
	submitPath = "/api/v2/submit-batch"

	maxRetries    = 3
	baseRetryWait = 250 * time.Millisecond
)

// SubmitMode selects how signed swap transactions reach the chain.
type SubmitMode string

const (
	SubmitGateway SubmitMode = "gateway"
	SubmitRPC     SubmitMode = "rpc"
)

// Config holds the Trader API settings.
type Config struct {
	BaseURL        string
	AuthHeader     string
	Project        string
	ComputeLimit   uint32
	ComputePrice   string
	Tip            string
	SubmitMode     SubmitMode
	SubmitStrategy string
	SkipPreflight  bool
	Memo           string
	Timeout        time.Duration
	RatePerSec     float64
	BaseMint       string
	Slippage       SlippageConfig
}

type quoteRoute struct {
	InAmount     json.Number `json:"inAmount"`
	OutAmount    json.Number `json:"outAmount"`
	OutAmountMin json.Number `json:"outAmountMin"`
}

type quoteResponse struct {
	InToken  string       `json:"inToken"`
	OutToken string       `json:"outToken"`
	Routes   []quoteRoute `json:"routes"`
}

type swapRequest struct {
	OwnerAddress string      `json:"ownerAddress"`
	InToken      string      `json:"inToken"`
	OutToken     string      `json:"outToken"`
	InAmount     json.Number `json:"inAmount"`
	Slippage     json.Number `json:"slippage"`
	Project      string      `json:"project"`
	ComputeLimit uint32      `json:"computeLimit,omitempty"`
	ComputePrice string      `json:"computePrice,omitempty"`
	Tip          string      `json:"tip,omitempty"`
}

type txMessage struct {
	Content   string `json:"content"`
	IsCleanup bool   `json:"isCleanup"`
}

type swapResponse struct {
	Transactions []txMessage `json:"transactions"`
	OutAmount    json.Number `json:"outAmount"`
	OutAmountMin json.Number `json:"outAmountMin"`
}

type submitEntry struct {
	Transaction   txMessage `json:"transaction"`
	SkipPreFlight bool      `json:"skipPreFlight"`
}

type submitRequest struct {
	Entries        []submitEntry `json:"entries"`
	SubmitStrategy string        `json:"submitStrategy"`
}

type submitResult struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
	Submitted bool   `json:"submitted"`
}

type submitResponse struct {
	Transactions []submitResult `json:"transactions"`
}

// statusError is a non-retryable HTTP failure.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway status %d: %s", e.Code, e.Body)
}
