// internal/gateway/client.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// Signer signs swap transactions on behalf of the owner address.
type Signer interface {
	SignTransaction(tx *solana.Transaction) error
	String() string
}

// Sender submits signed transactions through an RPC node.
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error)
}

// Client is the Trader API order gateway: quotes, swap construction and submission.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	signer  Signer
	sender  Sender
	logger  *zap.Logger

	retryWait time.Duration
}

func NewClient(cfg Config, signer Signer, sender Sender, logger *zap.Logger) (*Client, error) {
	if signer == nil {
		return nil, domain.Errorf(domain.KindConfig, "gateway.NewClient", "signer is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Project == "" {
		cfg.Project = DefaultProject
	}
	if cfg.ComputeLimit == 0 {
		cfg.ComputeLimit = DefaultComputeLimit
	}
	if cfg.ComputePrice == "" {
		cfg.ComputePrice = DefaultComputePrice
	}
	if cfg.SubmitMode == "" {
		cfg.SubmitMode = SubmitGateway
	}
	if cfg.SubmitStrategy == "" {
		cfg.SubmitStrategy = DefaultSubmitStrategy
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.Slippage.Type == "" {
		cfg.Slippage = SlippageConfig{Type: SlippagePercent, Value: 1}
	}
	if err := cfg.Slippage.Validate(); err != nil {
		return nil, domain.E(domain.KindConfig, "gateway.NewClient", err)
	}
	if cfg.SubmitMode == SubmitRPC && sender == nil {
		return nil, domain.Errorf(domain.KindConfig, "gateway.NewClient", "submit mode rpc needs an RPC sender")
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(math.Max(1, math.Ceil(cfg.RatePerSec)))),
		signer:  signer,
		sender:  sender,
		logger:  logger.Named("gateway"),

		retryWait: baseRetryWait,
	}, nil
}

// Quote returns the output amount of the best route for amount of tokenIn.
func (c *Client) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "gateway.Quote"

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	route, err := c.bestRoute(ctx, op, tokenIn, tokenOut, amount, c.cfg.Slippage.Percent(decimal.Zero))
	if err != nil {
		return decimal.Zero, err
	}
	out, err := decimal.NewFromString(route.OutAmount.String())
	if err != nil {
		return decimal.Zero, domain.E(domain.KindMalformed, op, fmt.Errorf("route outAmount %q: %w", route.OutAmount, err))
	}
	return out, nil
}

// Buy swaps amount of the base currency into token.
func (c *Client) Buy(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error) {
	return c.swap(ctx, "gateway.Buy", c.cfg.BaseMint, token, amount)
}

// Sell swaps amount of token back into the base currency.
func (c *Client) Sell(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error) {
	return c.swap(ctx, "gateway.Sell", token, c.cfg.BaseMint, amount)
}

func (c *Client) bestRoute(ctx context.Context, op, tokenIn, tokenOut string, amount, slippage decimal.Decimal) (quoteRoute, error) {
	q := url.Values{}
	q.Set("inToken", tokenIn)
	q.Set("outToken", tokenOut)
	q.Set("inAmount", amount.String())
	q.Set("slippage", slippage.String())

	var resp quoteResponse
	if err := c.get(ctx, c.cfg.BaseURL+quotePath+"?"+q.Encode(), &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusBadRequest) {
			return quoteRoute{}, domain.E(domain.KindRouteNotFound, op, err)
		}
		return quoteRoute{}, domain.E(domain.KindTransport, op, err)
	}
	if len(resp.Routes) == 0 || resp.Routes[0].OutAmount == "" {
		return quoteRoute{}, domain.Errorf(domain.KindRouteNotFound, op, "no route %s -> %s", tokenIn, tokenOut)
	}
	return resp.Routes[0], nil
}

func (c *Client) swap(ctx context.Context, op, tokenIn, tokenOut string, amount decimal.Decimal) (domain.OrderResult, error) {
	if tokenIn == tokenOut {
		return domain.OrderResult{}, domain.Errorf(domain.KindOrder, op, "input and output token are both %s", tokenIn)
	}
	if !amount.IsPositive() {
		return domain.OrderResult{}, domain.Errorf(domain.KindOrder, op, "amount must be positive, got %s", amount)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	slippage := c.cfg.Slippage.Percent(decimal.Zero)
	if c.cfg.Slippage.NeedsQuote() {
		route, err := c.bestRoute(ctx, op, tokenIn, tokenOut, amount, slippage)
		if err != nil {
			return domain.OrderResult{}, err
		}
		expected, _ := decimal.NewFromString(route.OutAmount.String())
		slippage = c.cfg.Slippage.Percent(expected)
		c.logger.Debug("Computed slippage",
			zap.String("expected_out", expected.String()),
			zap.String("min_out", c.cfg.Slippage.MinAmountOut(expected).String()),
			zap.String("slippage_pct", slippage.String()))
	}

	req := swapRequest{
		OwnerAddress: c.signer.String(),
		InToken:      tokenIn,
		OutToken:     tokenOut,
		InAmount:     json.Number(amount.String()),
		Slippage:     json.Number(slippage.String()),
		Project:      c.cfg.Project,
		ComputeLimit: c.cfg.ComputeLimit,
		ComputePrice: c.cfg.ComputePrice,
		Tip:          c.cfg.Tip,
	}

	var resp swapResponse
	if err := c.post(ctx, c.cfg.BaseURL+swapPath, req, &resp); err != nil {
		return domain.OrderResult{}, c.orderErr(op, err)
	}
	if len(resp.Transactions) == 0 {
		return domain.OrderResult{}, domain.Errorf(domain.KindOrder, op, "gateway returned no transactions")
	}

	signed := make([]*solana.Transaction, 0, len(resp.Transactions))
	for i, msg := range resp.Transactions {
		tx, err := c.prepare(msg.Content)
		if err != nil {
			return domain.OrderResult{}, domain.E(domain.KindOrder, op, fmt.Errorf("transaction %d: %w", i, err))
		}
		signed = append(signed, tx)
	}

	sigs, err := c.submit(ctx, signed, resp.Transactions)
	if err != nil {
		return domain.OrderResult{}, c.orderErr(op, err)
	}

	out, _ := decimal.NewFromString(resp.OutAmount.String())
	for _, s := range sigs {
		c.logger.Info("✅ Order submitted",
			zap.String("in", tokenIn),
			zap.String("out", tokenOut),
			zap.String("amount", amount.String()),
			zap.String("signature", s),
			zap.String("explorer", "https://explorer.solana.com/tx/"+s))
	}
	return domain.OrderResult{Signatures: sigs, OutAmount: out}, nil
}

// prepare decodes a gateway transaction, appends the memo and signs it.
func (c *Client) prepare(content string) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromBase64(content)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		tx.Signatures = nil
	}

	if c.cfg.Memo != "" {
		owner, err := solana.PublicKeyFromBase58(c.signer.String())
		if err != nil {
			return nil, fmt.Errorf("owner address: %w", err)
		}
		added, err := appendMemo(tx, owner, c.cfg.Memo)
		if err != nil {
			return nil, err
		}
		if !added {
			c.logger.Debug("Memo skipped for transaction with address lookups")
		}
	}

	if err := c.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return tx, nil
}

func (c *Client) submit(ctx context.Context, txs []*solana.Transaction, msgs []txMessage) ([]string, error) {
	if c.cfg.SubmitMode == SubmitRPC {
		sigs := make([]string, 0, len(txs))
		for _, tx := range txs {
			sig, err := c.sender.SendTransaction(ctx, tx)
			if err != nil {
				return sigs, err
			}
			sigs = append(sigs, sig)
		}
		return sigs, nil
	}

	req := submitRequest{SubmitStrategy: c.cfg.SubmitStrategy}
	for i, tx := range txs {
		content, err := tx.ToBase64()
		if err != nil {
			return nil, fmt.Errorf("encode transaction %d: %w", i, err)
		}
		req.Entries = append(req.Entries, submitEntry{
			Transaction:   txMessage{Content: content, IsCleanup: msgs[i].IsCleanup},
			SkipPreFlight: c.cfg.SkipPreflight,
		})
	}

	var resp submitResponse
	if err := c.post(ctx, c.cfg.BaseURL+submitPath, req, &resp); err != nil {
		return nil, err
	}

	sigs := make([]string, 0, len(resp.Transactions))
	var failures []string
	for _, r := range resp.Transactions {
		if r.Error != "" || !r.Submitted {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Signature, r.Error))
			continue
		}
		sigs = append(sigs, r.Signature)
	}
	if len(failures) > 0 || len(sigs) == 0 {
		return sigs, domain.Errorf(domain.KindOrder, "gateway.submit", "submission rejected: %s", strings.Join(failures, "; "))
	}
	return sigs, nil
}

func (c *Client) orderErr(op string, err error) error {
	if k := domain.KindOf(err); k != domain.KindUnknown {
		return domain.E(k, op, err)
	}
	var se *statusError
	if errors.As(err, &se) {
		return domain.E(domain.KindOrder, op, err)
	}
	return domain.E(domain.KindTransport, op, err)
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.headers(req)
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.headers(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", c.cfg.AuthHeader)
	}
}

// doWithRetry повторяет запрос при 429/5xx и сетевых ошибках.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			c.logger.Warn("Gateway request retry",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return domain.E(domain.KindMalformed, "gateway.decode", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
