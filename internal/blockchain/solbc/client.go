// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
	"github.com/rovshanmuradov/lp-sniper/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// Client – тонкий адаптер над пулом RPC-узлов Solana.
type Client struct {
	pool     *rpc.Pool
	analyzer *ErrorAnalyzer
	logger   *zap.Logger
}

// NewClient создаёт клиента поверх одного или нескольких RPC URL.
func NewClient(urls []string, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("solbc-client")
	pool, err := rpc.NewPool(urls, logger)
	if err != nil {
		return nil, domain.E(domain.KindConfig, "solbc.NewClient", err)
	}
	analyzer := NewErrorAnalyzer(logger)
	pool.Retryable = analyzer.IsRetryable

	return &Client{
		pool:     pool,
		analyzer: analyzer,
		logger:   logger,
	}, nil
}

// GetTransaction загружает транзакцию с commitment=confirmed и приводит её
// к нейтральному виду с разрешёнными адресами аккаунтов.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*blockchain.Transaction, error) {
	const op = "solbc.GetTransaction"

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, domain.E(domain.KindMalformed, op, fmt.Errorf("invalid signature %q: %w", signature, err))
	}

	maxVersion := uint64(0)
	opts := &solanarpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     solanarpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	var result *solanarpc.GetTransactionResult
	err = c.pool.ExecuteWithRetry(ctx, "getTransaction", func(node *rpc.NodeClient) error {
		res, err := node.Client.GetTransaction(ctx, sig, opts)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		c.logger.Debug("GetTransaction error", zap.String("signature", signature), zap.Error(err))
		return nil, c.analyzer.Classify(op, err)
	}

	tx, err := decodeTransaction(signature, result)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// SendTransaction отправляет подписанную транзакцию.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	const op = "solbc.SendTransaction"

	var sig solana.Signature
	err := c.pool.ExecuteWithRetry(ctx, "sendTransaction", func(node *rpc.NodeClient) error {
		s, err := node.Client.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
			PreflightCommitment: solanarpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		sig = s
		return nil
	})
	if err != nil {
		analysis := c.analyzer.AnalyzeRPCError(err)
		c.logger.Error("SendTransaction error", zap.Error(err), zap.Any("analysis", analysis))
		return "", c.analyzer.Classify(op, err)
	}
	return sig.String(), nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	const op = "solbc.GetBalance"

	var balance uint64
	err := c.pool.ExecuteWithRetry(ctx, "getBalance", func(node *rpc.NodeClient) error {
		res, err := node.Client.GetBalance(ctx, pubkey, solanarpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		balance = res.Value
		return nil
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, c.analyzer.Classify(op, err)
	}
	return balance, nil
}

// NodeStats возвращает метрики по каждому узлу пула.
func (c *Client) NodeStats() map[string][3]uint64 {
	out := make(map[string][3]uint64, len(c.pool.Clients))
	for _, n := range c.pool.Clients {
		ok, failed, latency := n.GetMetrics()
		out[n.URL] = [3]uint64{ok, failed, uint64(latency.Milliseconds())}
	}
	return out
}

var _ blockchain.TransactionFetcher = (*Client)(nil)
