// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
)

// TransactionFetcher fetches a transaction by signature.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
