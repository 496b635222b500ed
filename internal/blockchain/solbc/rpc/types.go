// internal/blockchain/solbc/rpc/types.go
package rpc

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 10 * time.Second
	MaxRetries      = 3
	RetryDelay      = 500 * time.Millisecond
	DefaultCooldown = 5 * time.Second
)

// NodeClient представляет отдельный RPC узел
type NodeClient struct {
	Client    *rpc.Client
	URL       string
	downUntil time.Time
	mutex     sync.RWMutex
	metrics   *metrics
}

// metrics содержит метрики производительности RPC узла
type metrics struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
	mutex        sync.RWMutex
}

// Pool представляет пул RPC клиентов с переключением между узлами
type Pool struct {
	Clients    []*NodeClient
	Logger     *zap.Logger
	CurrIndex  int
	Mutex      sync.Mutex
	MaxTries   uint
	RetryDelay time.Duration
	Cooldown   time.Duration

	// Retryable решает, стоит ли пробовать следующий узел после ошибки.
	// nil означает "повторять всегда".
	Retryable func(error) bool
}
