// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// NewPool создает пул из списка URL. Пустые и невалидные URL пропускаются.
func NewPool(urls []string, logger *zap.Logger) (*Pool, error) {
	clients := make([]*NodeClient, 0, len(urls))
	for _, url := range urls {
		client, err := NewClient(url)
		if err != nil {
			logger.Warn("Skipping RPC node", zap.String("url", url), zap.Error(err))
			continue
		}
		clients = append(clients, client)
	}
	if len(clients) == 0 {
		return nil, ErrNoActiveClients
	}

	return &Pool{
		Clients:    clients,
		Logger:     logger.Named("rpc-pool"),
		CurrIndex:  len(clients) - 1,
		MaxTries:   MaxRetries,
		RetryDelay: RetryDelay,
		Cooldown:   DefaultCooldown,
	}, nil
}

// GetNextClient возвращает следующий активный клиент из пула.
// Если активных узлов нет, возвращается узел, который раньше всех вернется в ротацию.
func (p *Pool) GetNextClient() *NodeClient {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()

	if len(p.Clients) == 0 {
		return nil
	}

	for i := 0; i < len(p.Clients); i++ {
		p.CurrIndex = (p.CurrIndex + 1) % len(p.Clients)
		if p.Clients[p.CurrIndex].IsActive() {
			return p.Clients[p.CurrIndex]
		}
	}

	best := p.Clients[0]
	for _, c := range p.Clients[1:] {
		if c.downSince().Before(best.downSince()) {
			best = c
		}
	}
	return best
}

// HasActiveClients проверяет наличие активных клиентов в пуле
func (p *Pool) HasActiveClients() bool {
	for _, client := range p.Clients {
		if client.IsActive() {
			return true
		}
	}
	return false
}

// ExecuteWithRetry выполняет операцию, переключаясь между узлами при ошибках.
func (p *Pool) ExecuteWithRetry(ctx context.Context, method string, operation func(*NodeClient) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.RetryDelay
	policy.MaxInterval = p.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		p.Logger.Debug("Retrying RPC call",
			zap.String("method", method),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	tries := p.MaxTries
	if tries == 0 {
		tries = MaxRetries
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		client := p.GetNextClient()
		if client == nil {
			return struct{}{}, backoff.Permanent(ErrNoActiveClients)
		}

		start := time.Now()
		err := operation(client)
		client.UpdateMetrics(err == nil, time.Since(start))
		if err == nil {
			return struct{}{}, nil
		}

		wrapped := NewError(err, client.URL, method)
		if ctx.Err() != nil || (p.Retryable != nil && !p.Retryable(err)) {
			return struct{}{}, backoff.Permanent(wrapped)
		}
		client.MarkDown(p.Cooldown)
		return struct{}{}, wrapped
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(notify))

	return err
}
