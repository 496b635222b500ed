// internal/blockchain/solbc/rpc/client.go
package rpc

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// NewClient создает новый экземпляр NodeClient
func NewClient(url string) (*NodeClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("empty RPC url")
	}
	return &NodeClient{
		Client:  solanarpc.New(url),
		URL:     url,
		metrics: &metrics{},
	}, nil
}

// GetMetrics возвращает текущие метрики узла
func (c *NodeClient) GetMetrics() (uint64, uint64, time.Duration) {
	c.metrics.mutex.RLock()
	defer c.metrics.mutex.RUnlock()

	return atomic.LoadUint64(&c.metrics.successCount),
		atomic.LoadUint64(&c.metrics.errorCount),
		c.metrics.latency
}

// MarkDown выводит узел из ротации на время cooldown
func (c *NodeClient) MarkDown(cooldown time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.downUntil = time.Now().Add(cooldown)
}

// IsActive возвращает текущий статус активности узла
func (c *NodeClient) IsActive() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return !time.Now().Before(c.downUntil)
}

func (c *NodeClient) downSince() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.downUntil
}

// UpdateMetrics обновляет метрики узла
func (c *NodeClient) UpdateMetrics(success bool, latency time.Duration) {
	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	if success {
		atomic.AddUint64(&c.metrics.successCount, 1)
	} else {
		atomic.AddUint64(&c.metrics.errorCount, 1)
	}

	if c.metrics.latency == 0 {
		c.metrics.latency = latency
		return
	}
	c.metrics.latency = (c.metrics.latency + latency) / 2
}
