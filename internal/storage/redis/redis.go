// internal/storage/redis/redis.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultPrefix   = "lp-sniper"
	streamMaxLength = 100000
)

// Store keeps the portfolio in a hash (field = token id) and the journal in a stream.
type Store struct {
	rdb          *redis.Client
	logger       *zap.Logger
	keyPortfolio string
	keyTrades    string
	chanTrades   string
	ownsClient   bool
}

var (
	_ storage.SnapshotStore = (*Store)(nil)
	_ storage.TradeJournal  = (*Store)(nil)
)

// New оборачивает готовый клиент. Пустой префикс заменяется на DefaultPrefix.
func New(rdb *redis.Client, prefix string, logger *zap.Logger) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		rdb:          rdb,
		logger:       logger.Named("redis"),
		keyPortfolio: prefix + ":portfolio",
		keyTrades:    prefix + ":trades",
		chanTrades:   prefix + ":trades:pub",
	}
}

// Open создаёт клиент и проверяет соединение.
func Open(ctx context.Context, addr, prefix string, logger *zap.Logger) (*Store, error) {
	if addr == "" {
		return nil, domain.Errorf(domain.KindConfig, "redis.Open", "empty address")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	s := New(rdb, prefix, logger)
	s.ownsClient = true
	return s, nil
}

func (s *Store) Load(ctx context.Context) (map[string]domain.Position, error) {
	fields, err := s.rdb.HGetAll(ctx, s.keyPortfolio).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Load: %w", err)
	}
	return decodePositions(fields)
}

// Save заменяет хэш целиком внутри MULTI/EXEC.
func (s *Store) Save(ctx context.Context, positions map[string]domain.Position) error {
	fields, err := encodePositions(positions)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyPortfolio)
	if len(fields) > 0 {
		pipe.HSet(ctx, s.keyPortfolio, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis.Save: %w", err)
	}
	return nil
}

// Append кладёт запись в stream и публикует её для подписчиков.
func (s *Store) Append(ctx context.Context, rec domain.TradeRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trade record: %w", err)
	}

	_, err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.keyTrades,
		MaxLen: streamMaxLength,
		Approx: true,
		Values: map[string]any{
			"id":      rec.ID,
			"side":    string(rec.Side),
			"token":   rec.Token,
			"success": rec.Success,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis.Append: %w", err)
	}

	if err := s.rdb.Publish(ctx, s.chanTrades, payload).Err(); err != nil {
		s.logger.Warn("Trade publish failed", zap.Error(err))
	}
	return nil
}

func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.rdb.Close()
}

func encodePositions(positions map[string]domain.Position) (map[string]any, error) {
	fields := make(map[string]any, len(positions))
	for token, p := range positions {
		p.TokenID = token
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode position %s: %w", token, err)
		}
		fields[token] = string(b)
	}
	return fields, nil
}

func decodePositions(fields map[string]string) (map[string]domain.Position, error) {
	out := make(map[string]domain.Position, len(fields))
	for token, raw := range fields {
		var p domain.Position
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, domain.E(domain.KindMalformed, "redis.Load", fmt.Errorf("position %s: %w", token, err))
		}
		p.TokenID = token
		out[token] = p
	}
	return out, nil
}
