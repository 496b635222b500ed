// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/rovshanmuradov/lp-sniper/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const migrationLockID = 101

// ErrMigrationInProgress is returned when another process holds the migration lock.
var ErrMigrationInProgress = errors.New("another migration is in progress")

// Store keeps the portfolio snapshot and the trade journal in PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var (
	_ storage.SnapshotStore = (*Store)(nil)
	_ storage.TradeJournal  = (*Store)(nil)
)

// Open подключается к базе и прогоняет миграции.
func Open(dsn string, zapLogger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, domain.Errorf(domain.KindConfig, "postgres.Open", "empty dsn")
	}
	log := zapLogger.Named("postgres")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(log.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Один процесс, немного соединений
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: log}
	if err := s.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations применяет AutoMigrate под advisory lock.
func (s *Store) RunMigrations() error {
	var lockObtained bool
	if err := s.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return ErrMigrationInProgress
	}
	defer s.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	if err := s.db.AutoMigrate(&models.Position{}, &models.Trade{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (map[string]domain.Position, error) {
	var rows []models.Position
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres.Load: %w", err)
	}
	out := make(map[string]domain.Position, len(rows))
	for _, r := range rows {
		out[r.TokenID] = r.Domain()
	}
	return out, nil
}

// Save перезаписывает снимок целиком в одной транзакции.
func (s *Store) Save(ctx context.Context, positions map[string]domain.Position) error {
	rows := make([]models.Position, 0, len(positions))
	for token, p := range positions {
		p.TokenID = token
		rows = append(rows, models.NewPosition(p))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Position{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("postgres.Save: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec domain.TradeRecord) error {
	row := models.NewTrade(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("postgres.Append: %w", err)
	}
	return nil
}

// Trades returns the most recent journal entries for a token.
func (s *Store) Trades(ctx context.Context, token string, limit int) ([]domain.TradeRecord, error) {
	var rows []models.Trade
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		Order("timestamp desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres.Trades: %w", err)
	}
	out := make([]domain.TradeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Domain())
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
