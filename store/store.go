package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/spider7r/trading-journal-sub002/aggregate"
	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/models"
)

// ErrUnavailable marks operations attempted against an unconfigured cache.
// It is distinct from an empty query result.
var ErrUnavailable = errors.New("candle cache is not configured")

// Store persists candles keyed by (symbol, interval, timestamp). All writes
// are blind idempotent upserts on that key, so concurrent and repeated
// ingestion of overlapping batches is safe.
type Store struct {
	db  *gorm.DB
	log *logrus.Logger
}

// New connects to the configured cache database. An empty cache URL yields
// a valid unavailable store rather than an error; callers degrade on
// Available() == false.
func New(cfg config.Cache, log *logrus.Logger) (*Store, error) {
	if !cfg.Configured() {
		return &Store{log: log}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to candle cache: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return NewWithDB(db, log)
}

// NewWithDB wraps an already opened gorm connection (tests run this over
// in-memory sqlite) and migrates the schema.
func NewWithDB(db *gorm.DB, log *logrus.Logger) (*Store, error) {
	if err := db.AutoMigrate(&models.Candle{}); err != nil {
		return nil, fmt.Errorf("failed to migrate candle cache: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Available reports whether the cache is reachable and configured.
func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

// UpsertBatch writes one chunk of candles; conflicting keys get their OHLCV
// fields overwritten (last write wins). Callers chunk batches to 500-1000
// rows to respect payload limits.
func (s *Store) UpsertBatch(ctx context.Context, candles []models.Candle) (int, error) {
	if !s.Available() {
		return 0, ErrUnavailable
	}
	if len(candles) == 0 {
		return 0, nil
	}

	rows := make([]models.Candle, len(candles))
	for i, c := range candles {
		c.ID = 0
		c.Symbol = models.NormalizeSymbol(c.Symbol)
		rows[i] = c
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"}, {Name: "interval"}, {Name: "timestamp"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert candle batch: %w", err)
	}
	return len(rows), nil
}

// Query returns candles for a symbol/interval ascending by timestamp.
// start and end are inclusive unix-second bounds; nil leaves the range open
// on that side. A query error is distinct from an empty result.
func (s *Store) Query(ctx context.Context, symbol, interval string, start, end *int64) ([]models.Candle, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	tx := s.db.WithContext(ctx).
		Where(`symbol = ? AND "interval" = ?`, models.NormalizeSymbol(symbol), interval)
	if start != nil {
		tx = tx.Where("timestamp >= ?", *start)
	}
	if end != nil {
		tx = tx.Where("timestamp <= ?", *end)
	}

	var candles []models.Candle
	if err := tx.Order("timestamp ASC").Find(&candles).Error; err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	return candles, nil
}

// Candles is the charting adapter's bar-source shape: a closed inclusive
// range in unix seconds.
func (s *Store) Candles(ctx context.Context, symbol, interval string, from, to int64) ([]models.Candle, error) {
	return s.Query(ctx, symbol, interval, &from, &to)
}

// Coverage reports count and first/last timestamp per (symbol, interval)
// pair. The fast path pushes the aggregation into the database; when that
// primitive is unavailable the fallback fetches the key triples and folds
// them in process. An unconfigured store yields an empty list, not an
// error, so callers can render a "not configured" state.
func (s *Store) Coverage(ctx context.Context) ([]models.Coverage, error) {
	if !s.Available() {
		return []models.Coverage{}, nil
	}

	rows, err := s.coverageAggregate(ctx)
	if err == nil {
		return rows, nil
	}
	s.log.WithError(err).Warn("coverage aggregate query failed, computing in process")
	return s.coverageFallback(ctx)
}

func (s *Store) coverageAggregate(ctx context.Context) ([]models.Coverage, error) {
	rows := []models.Coverage{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			symbol,
			"interval",
			COUNT(*) AS count,
			MIN(timestamp) AS first_timestamp,
			MAX(timestamp) AS last_timestamp
		FROM candles
		GROUP BY symbol, "interval"
		ORDER BY symbol, "interval"
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate coverage: %w", err)
	}
	return rows, nil
}

type seriesKey struct {
	Symbol   string
	Interval string
}

func (s *Store) coverageFallback(ctx context.Context) ([]models.Coverage, error) {
	var keys []models.Candle
	err := s.db.WithContext(ctx).
		Select("symbol", "interval", "timestamp").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candle keys: %w", err)
	}

	groups := aggregate.GroupReduce(keys,
		func(c models.Candle) seriesKey { return seriesKey{c.Symbol, c.Interval} },
		func(c models.Candle) models.Coverage {
			return models.Coverage{
				Symbol:         c.Symbol,
				Interval:       c.Interval,
				Count:          1,
				FirstTimestamp: c.Timestamp,
				LastTimestamp:  c.Timestamp,
			}
		},
		func(acc models.Coverage, c models.Candle) models.Coverage {
			acc.Count++
			if c.Timestamp < acc.FirstTimestamp {
				acc.FirstTimestamp = c.Timestamp
			}
			if c.Timestamp > acc.LastTimestamp {
				acc.LastTimestamp = c.Timestamp
			}
			return acc
		},
	)

	out := make([]models.Coverage, 0, len(groups))
	for _, cov := range groups {
		out = append(out, cov)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Interval < out[j].Interval
	})
	return out, nil
}
