package store

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s, err := NewWithDB(db, log)
	require.NoError(t, err)
	return s
}

func candle(symbol, interval string, ts int64, close float64) models.Candle {
	return models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		Timestamp: ts,
		Open:      close - 0.001,
		High:      close + 0.002,
		Low:       close - 0.002,
		Close:     close,
		Volume:    10,
	}
}

func TestUpsertBatchIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []models.Candle{
		candle("EURUSD", "1m", 1704110400, 1.1),
		candle("EURUSD", "1m", 1704110460, 1.2),
	}

	n, err := s.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same batch again: same net contents, no duplicates.
	n, err = s.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := s.Query(ctx, "EURUSD", "1m", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestUpsertBatchOverwritesOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []models.Candle{candle("EURUSD", "1m", 1704110400, 1.1)})
	require.NoError(t, err)

	updated := candle("EURUSD", "1m", 1704110400, 1.5)
	updated.Volume = 99
	_, err = s.UpsertBatch(ctx, []models.Candle{updated})
	require.NoError(t, err)

	out, err := s.Query(ctx, "EURUSD", "1m", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.5, out[0].Close)
	assert.Equal(t, 99.0, out[0].Volume)
}

func TestUpsertBatchNormalizesSymbolCase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []models.Candle{candle("eurusd", "1m", 1704110400, 1.1)})
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, []models.Candle{candle("EURUSD", "1m", 1704110400, 1.2)})
	require.NoError(t, err)

	out, err := s.Query(ctx, "eurusd", "1m", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "EURUSD", out[0].Symbol)
	assert.Equal(t, 1.2, out[0].Close)
}

func TestQueryOrderingAndBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	_, err := s.UpsertBatch(ctx, []models.Candle{
		candle("EURUSD", "1m", 300, 1.3),
		candle("EURUSD", "1m", 60, 1.1),
		candle("EURUSD", "1m", 180, 1.2),
	})
	require.NoError(t, err)

	out, err := s.Query(ctx, "EURUSD", "1m", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(60), out[0].Timestamp)
	assert.Equal(t, int64(180), out[1].Timestamp)
	assert.Equal(t, int64(300), out[2].Timestamp)

	// Bounds are inclusive.
	start, end := int64(60), int64(180)
	out, err = s.Query(ctx, "EURUSD", "1m", &start, &end)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Half-open range.
	out, err = s.Query(ctx, "EURUSD", "1m", &end, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Other interval is a disjoint series.
	out, err = s.Query(ctx, "EURUSD", "5m", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCoverageFastAndFallbackAgree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []models.Candle{
		candle("EURUSD", "1m", 60, 1.1),
		candle("EURUSD", "1m", 120, 1.2),
		candle("EURUSD", "5m", 0, 1.2),
		candle("USDJPY", "1m", 300, 150.1),
	})
	require.NoError(t, err)

	fast, err := s.coverageAggregate(ctx)
	require.NoError(t, err)
	fallback, err := s.coverageFallback(ctx)
	require.NoError(t, err)

	assert.Equal(t, fast, fallback)

	require.Len(t, fast, 3)
	assert.Equal(t, models.Coverage{
		Symbol:         "EURUSD",
		Interval:       "1m",
		Count:          2,
		FirstTimestamp: 60,
		LastTimestamp:  120,
	}, fast[0])
}

func TestCoverageEmptyCache(t *testing.T) {
	s := newTestStore(t)

	cov, err := s.Coverage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cov)

	fallback, err := s.coverageFallback(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fallback)
}

func TestUnconfiguredStore(t *testing.T) {
	log := logrus.New()
	s, err := New(config.Cache{}, log)
	require.NoError(t, err)

	assert.False(t, s.Available())

	_, err = s.Query(context.Background(), "EURUSD", "1m", nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.UpsertBatch(context.Background(), []models.Candle{candle("EURUSD", "1m", 60, 1.1)})
	assert.ErrorIs(t, err, ErrUnavailable)

	// Coverage degrades to an empty report instead of erroring.
	cov, err := s.Coverage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cov)
}
