package aggregate

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider7r/trading-journal-sub002/models"
)

func minuteCandle(ts int64, o, h, l, c, v float64) models.Candle {
	return models.Candle{
		Symbol:    "EURUSD",
		Interval:  "1m",
		Timestamp: ts,
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
	}
}

func TestResampleFiveMinuteBucket(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	input := []models.Candle{
		minuteCandle(base, 1.1000, 1.1010, 1.0990, 1.1005, 100),
		minuteCandle(base+60, 1.1005, 1.1020, 1.1000, 1.1015, 150),
	}

	out := Resample(input, 300, "5m")

	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, "EURUSD", c.Symbol)
	assert.Equal(t, "5m", c.Interval)
	assert.Equal(t, base, c.Timestamp)
	assert.Equal(t, 1.1000, c.Open)
	assert.Equal(t, 1.1020, c.High)
	assert.Equal(t, 1.0990, c.Low)
	assert.Equal(t, 1.1015, c.Close)
	assert.Equal(t, 250.0, c.Volume)
}

func TestResampleUnorderedInput(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	// Members arrive out of order; open/close still come from the
	// earliest/latest members by timestamp.
	input := []models.Candle{
		minuteCandle(base+240, 2.0, 2.5, 1.9, 2.4, 10),
		minuteCandle(base, 1.0, 1.5, 0.9, 1.4, 10),
		minuteCandle(base+120, 1.4, 1.8, 1.3, 1.7, 10),
	}

	out := Resample(input, 300, "5m")

	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Open)
	assert.Equal(t, 2.4, out[0].Close)
	assert.Equal(t, 2.5, out[0].High)
	assert.Equal(t, 0.9, out[0].Low)
	assert.Equal(t, 30.0, out[0].Volume)
}

func TestResampleSingleMemberBucket(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 2, 0, 0, time.UTC).Unix()
	out := Resample([]models.Candle{minuteCandle(base, 1.1, 1.2, 1.0, 1.15, 42)}, 300, "5m")

	require.Len(t, out, 1)
	assert.Equal(t, models.AlignTimestamp(base, 300), out[0].Timestamp)
	assert.Equal(t, 1.1, out[0].Open)
	assert.Equal(t, 1.2, out[0].High)
	assert.Equal(t, 1.0, out[0].Low)
	assert.Equal(t, 1.15, out[0].Close)
	assert.Equal(t, 42.0, out[0].Volume)
}

func TestResampleOutputSortedAscending(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	var input []models.Candle
	// Three buckets fed in reverse.
	for i := 9; i >= 0; i-- {
		input = append(input, minuteCandle(base+int64(i)*60, 1, 1, 1, 1, 1))
	}

	out := Resample(input, 300, "5m")

	require.Len(t, out, 2)
	assert.True(t, sort.SliceIsSorted(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	}))
	for _, c := range out {
		assert.Zero(t, c.Timestamp%300)
	}
}

func TestResampleEmptyInput(t *testing.T) {
	assert.Empty(t, Resample(nil, 300, "5m"))
}

func TestResampleHourly(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).Unix()
	var input []models.Candle
	for i := 0; i < 60; i++ {
		input = append(input, minuteCandle(base+int64(i)*60, 1, 1, 1, 1, 1))
	}

	out := Resample(input, 3600, "1h")

	require.Len(t, out, 1)
	assert.Equal(t, base, out[0].Timestamp)
	assert.Equal(t, 60.0, out[0].Volume)
	assert.Equal(t, "1h", out[0].Interval)
}

func TestGroupReduce(t *testing.T) {
	counts := GroupReduce([]int{1, 2, 3, 4, 5, 6},
		func(n int) bool { return n%2 == 0 },
		func(n int) int { return 1 },
		func(acc, n int) int { return acc + 1 },
	)

	assert.Equal(t, 3, counts[true])
	assert.Equal(t, 3, counts[false])
}
