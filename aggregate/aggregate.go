package aggregate

import (
	"sort"

	"github.com/spider7r/trading-journal-sub002/models"
)

// GroupReduce partitions items by key and folds each group into an
// accumulator. seed builds the accumulator from the first member of a
// group; fold merges each subsequent member. The status reporter's
// in-process fallback and the timeframe resampler share this.
func GroupReduce[K comparable, T any, A any](items []T, key func(T) K, seed func(T) A, fold func(A, T) A) map[K]A {
	groups := make(map[K]A)
	for _, item := range items {
		k := key(item)
		if acc, ok := groups[k]; ok {
			groups[k] = fold(acc, item)
		} else {
			groups[k] = seed(item)
		}
	}
	return groups
}

// Resample folds candles of one symbol and source interval into coarser
// buckets of bucketSeconds, tagging the output with interval. Within a
// bucket: open of the earliest member, close of the latest, max high,
// min low, summed volume. Output is sorted ascending by timestamp; that
// ordering is a contract for downstream consumers.
func Resample(candles []models.Candle, bucketSeconds int64, interval string) []models.Candle {
	if len(candles) == 0 {
		return nil
	}

	buckets := GroupReduce(candles,
		func(c models.Candle) int64 { return models.AlignTimestamp(c.Timestamp, bucketSeconds) },
		func(c models.Candle) []models.Candle { return []models.Candle{c} },
		func(acc []models.Candle, c models.Candle) []models.Candle { return append(acc, c) },
	)

	out := make([]models.Candle, 0, len(buckets))
	for bucket, members := range buckets {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Timestamp < members[j].Timestamp
		})

		agg := models.Candle{
			Symbol:    members[0].Symbol,
			Interval:  interval,
			Timestamp: bucket,
			Open:      members[0].Open,
			High:      members[0].High,
			Low:       members[0].Low,
			Close:     members[len(members)-1].Close,
		}
		for _, m := range members {
			if m.High > agg.High {
				agg.High = m.High
			}
			if m.Low < agg.Low {
				agg.Low = m.Low
			}
			agg.Volume += m.Volume
		}
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
