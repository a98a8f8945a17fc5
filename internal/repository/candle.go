package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tradesim/types"
)

// GetCandles returns time-bucketed candles for an asset over [start, end),
// sorted ascending.
func (db *Database) GetCandles(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}

	rows, err := db.candles.getAggregates(ctx, aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		StartTime:  &start,
		EndTime:    &end,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoCandles
	}

	candles := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, types.Candle{
			Ticker:    ticker,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			Interval:  interval,
			Timestamp: *row.Bucket,
		})
	}
	return candles, nil
}
