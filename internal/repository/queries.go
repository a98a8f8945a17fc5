package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tradesim/types"
)

type assetRow struct {
	ID        int32
	Ticker    string
	Name      string
	Type      string
	CreatedAt *time.Time
}

type candleRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

type aggregatesParams struct {
	TimeBucket string
	AssetID    int32
	StartTime  *time.Time
	EndTime    *time.Time
}

const getAssetByTickerQuery = `
SELECT id, ticker, name, type, created_at
FROM assets
WHERE ticker = $1`

const getAggregatesQuery = `
SELECT time_bucket($1::interval, time) AS bucket,
       asset_id,
       first(open, time)  AS open,
       max(high)          AS high,
       min(low)           AS low,
       last(close, time)  AS close,
       sum(volume)        AS volume
FROM candles
WHERE asset_id = $2 AND time >= $3 AND time < $4
GROUP BY bucket, asset_id
ORDER BY bucket`

// queries is the pgx-backed implementation of the repository interfaces.
type queries struct {
	pool *pgxpool.Pool
}

func (q *queries) getAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var a assetRow
	err := q.pool.QueryRow(ctx, getAssetByTickerQuery, ticker).
		Scan(&a.ID, &a.Ticker, &a.Name, &a.Type, &a.CreatedAt)
	return a, err
}

func (q *queries) getAggregates(ctx context.Context, arg aggregatesParams) ([]candleRow, error) {
	rows, err := q.pool.Query(ctx, getAggregatesQuery,
		arg.TimeBucket, arg.AssetID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (candleRow, error) {
		var c candleRow
		err := row.Scan(&c.Bucket, &c.AssetID, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		return c, err
	})
}

var _ assetsRepository = (*queries)(nil)
var _ candlesRepository = (*queries)(nil)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
}
