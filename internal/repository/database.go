// Package repository is the Postgres/TimescaleDB bar store. It resolves
// tickers to assets and serves time-bucketed OHLCV aggregates as the
// simulator's candle type.
package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrIntervalNotSupported = errors.New("timeframe not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoCandles            = errors.New("no candles found in datasource")
)

type assetsRepository interface {
	getAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}

type candlesRepository interface {
	getAggregates(ctx context.Context, arg aggregatesParams) ([]candleRow, error)
}

// Database holds the connection pool behind narrow query interfaces so tests
// can swap the Postgres side out.
type Database struct {
	assets  assetsRepository
	candles candlesRepository
	conn    *pgxpool.Pool
}

// NewDatabase connects to dbURL, registers shopspring decimal codecs on every
// connection and verifies connectivity with a ping.
func NewDatabase(ctx context.Context, dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Database{}, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return Database{}, err
	}

	q := &queries{pool: conn}
	return Database{assets: q, candles: q, conn: conn}, nil
}

// Close releases the connection pool.
func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
