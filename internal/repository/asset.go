package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradesim/types"
)

// GetAssetByTicker resolves a ticker to its stored asset.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	asset, err := db.assets.getAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}

	var createdAt time.Time
	if asset.CreatedAt != nil {
		createdAt = *asset.CreatedAt
	}
	return &types.Asset{
		Id:        int(asset.ID),
		Ticker:    asset.Ticker,
		Name:      asset.Name,
		Type:      types.AssetType(asset.Type),
		CreatedAt: createdAt,
	}, nil
}
