// Package terminal provides access to the trading terminal's market data and
// position status through a local gateway bridge.
package terminal

import (
	"context"

	"mtf-trader/internal/models"
)

// DataFeed defines the market data contract. Bars are returned oldest to
// newest. For live cycles the most recent (still forming) bar is excluded;
// bootstrap fetches may include it.
type DataFeed interface {
	FetchBars(ctx context.Context, symbol string, tf models.Timeframe, count int, includeForming bool) ([]models.Candle, error)
}

// PositionSource reports whether the terminal holds an open position for a
// symbol.
type PositionSource interface {
	IsOpen(ctx context.Context, symbol string) (bool, error)
}
