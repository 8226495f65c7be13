// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"mtf-trader/internal/models"
)

// StateStore defines durable per-symbol state persistence. Each
// (symbol, bias timeframe) pair owns an independent record; Save is atomic
// with respect to a concurrent Load of the same key.
type StateStore interface {
	// Load returns the state record for a symbol, or ErrStateNotFound when
	// the symbol has never been evaluated. Callers treat NotFound as a
	// freshly initialized HUNTING record.
	Load(ctx context.Context, symbol string, biasTF models.Timeframe) (*models.SymbolState, error)

	// Save writes the full record, replacing any previous version.
	Save(ctx context.Context, state *models.SymbolState) error

	// AppendSignal appends one transition record to the audit log.
	AppendSignal(ctx context.Context, rec SignalRecord) error

	// GetSignals returns the audit log for a symbol, oldest first.
	GetSignals(ctx context.Context, symbol string, biasTF models.Timeframe) ([]SignalRecord, error)

	Close() error
}

// CandleCache stores fetched bars for audit and post-hoc analysis.
type CandleCache interface {
	SaveCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error)
}

// SignalRecord is one append-only audit entry, written on every transition
// into WATCHING_FOR_ENTRY or IN_TRADE.
type SignalRecord struct {
	Timestamp time.Time
	Symbol    string
	Timeframe models.Timeframe
	State     models.TradeState
	Bias      *models.BiasDetails
	Trade     *models.TradeDetails
}
