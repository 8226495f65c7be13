package indicators

import (
	"context"
	"fmt"

	"mtf-trader/internal/models"
)

// Column names produced by the standard bias annotator.
const (
	ColTrendEMA = "EMA_50"
	ColFastEMA  = "EMA_21"
	ColATR      = "ATR_14"
)

// Frame is a bar sequence annotated with named derived columns. Columns
// are aligned index-for-index with Candles; positions before an
// indicator's warm-up period hold zero values.
type Frame struct {
	Candles []models.Candle
	Columns map[string][]float64
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Candles) }

// Last returns the most recent bar.
func (f *Frame) Last() models.Candle { return f.Candles[len(f.Candles)-1] }

// Value returns the named column value at index i.
func (f *Frame) Value(name string, i int) (float64, error) {
	col, ok := f.Columns[name]
	if !ok {
		return 0, fmt.Errorf("column %s not present in frame", name)
	}
	if i < 0 || i >= len(col) {
		return 0, fmt.Errorf("column %s: index %d out of range", name, i)
	}
	return col[i], nil
}

// LastRow returns all column values for the most recent bar, keyed by
// column name. Used to build the classifier feature row.
func (f *Frame) LastRow() map[string]float64 {
	row := make(map[string]float64, len(f.Columns)+4)
	last := f.Len() - 1
	for name, col := range f.Columns {
		row[name] = col[last]
	}
	c := f.Last()
	row["open"] = c.Open
	row["high"] = c.High
	row["low"] = c.Low
	row["close"] = c.Close
	row["volume"] = float64(c.Volume)
	return row
}

// Annotator computes a fixed set of derived columns over bar sequences.
type Annotator struct {
	engine *Engine
}

// NewAnnotator creates an annotator with the standard bias-analysis
// indicator set: trend EMA(50), pullback EMA(21), ATR(14).
func NewAnnotator(workers int) *Annotator {
	engine := NewEngine(workers)
	engine.Register(NewEMA(50))
	engine.Register(NewEMA(21))
	engine.Register(NewATR(14))
	return &Annotator{engine: engine}
}

// Annotate computes all registered columns for the given bars. Fails on
// an empty sequence; fails if any indicator lacks sufficient data, since
// a frame missing its trend or volatility column cannot drive a decision.
func (a *Annotator) Annotate(ctx context.Context, candles []models.Candle) (*Frame, error) {
	if len(candles) == 0 {
		return nil, ErrEmptyInput
	}

	columns, err := a.engine.CalculateAll(ctx, candles)
	if err != nil {
		return nil, err
	}
	for _, name := range a.engine.ListIndicators() {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s over %d bars", ErrInsufficientData, name, len(candles))
		}
	}

	return &Frame{Candles: candles, Columns: columns}, nil
}
