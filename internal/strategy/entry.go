package strategy

import (
	"mtf-trader/internal/models"
)

// ConfirmEntry evaluates the two most recent bars for an engulfing pattern
// in the bias direction. Fewer than two bars is "not yet confirmable", a
// normal false outcome rather than an error. No other pattern is recognized.
func ConfirmEntry(bars []models.Candle, dir models.Direction) bool {
	if len(bars) < 2 {
		return false
	}

	prev := bars[len(bars)-2]
	last := bars[len(bars)-1]

	switch dir {
	case models.DirectionBuy:
		// Bullish engulfing: latest bar closes up, opens below the prior
		// close and closes above the prior open.
		return last.IsBullish() && last.Open < prev.Close && last.Close > prev.Open
	case models.DirectionSell:
		return last.IsBearish() && last.Open > prev.Close && last.Close < prev.Open
	}
	return false
}
