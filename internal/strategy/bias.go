// Package strategy implements the bias and entry-confirmation decision rules.
// All functions here are pure: no I/O, no mutable state.
package strategy

import (
	"math"

	"mtf-trader/internal/models"
)

// GenerateBias turns a gated classifier signal plus the latest annotated bar
// into a trade plan.
//
// A HOLD signal yields a hold plan. A directional signal contradicting the
// trend EMA is vetoed outright: BUY below the trend filter and SELL above it
// are discarded no matter how confident the classifier was. Otherwise the
// risk ladder is anchored at the fast EMA (the pullback level) and scaled by
// the ATR using the configured multipliers. All levels are rounded to the
// instrument's price precision.
func GenerateBias(sig models.Signal, bar models.Candle, trendEMA, fastEMA, atr float64,
	risk models.RiskMultipliers, digits int) models.TradePlan {

	dir, ok := sig.Direction()
	if !ok {
		return models.TradePlan{Status: models.PlanHold}
	}

	if dir == models.DirectionBuy && bar.Close < trendEMA {
		return models.TradePlan{Status: models.PlanVeto}
	}
	if dir == models.DirectionSell && bar.Close > trendEMA {
		return models.TradePlan{Status: models.PlanVeto}
	}

	side := 1.0
	if dir == models.DirectionSell {
		side = -1.0
	}

	bias := models.BiasDetails{
		Direction:     dir,
		PullbackLevel: roundTo(fastEMA, digits),
		StopLoss:      roundTo(fastEMA-side*risk.StopLoss*atr, digits),
		TakeProfit1:   roundTo(fastEMA+side*risk.TakeProfit1*atr, digits),
		TakeProfit2:   roundTo(fastEMA+side*risk.TakeProfit2*atr, digits),
		TakeProfit3:   roundTo(fastEMA+side*risk.TakeProfit3*atr, digits),
	}

	return models.TradePlan{Status: models.PlanSuccess, Bias: &bias}
}

// roundTo rounds a price to the given number of decimal places.
func roundTo(v float64, digits int) float64 {
	mul := math.Pow(10, float64(digits))
	return math.Round(v*mul) / mul
}
