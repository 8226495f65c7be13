// Package models provides domain models for the trading application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe represents a chart aggregation period.
type Timeframe string

const (
	TimeframeH4  Timeframe = "H4"
	TimeframeH1  Timeframe = "H1"
	TimeframeM15 Timeframe = "M15"
)

// ParseTimeframe parses a timeframe label, accepting any casing.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(strings.ToUpper(strings.TrimSpace(s))) {
	case TimeframeH4:
		return TimeframeH4, nil
	case TimeframeH1:
		return TimeframeH1, nil
	case TimeframeM15:
		return TimeframeM15, nil
	}
	return "", fmt.Errorf("unknown timeframe: %q", s)
}

// Duration returns the wall-clock length of one bar of this timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeH1:
		return time.Hour
	case TimeframeM15:
		return 15 * time.Minute
	}
	return 0
}

// Direction represents the side of a trade bias.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Signal is the discrete output of the classifier gate.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Direction maps a non-HOLD signal to a trade direction.
func (s Signal) Direction() (Direction, bool) {
	switch s {
	case SignalBuy:
		return DirectionBuy, true
	case SignalSell:
		return DirectionSell, true
	}
	return "", false
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool { return c.Close > c.Open }

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool { return c.Close < c.Open }

// BiasDetails holds the directional hypothesis and its risk ladder.
type BiasDetails struct {
	Direction     Direction `json:"bias"`
	PullbackLevel float64   `json:"pullback_level"`
	StopLoss      float64   `json:"sl"`
	TakeProfit1   float64   `json:"tp1"`
	TakeProfit2   float64   `json:"tp2"`
	TakeProfit3   float64   `json:"tp3"`
}

// TradeDetails extends BiasDetails with the confirmed entry price.
type TradeDetails struct {
	BiasDetails
	EntryPrice float64 `json:"entry"`
}

// PlanStatus is the outcome class of a bias evaluation.
type PlanStatus string

const (
	PlanHold    PlanStatus = "hold"
	PlanVeto    PlanStatus = "veto"
	PlanSuccess PlanStatus = "success"
)

// TradePlan is the transient output of the bias engine. Bias is set iff
// Status is PlanSuccess.
type TradePlan struct {
	Status PlanStatus
	Bias   *BiasDetails
}

// RiskMultipliers are the ATR multiples anchoring the risk ladder.
type RiskMultipliers struct {
	StopLoss    float64 `mapstructure:"stop_loss"`
	TakeProfit1 float64 `mapstructure:"take_profit_1"`
	TakeProfit2 float64 `mapstructure:"take_profit_2"`
	TakeProfit3 float64 `mapstructure:"take_profit_3"`
}

// DefaultRiskMultipliers returns the standard 1.5/2/4/6 ladder.
func DefaultRiskMultipliers() RiskMultipliers {
	return RiskMultipliers{
		StopLoss:    1.5,
		TakeProfit1: 2,
		TakeProfit2: 4,
		TakeProfit3: 6,
	}
}

// Validate checks that the multipliers produce an ordered ladder.
func (r RiskMultipliers) Validate() error {
	if r.StopLoss <= 0 {
		return fmt.Errorf("stop_loss multiplier must be positive, got %v", r.StopLoss)
	}
	if r.TakeProfit1 <= 0 {
		return fmt.Errorf("take_profit_1 multiplier must be positive, got %v", r.TakeProfit1)
	}
	if r.TakeProfit1 >= r.TakeProfit2 || r.TakeProfit2 >= r.TakeProfit3 {
		return fmt.Errorf("take-profit multipliers must be strictly increasing: %v, %v, %v",
			r.TakeProfit1, r.TakeProfit2, r.TakeProfit3)
	}
	return nil
}
