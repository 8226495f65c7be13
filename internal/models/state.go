package models

import (
	"fmt"
	"time"
)

// TradeState is the lifecycle phase of a symbol's strategy.
type TradeState string

const (
	StateHunting          TradeState = "HUNTING"
	StateWatchingForEntry TradeState = "WATCHING_FOR_ENTRY"
	StateInTrade          TradeState = "IN_TRADE"
)

// ParseTradeState parses a persisted state label.
func ParseTradeState(s string) (TradeState, error) {
	switch TradeState(s) {
	case StateHunting, StateWatchingForEntry, StateInTrade:
		return TradeState(s), nil
	}
	return "", fmt.Errorf("unknown trade state: %q", s)
}

// SymbolState is the durable record for one (symbol, bias timeframe) pair.
// It is the sole source of truth for which evaluation cycle is legal.
//
// Invariants: Bias is nil iff State is HUNTING; Trade is non-nil iff State
// is IN_TRADE. Transitions are strictly cyclic:
// HUNTING -> WATCHING_FOR_ENTRY -> IN_TRADE -> HUNTING.
type SymbolState struct {
	Symbol         string
	BiasTimeframe  Timeframe
	EntryTimeframe Timeframe
	State          TradeState
	Bias           *BiasDetails
	Trade          *TradeDetails
	UpdatedAt      time.Time
}

// NewSymbolState returns the bootstrap HUNTING record for a symbol.
func NewSymbolState(symbol string, biasTF, entryTF Timeframe) *SymbolState {
	return &SymbolState{
		Symbol:         symbol,
		BiasTimeframe:  biasTF,
		EntryTimeframe: entryTF,
		State:          StateHunting,
	}
}

// BeginWatching transitions HUNTING -> WATCHING_FOR_ENTRY with the given bias.
func (s *SymbolState) BeginWatching(bias BiasDetails, now time.Time) error {
	if s.State != StateHunting {
		return fmt.Errorf("cannot begin watching %s: state is %s, want %s",
			s.Symbol, s.State, StateHunting)
	}
	b := bias
	s.State = StateWatchingForEntry
	s.Bias = &b
	s.Trade = nil
	s.UpdatedAt = now
	return nil
}

// BeginTrade transitions WATCHING_FOR_ENTRY -> IN_TRADE at the given entry price.
func (s *SymbolState) BeginTrade(entryPrice float64, now time.Time) error {
	if s.State != StateWatchingForEntry {
		return fmt.Errorf("cannot begin trade %s: state is %s, want %s",
			s.Symbol, s.State, StateWatchingForEntry)
	}
	if s.Bias == nil {
		return fmt.Errorf("cannot begin trade %s: no bias recorded", s.Symbol)
	}
	s.State = StateInTrade
	s.Trade = &TradeDetails{BiasDetails: *s.Bias, EntryPrice: entryPrice}
	s.UpdatedAt = now
	return nil
}

// Reset transitions IN_TRADE -> HUNTING, clearing bias and trade details.
func (s *SymbolState) Reset(now time.Time) error {
	if s.State != StateInTrade {
		return fmt.Errorf("cannot reset %s: state is %s, want %s",
			s.Symbol, s.State, StateInTrade)
	}
	s.State = StateHunting
	s.Bias = nil
	s.Trade = nil
	s.UpdatedAt = now
	return nil
}

// Valid checks the presence invariants for the current state.
func (s *SymbolState) Valid() error {
	switch s.State {
	case StateHunting:
		if s.Bias != nil || s.Trade != nil {
			return fmt.Errorf("%s: HUNTING state must carry no details", s.Symbol)
		}
	case StateWatchingForEntry:
		if s.Bias == nil {
			return fmt.Errorf("%s: WATCHING_FOR_ENTRY state requires bias details", s.Symbol)
		}
		if s.Trade != nil {
			return fmt.Errorf("%s: WATCHING_FOR_ENTRY state must not carry trade details", s.Symbol)
		}
	case StateInTrade:
		if s.Trade == nil {
			return fmt.Errorf("%s: IN_TRADE state requires trade details", s.Symbol)
		}
	default:
		return fmt.Errorf("%s: unknown state %q", s.Symbol, s.State)
	}
	return nil
}
