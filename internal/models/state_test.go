package models

import (
	"testing"
	"time"
)

func testBias() BiasDetails {
	return BiasDetails{
		Direction:     DirectionBuy,
		PullbackLevel: 1.10400,
		StopLoss:      1.10250,
		TakeProfit1:   1.10600,
		TakeProfit2:   1.10800,
		TakeProfit3:   1.11000,
	}
}

func TestSymbolState_FullCycle(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 1, 0, 0, time.UTC)
	s := NewSymbolState("EURUSD", TimeframeH4, TimeframeM15)

	if s.State != StateHunting {
		t.Fatalf("bootstrap state = %s, want HUNTING", s.State)
	}
	if err := s.Valid(); err != nil {
		t.Fatalf("bootstrap record invalid: %v", err)
	}

	if err := s.BeginWatching(testBias(), now); err != nil {
		t.Fatalf("BeginWatching: %v", err)
	}
	if s.State != StateWatchingForEntry || s.Bias == nil {
		t.Fatal("expected WATCHING_FOR_ENTRY with bias details")
	}
	if err := s.Valid(); err != nil {
		t.Fatalf("watching record invalid: %v", err)
	}

	if err := s.BeginTrade(1.10380, now.Add(time.Hour)); err != nil {
		t.Fatalf("BeginTrade: %v", err)
	}
	if s.State != StateInTrade || s.Trade == nil {
		t.Fatal("expected IN_TRADE with trade details")
	}
	if s.Trade.EntryPrice != 1.10380 {
		t.Errorf("entry price = %v, want 1.10380", s.Trade.EntryPrice)
	}
	if s.Trade.Direction != DirectionBuy {
		t.Errorf("trade inherits bias direction, got %s", s.Trade.Direction)
	}
	if err := s.Valid(); err != nil {
		t.Fatalf("in-trade record invalid: %v", err)
	}

	if err := s.Reset(now.Add(2 * time.Hour)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.State != StateHunting || s.Bias != nil || s.Trade != nil {
		t.Fatal("reset must return to a bare HUNTING record")
	}
}

func TestSymbolState_IllegalTransitions(t *testing.T) {
	now := time.Now().UTC()

	s := NewSymbolState("EURUSD", TimeframeH4, TimeframeM15)
	if err := s.BeginTrade(1.1, now); err == nil {
		t.Error("BeginTrade from HUNTING must fail")
	}
	if err := s.Reset(now); err == nil {
		t.Error("Reset from HUNTING must fail")
	}

	if err := s.BeginWatching(testBias(), now); err != nil {
		t.Fatalf("BeginWatching: %v", err)
	}
	if err := s.BeginWatching(testBias(), now); err == nil {
		t.Error("BeginWatching from WATCHING_FOR_ENTRY must fail")
	}
	if err := s.Reset(now); err == nil {
		t.Error("Reset from WATCHING_FOR_ENTRY must fail")
	}

	if err := s.BeginTrade(1.1, now); err != nil {
		t.Fatalf("BeginTrade: %v", err)
	}
	if err := s.BeginTrade(1.1, now); err == nil {
		t.Error("BeginTrade from IN_TRADE must fail")
	}
	if err := s.BeginWatching(testBias(), now); err == nil {
		t.Error("BeginWatching from IN_TRADE must fail")
	}
}

func TestParseTradeState(t *testing.T) {
	for _, valid := range []string{"HUNTING", "WATCHING_FOR_ENTRY", "IN_TRADE"} {
		if _, err := ParseTradeState(valid); err != nil {
			t.Errorf("ParseTradeState(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseTradeState("hunting"); err == nil {
		t.Error("persisted labels are case-sensitive")
	}
	if _, err := ParseTradeState("CLOSED"); err == nil {
		t.Error("unknown label must fail")
	}
}

func TestParseTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"H4":   TimeframeH4,
		"h1":   TimeframeH1,
		" m15": TimeframeM15,
	}
	for in, want := range cases {
		got, err := ParseTimeframe(in)
		if err != nil {
			t.Errorf("ParseTimeframe(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTimeframe(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseTimeframe("D1"); err == nil {
		t.Error("unsupported timeframe must fail")
	}
}

func TestRiskMultipliers_Validate(t *testing.T) {
	if err := DefaultRiskMultipliers().Validate(); err != nil {
		t.Errorf("default multipliers invalid: %v", err)
	}

	bad := RiskMultipliers{StopLoss: 1.5, TakeProfit1: 4, TakeProfit2: 2, TakeProfit3: 6}
	if err := bad.Validate(); err == nil {
		t.Error("non-increasing take profits must fail validation")
	}

	bad = RiskMultipliers{StopLoss: 0, TakeProfit1: 2, TakeProfit2: 4, TakeProfit3: 6}
	if err := bad.Validate(); err == nil {
		t.Error("zero stop-loss multiplier must fail validation")
	}
}

func TestSignal_Direction(t *testing.T) {
	if _, ok := SignalHold.Direction(); ok {
		t.Error("HOLD has no direction")
	}
	if dir, ok := SignalBuy.Direction(); !ok || dir != DirectionBuy {
		t.Errorf("SignalBuy.Direction() = %s, %v", dir, ok)
	}
	if dir, ok := SignalSell.Direction(); !ok || dir != DirectionSell {
		t.Errorf("SignalSell.Direction() = %s, %v", dir, ok)
	}
}
