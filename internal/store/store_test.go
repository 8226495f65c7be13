package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "mtf-trader/internal/errors"
	"mtf-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoad_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Load(context.Background(), "EURUSD", models.TimeframeH4)
	if !apperrors.Is(err, apperrors.ErrStateNotFound) {
		t.Fatalf("err = %v, want ErrStateNotFound", err)
	}
}

func TestLoad_CorruptStateLabel(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `
		INSERT INTO symbol_state (symbol, bias_timeframe, entry_timeframe, state, updated_at)
		VALUES ('EURUSD', 'H4', 'M15', 'BOGUS_STATE', ?)
	`, time.Now().UTC())
	if err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	_, err = st.Load(ctx, "EURUSD", models.TimeframeH4)
	if !apperrors.Is(err, apperrors.ErrPersistenceCorrupt) {
		t.Fatalf("err = %v, want ErrPersistenceCorrupt", err)
	}
}

func TestLoad_CorruptDetailJSON(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `
		INSERT INTO symbol_state (symbol, bias_timeframe, entry_timeframe, state, bias_details, updated_at)
		VALUES ('EURUSD', 'H4', 'M15', 'WATCHING_FOR_ENTRY', '{not json', ?)
	`, time.Now().UTC())
	if err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	_, err = st.Load(ctx, "EURUSD", models.TimeframeH4)
	if !apperrors.Is(err, apperrors.ErrPersistenceCorrupt) {
		t.Fatalf("err = %v, want ErrPersistenceCorrupt", err)
	}
}

func TestLoad_InvariantViolationIsCorrupt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// WATCHING_FOR_ENTRY with no bias details violates the presence invariant.
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO symbol_state (symbol, bias_timeframe, entry_timeframe, state, updated_at)
		VALUES ('EURUSD', 'H4', 'M15', 'WATCHING_FOR_ENTRY', ?)
	`, time.Now().UTC())
	if err != nil {
		t.Fatalf("seeding invalid row: %v", err)
	}

	_, err = st.Load(ctx, "EURUSD", models.TimeframeH4)
	if !apperrors.Is(err, apperrors.ErrPersistenceCorrupt) {
		t.Fatalf("err = %v, want ErrPersistenceCorrupt", err)
	}
}

func TestSave_RejectsInvalidRecord(t *testing.T) {
	st := newTestStore(t)

	rec := models.NewSymbolState("EURUSD", models.TimeframeH4, models.TimeframeM15)
	rec.State = models.StateInTrade // IN_TRADE with no trade details

	if err := st.Save(context.Background(), rec); err == nil {
		t.Fatal("expected save of invalid record to fail")
	}
}

func TestSave_ReplacesExistingRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rec := models.NewSymbolState("EURUSD", models.TimeframeH4, models.TimeframeM15)
	rec.UpdatedAt = now
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	bias := models.BiasDetails{Direction: models.DirectionBuy, PullbackLevel: 1.104, StopLoss: 1.1025,
		TakeProfit1: 1.106, TakeProfit2: 1.108, TakeProfit3: 1.110}
	if err := rec.BeginWatching(bias, now.Add(time.Minute)); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("replacing save: %v", err)
	}

	loaded, err := st.Load(ctx, "EURUSD", models.TimeframeH4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.State != models.StateWatchingForEntry {
		t.Errorf("state = %s, want WATCHING_FOR_ENTRY", loaded.State)
	}
	if loaded.Bias == nil || loaded.Bias.Direction != models.DirectionBuy {
		t.Error("expected replaced record to carry bias details")
	}
}

func TestSignalLog_AppendAndReadBack(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 8, 1, 0, 0, time.UTC)

	bias := &models.BiasDetails{Direction: models.DirectionSell, PullbackLevel: 1.096, StopLoss: 1.0975,
		TakeProfit1: 1.094, TakeProfit2: 1.092, TakeProfit3: 1.090}

	recs := []SignalRecord{
		{Timestamp: base, Symbol: "EURUSD", Timeframe: models.TimeframeH4,
			State: models.StateWatchingForEntry, Bias: bias},
		{Timestamp: base.Add(time.Hour), Symbol: "EURUSD", Timeframe: models.TimeframeH4,
			State: models.StateInTrade, Bias: bias,
			Trade: &models.TradeDetails{BiasDetails: *bias, EntryPrice: 1.0955}},
	}
	for _, rec := range recs {
		if err := st.AppendSignal(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := st.GetSignals(ctx, "EURUSD", models.TimeframeH4)
	if err != nil {
		t.Fatalf("get signals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].State != models.StateWatchingForEntry || got[1].State != models.StateInTrade {
		t.Errorf("records out of order: %s, %s", got[0].State, got[1].State)
	}
	if got[1].Trade == nil || got[1].Trade.EntryPrice != 1.0955 {
		t.Errorf("trade details lost: %+v", got[1].Trade)
	}
}

func TestMemoryStore_MatchesContract(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.Load(ctx, "EURUSD", models.TimeframeH4); !apperrors.Is(err, apperrors.ErrStateNotFound) {
		t.Fatalf("err = %v, want ErrStateNotFound", err)
	}

	rec := models.NewSymbolState("EURUSD", models.TimeframeH4, models.TimeframeM15)
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := st.Load(ctx, "EURUSD", models.TimeframeH4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Mutating the loaded copy must not leak into the stored record.
	loaded.State = models.StateInTrade
	again, err := st.Load(ctx, "EURUSD", models.TimeframeH4)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.State != models.StateHunting {
		t.Error("stored record mutated through a loaded copy")
	}
}
