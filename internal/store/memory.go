package store

import (
	"context"
	"sync"

	apperrors "mtf-trader/internal/errors"
	"mtf-trader/internal/models"
)

// MemoryStore is an in-memory StateStore for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]*models.SymbolState
	signals map[string][]SignalRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]*models.SymbolState),
		signals: make(map[string][]SignalRecord),
	}
}

func stateKey(symbol string, tf models.Timeframe) string {
	return symbol + "/" + string(tf)
}

// Load returns a copy of the stored record, or ErrStateNotFound.
func (m *MemoryStore) Load(ctx context.Context, symbol string, biasTF models.Timeframe) (*models.SymbolState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[stateKey(symbol, biasTF)]
	if !ok {
		return nil, apperrors.ErrStateNotFound
	}
	return copyState(st), nil
}

// Save stores a copy of the record.
func (m *MemoryStore) Save(ctx context.Context, state *models.SymbolState) error {
	if err := state.Valid(); err != nil {
		return apperrors.NewStateError(state.Symbol, string(state.BiasTimeframe), "refusing to persist invalid record", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[stateKey(state.Symbol, state.BiasTimeframe)] = copyState(state)
	return nil
}

// AppendSignal appends one record to the in-memory audit log.
func (m *MemoryStore) AppendSignal(ctx context.Context, rec SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey(rec.Symbol, rec.Timeframe)
	m.signals[key] = append(m.signals[key], rec)
	return nil
}

// GetSignals returns the audit log for a symbol, oldest first.
func (m *MemoryStore) GetSignals(ctx context.Context, symbol string, biasTF models.Timeframe) ([]SignalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.signals[stateKey(symbol, biasTF)]
	out := make([]SignalRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func copyState(s *models.SymbolState) *models.SymbolState {
	out := *s
	if s.Bias != nil {
		b := *s.Bias
		out.Bias = &b
	}
	if s.Trade != nil {
		t := *s.Trade
		out.Trade = &t
	}
	return &out
}
