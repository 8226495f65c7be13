// Package trade tracks the lifecycle of open positions.
package trade

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mtf-trader/internal/models"
	"mtf-trader/internal/notify"
	"mtf-trader/internal/store"
	"mtf-trader/internal/terminal"
)

// Manager reconciles persisted IN_TRADE records against the terminal's
// actual positions. It runs every poll tick, independent of bar boundaries,
// so a position closed by stop loss or take profit frees the symbol for the
// next bias cycle within one tick.
type Manager struct {
	positions terminal.PositionSource
	store     store.StateStore
	notifier  notify.Notifier
	logger    zerolog.Logger
}

// NewManager creates a trade lifecycle manager.
func NewManager(positions terminal.PositionSource, st store.StateStore, notifier notify.Notifier, logger zerolog.Logger) *Manager {
	return &Manager{
		positions: positions,
		store:     st,
		notifier:  notifier,
		logger:    logger,
	}
}

// CheckOpenTrade verifies whether a symbol's position is still open. When the
// terminal no longer holds it the record transitions back to HUNTING and is
// persisted. A position query failure leaves the record untouched; the check
// repeats next tick.
func (m *Manager) CheckOpenTrade(ctx context.Context, state *models.SymbolState, now time.Time) error {
	if state.State != models.StateInTrade {
		return nil
	}

	open, err := m.positions.IsOpen(ctx, state.Symbol)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("symbol", state.Symbol).
			Msg("Position check failed, keeping trade state")
		return err
	}
	if open {
		return nil
	}

	m.logger.Info().
		Str("symbol", state.Symbol).
		Msg("Position closed, resuming hunting")

	if err := state.Reset(now); err != nil {
		return err
	}
	if err := m.store.Save(ctx, state); err != nil {
		return err
	}

	if err := m.notifier.SendTradeClosed(ctx, state.Symbol); err != nil {
		m.logger.Warn().Err(err).Str("symbol", state.Symbol).Msg("Trade-closed notification failed")
	}
	return nil
}
