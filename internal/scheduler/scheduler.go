package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"mtf-trader/internal/config"
	apperrors "mtf-trader/internal/errors"
	"mtf-trader/internal/gate"
	"mtf-trader/internal/indicators"
	"mtf-trader/internal/logging"
	"mtf-trader/internal/models"
	"mtf-trader/internal/notify"
	"mtf-trader/internal/store"
	"mtf-trader/internal/strategy"
	"mtf-trader/internal/terminal"
	"mtf-trader/internal/trade"
)

// Classifier converts a feature row into a gated signal.
type Classifier interface {
	Classify(row map[string]float64) (models.Signal, error)
}

// strategyRuntime binds one configured symbol to its parsed timeframes and
// classifier gate.
type strategyRuntime struct {
	cfg     config.StrategyConfig
	biasTF  models.Timeframe
	entryTF models.Timeframe
	gate    Classifier
}

// Scheduler owns the poll loop. Every tick it reconciles open trades for all
// symbols, then dispatches bias or entry cycles for symbols whose timeframe
// boundary just closed. One symbol's failure never blocks another's cycle.
type Scheduler struct {
	cfg        *config.Config
	feed       terminal.DataFeed
	store      store.StateStore
	cache      store.CandleCache
	trades     *trade.Manager
	notifier   notify.Notifier
	annotator  *indicators.Annotator
	clock      Clock
	tracker    *BoundaryTracker
	logger     zerolog.Logger
	strategies []strategyRuntime
	gates      []*gate.Gate
}

// NewScheduler wires the strategy loop from validated configuration. Each
// symbol's classifier artifact is loaded from the models directory as
// <SYMBOL>_<biasTF>.onnx; a missing artifact degrades that symbol to
// always-HOLD rather than failing startup.
func NewScheduler(
	cfg *config.Config,
	feed terminal.DataFeed,
	st store.StateStore,
	cache store.CandleCache,
	trades *trade.Manager,
	notifier notify.Notifier,
	logger zerolog.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cfg:       cfg,
		feed:      feed,
		store:     st,
		cache:     cache,
		trades:    trades,
		notifier:  notifier,
		annotator: indicators.NewAnnotator(0),
		clock:     SystemClock{},
		tracker:   NewBoundaryTracker(),
		logger:    logger,
	}

	for _, sc := range cfg.Strategies {
		biasTF, err := models.ParseTimeframe(sc.BiasTimeframe)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", sc.Symbol, err)
		}
		entryTF, err := models.ParseTimeframe(sc.EntryTimeframe)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", sc.Symbol, err)
		}

		modelPath := filepath.Join(cfg.Models.Dir, fmt.Sprintf("%s_%s.onnx", sc.Symbol, biasTF))
		g := gate.Load(modelPath, cfg.Models.ConfidenceThreshold, logging.WithSymbol(logger, sc.Symbol))
		s.gates = append(s.gates, g)

		s.strategies = append(s.strategies, strategyRuntime{
			cfg:     sc,
			biasTF:  biasTF,
			entryTF: entryTF,
			gate:    g,
		})
	}

	return s, nil
}

// SetClock replaces the wall clock. Intended for tests.
func (s *Scheduler) SetClock(c Clock) { s.clock = c }

// Close releases classifier sessions.
func (s *Scheduler) Close() {
	for _, g := range s.gates {
		g.Close()
	}
}

// Run executes the poll loop until ctx is cancelled. The first pass runs
// every symbol's pending cycle immediately, forming bar included, so a
// restart mid-bar re-establishes context without waiting for the next close.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Int("strategies", len(s.strategies)).
		Int("poll_seconds", s.cfg.Scheduler.PollSeconds).
		Msg("Scheduler starting")

	s.runTick(ctx, s.clock.Now().UTC(), true)

	ticker := time.NewTicker(time.Duration(s.cfg.Scheduler.PollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx, s.clock.Now().UTC(), false)
		}
	}
}

// runTick processes one poll tick at the given instant. On bootstrap every
// timeframe is treated as due and forming bars are admitted.
func (s *Scheduler) runTick(ctx context.Context, now time.Time, bootstrap bool) {
	due := map[models.Timeframe]bool{}
	for _, tf := range []models.Timeframe{models.TimeframeH4, models.TimeframeH1, models.TimeframeM15} {
		if bootstrap {
			due[tf] = true
		} else {
			due[tf] = s.tracker.Fire(tf, now)
		}
	}

	for i := range s.strategies {
		rt := &s.strategies[i]
		if err := s.runSymbol(ctx, rt, now, due, bootstrap); err != nil {
			s.logger.Error().Err(err).
				Str("symbol", rt.cfg.Symbol).
				Msg("Cycle failed, symbol skipped this tick")
			if nerr := s.notifier.SendError(ctx, err, rt.cfg.Symbol); nerr != nil {
				s.logger.Warn().Err(nerr).Msg("Error notification failed")
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// runSymbol runs the lifecycle check and at most one evaluation cycle for a
// symbol.
func (s *Scheduler) runSymbol(ctx context.Context, rt *strategyRuntime, now time.Time, due map[models.Timeframe]bool, bootstrap bool) error {
	state, err := s.loadOrInit(ctx, rt)
	if err != nil {
		return err
	}

	// The position check runs every tick so an externally closed trade frees
	// the symbol before the next bar boundary.
	if state.State == models.StateInTrade {
		if err := s.trades.CheckOpenTrade(ctx, state, now); err != nil {
			return nil // transient; retried next tick
		}
	}

	switch state.State {
	case models.StateHunting:
		if due[rt.biasTF] {
			return s.runBiasCycle(ctx, rt, state, now, bootstrap)
		}
	case models.StateWatchingForEntry:
		if due[rt.entryTF] {
			return s.runEntryCycle(ctx, rt, state, now)
		}
	}
	return nil
}

// loadOrInit loads the durable record for a symbol. A missing record means
// the symbol was never evaluated and starts HUNTING. A corrupt record is
// surfaced loudly, then replaced with a fresh HUNTING record so the symbol
// keeps trading.
func (s *Scheduler) loadOrInit(ctx context.Context, rt *strategyRuntime) (*models.SymbolState, error) {
	state, err := s.store.Load(ctx, rt.cfg.Symbol, rt.biasTF)
	switch {
	case err == nil:
		return state, nil
	case apperrors.Is(err, apperrors.ErrStateNotFound):
		return models.NewSymbolState(rt.cfg.Symbol, rt.biasTF, rt.entryTF), nil
	case apperrors.Is(err, apperrors.ErrPersistenceCorrupt):
		s.logger.Error().Err(err).
			Str("symbol", rt.cfg.Symbol).
			Msg("Persisted state corrupt, discarding and starting over")
		if nerr := s.notifier.SendError(ctx, err, rt.cfg.Symbol+" state corrupt"); nerr != nil {
			s.logger.Warn().Err(nerr).Msg("Error notification failed")
		}
		return models.NewSymbolState(rt.cfg.Symbol, rt.biasTF, rt.entryTF), nil
	default:
		return nil, err
	}
}

// runBiasCycle evaluates the bias timeframe: annotate history, classify the
// latest row, derive the trade plan, and on success transition to
// WATCHING_FOR_ENTRY.
func (s *Scheduler) runBiasCycle(ctx context.Context, rt *strategyRuntime, state *models.SymbolState, now time.Time, includeForming bool) error {
	bars, err := s.feed.FetchBars(ctx, rt.cfg.Symbol, rt.biasTF, s.cfg.Feed.HistoryBars, includeForming)
	if err != nil {
		return err
	}
	s.cacheBars(ctx, rt.cfg.Symbol, rt.biasTF, bars)

	frame, err := s.annotator.Annotate(ctx, bars)
	if err != nil {
		return apperrors.NewDataError("indicators", rt.cfg.Symbol, string(rt.biasTF), "annotating bars", err)
	}
	row := frame.LastRow()

	sig, err := rt.gate.Classify(row)
	if err != nil {
		return err
	}

	plan := strategy.GenerateBias(sig, frame.Last(),
		row[indicators.ColTrendEMA], row[indicators.ColFastEMA], row[indicators.ColATR],
		rt.cfg.Risk, rt.cfg.Digits)

	switch plan.Status {
	case models.PlanHold:
		s.logger.Debug().
			Str("symbol", rt.cfg.Symbol).
			Str("timeframe", string(rt.biasTF)).
			Msg("No directional signal")
		return nil
	case models.PlanVeto:
		s.logger.Info().
			Str("symbol", rt.cfg.Symbol).
			Str("timeframe", string(rt.biasTF)).
			Str("signal", sig.String()).
			Float64("close", frame.Last().Close).
			Float64("trend_ema", row[indicators.ColTrendEMA]).
			Msg("Signal vetoed by trend filter")
		return nil
	}

	if err := state.BeginWatching(*plan.Bias, now); err != nil {
		return err
	}
	if err := s.store.Save(ctx, state); err != nil {
		return err
	}
	if err := s.store.AppendSignal(ctx, store.SignalRecord{
		Timestamp: now,
		Symbol:    state.Symbol,
		Timeframe: state.BiasTimeframe,
		State:     state.State,
		Bias:      state.Bias,
	}); err != nil {
		s.logger.Warn().Err(err).Str("symbol", state.Symbol).Msg("Signal log append failed")
	}

	logging.LogBias(s.logger, state.Symbol, string(rt.biasTF),
		string(plan.Bias.Direction), plan.Bias.PullbackLevel, plan.Bias.StopLoss)
	if err := s.notifier.SendBiasAlert(ctx, state.Symbol, rt.biasTF, *plan.Bias); err != nil {
		s.logger.Warn().Err(err).Str("symbol", state.Symbol).Msg("Bias notification failed")
	}
	return nil
}

// runEntryCycle evaluates the entry timeframe: look for a confirming
// engulfing pattern in the stored bias direction and on confirmation
// transition to IN_TRADE at the last closed price.
func (s *Scheduler) runEntryCycle(ctx context.Context, rt *strategyRuntime, state *models.SymbolState, now time.Time) error {
	bars, err := s.feed.FetchBars(ctx, rt.cfg.Symbol, rt.entryTF, s.cfg.Feed.EntryBars, false)
	if err != nil {
		return err
	}
	s.cacheBars(ctx, rt.cfg.Symbol, rt.entryTF, bars)

	if !strategy.ConfirmEntry(bars, state.Bias.Direction) {
		s.logger.Debug().
			Str("symbol", rt.cfg.Symbol).
			Str("timeframe", string(rt.entryTF)).
			Str("direction", string(state.Bias.Direction)).
			Msg("No entry confirmation")
		return nil
	}

	entryPrice := bars[len(bars)-1].Close
	if err := state.BeginTrade(entryPrice, now); err != nil {
		return err
	}
	if err := s.store.Save(ctx, state); err != nil {
		return err
	}
	if err := s.store.AppendSignal(ctx, store.SignalRecord{
		Timestamp: now,
		Symbol:    state.Symbol,
		Timeframe: state.BiasTimeframe,
		State:     state.State,
		Bias:      state.Bias,
		Trade:     state.Trade,
	}); err != nil {
		s.logger.Warn().Err(err).Str("symbol", state.Symbol).Msg("Signal log append failed")
	}

	logging.LogEntry(s.logger, state.Symbol, string(state.Trade.Direction), entryPrice)
	if err := s.notifier.SendEntryAlert(ctx, state.Symbol, *state.Trade); err != nil {
		s.logger.Warn().Err(err).Str("symbol", state.Symbol).Msg("Entry notification failed")
	}
	return nil
}

// cacheBars persists fetched bars for audit. Cache failures are logged, not
// propagated: caching is best-effort and never blocks a decision.
func (s *Scheduler) cacheBars(ctx context.Context, symbol string, tf models.Timeframe, bars []models.Candle) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveCandles(ctx, symbol, tf, bars); err != nil {
		s.logger.Warn().Err(err).
			Str("symbol", symbol).
			Str("timeframe", string(tf)).
			Msg("Candle cache write failed")
	}
}
