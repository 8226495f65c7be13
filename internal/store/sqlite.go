// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "mtf-trader/internal/errors"
	"mtf-trader/internal/models"
)

// SQLiteStore implements StateStore and CandleCache using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One durable record per (symbol, bias timeframe)
	CREATE TABLE IF NOT EXISTS symbol_state (
		symbol TEXT NOT NULL,
		bias_timeframe TEXT NOT NULL,
		entry_timeframe TEXT NOT NULL,
		state TEXT NOT NULL,
		bias_details TEXT,
		trade_details TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (symbol, bias_timeframe)
	);

	-- Append-only audit log of state transitions
	CREATE TABLE IF NOT EXISTS signal_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		bias_timeframe TEXT NOT NULL,
		state TEXT NOT NULL,
		bias_details TEXT,
		trade_details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Candle cache for fetched OHLCV data
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_signal_log_symbol ON signal_log(symbol, bias_timeframe);
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_timeframe ON candles(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_candles_timestamp ON candles(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the state record for a symbol. A missing row maps to
// ErrStateNotFound; a row whose detail JSON cannot be decoded maps to
// ErrPersistenceCorrupt so callers can surface it before falling back.
func (s *SQLiteStore) Load(ctx context.Context, symbol string, biasTF models.Timeframe) (*models.SymbolState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entry_timeframe, state, bias_details, trade_details, updated_at
		FROM symbol_state WHERE symbol = ? AND bias_timeframe = ?
	`, symbol, string(biasTF))

	var entryTF, stateStr string
	var biasJSON, tradeJSON sql.NullString
	var updatedAt time.Time

	if err := row.Scan(&entryTF, &stateStr, &biasJSON, &tradeJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrStateNotFound
		}
		return nil, apperrors.NewStateError(symbol, string(biasTF), "querying state", err)
	}

	state, err := models.ParseTradeState(stateStr)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrPersistenceCorrupt,
			"%s %s: %v", symbol, biasTF, err)
	}

	rec := &models.SymbolState{
		Symbol:         symbol,
		BiasTimeframe:  biasTF,
		EntryTimeframe: models.Timeframe(entryTF),
		State:          state,
		UpdatedAt:      updatedAt,
	}

	if biasJSON.Valid && biasJSON.String != "" {
		var bias models.BiasDetails
		if err := json.Unmarshal([]byte(biasJSON.String), &bias); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrPersistenceCorrupt,
				"%s %s: bias details: %v", symbol, biasTF, err)
		}
		rec.Bias = &bias
	}
	if tradeJSON.Valid && tradeJSON.String != "" {
		var trade models.TradeDetails
		if err := json.Unmarshal([]byte(tradeJSON.String), &trade); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrPersistenceCorrupt,
				"%s %s: trade details: %v", symbol, biasTF, err)
		}
		rec.Trade = &trade
	}

	if err := rec.Valid(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrPersistenceCorrupt, "%v", err)
	}

	return rec, nil
}

// Save writes the full record. INSERT OR REPLACE on the primary key makes
// the write atomic with respect to concurrent readers of the same key.
func (s *SQLiteStore) Save(ctx context.Context, state *models.SymbolState) error {
	if err := state.Valid(); err != nil {
		return apperrors.NewStateError(state.Symbol, string(state.BiasTimeframe), "refusing to persist invalid record", err)
	}

	biasJSON, tradeJSON, err := marshalDetails(state.Bias, state.Trade)
	if err != nil {
		return apperrors.NewStateError(state.Symbol, string(state.BiasTimeframe), "encoding details", err)
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO symbol_state
			(symbol, bias_timeframe, entry_timeframe, state, bias_details, trade_details, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, state.Symbol, string(state.BiasTimeframe), string(state.EntryTimeframe),
		string(state.State), biasJSON, tradeJSON, updatedAt)
	if err != nil {
		return apperrors.NewStateError(state.Symbol, string(state.BiasTimeframe), "saving state", err)
	}
	return nil
}

// AppendSignal appends one transition record to the audit log.
func (s *SQLiteStore) AppendSignal(ctx context.Context, rec SignalRecord) error {
	biasJSON, tradeJSON, err := marshalDetails(rec.Bias, rec.Trade)
	if err != nil {
		return apperrors.NewStateError(rec.Symbol, string(rec.Timeframe), "encoding signal record", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signal_log (timestamp, symbol, bias_timeframe, state, bias_details, trade_details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Timestamp, rec.Symbol, string(rec.Timeframe), string(rec.State), biasJSON, tradeJSON)
	if err != nil {
		return apperrors.NewStateError(rec.Symbol, string(rec.Timeframe), "appending signal", err)
	}
	return nil
}

// GetSignals returns the audit log for a symbol, oldest first.
func (s *SQLiteStore) GetSignals(ctx context.Context, symbol string, biasTF models.Timeframe) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, state, bias_details, trade_details
		FROM signal_log WHERE symbol = ? AND bias_timeframe = ?
		ORDER BY id ASC
	`, symbol, string(biasTF))
	if err != nil {
		return nil, apperrors.NewStateError(symbol, string(biasTF), "querying signal log", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		rec := SignalRecord{Symbol: symbol, Timeframe: biasTF}
		var stateStr string
		var biasJSON, tradeJSON sql.NullString
		if err := rows.Scan(&rec.Timestamp, &stateStr, &biasJSON, &tradeJSON); err != nil {
			return nil, apperrors.NewStateError(symbol, string(biasTF), "scanning signal log", err)
		}
		rec.State = models.TradeState(stateStr)
		if biasJSON.Valid && biasJSON.String != "" {
			var bias models.BiasDetails
			if err := json.Unmarshal([]byte(biasJSON.String), &bias); err == nil {
				rec.Bias = &bias
			}
		}
		if tradeJSON.Valid && tradeJSON.String != "" {
			var trade models.TradeDetails
			if err := json.Unmarshal([]byte(tradeJSON.String), &trade); err == nil {
				rec.Trade = &trade
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveCandles saves candles to the cache.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, string(tf), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCandles retrieves cached candles in [from, to], oldest first.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles WHERE symbol = ? AND timeframe = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC
	`, symbol, string(tf), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// marshalDetails encodes optional detail records as nullable JSON strings.
func marshalDetails(bias *models.BiasDetails, trade *models.TradeDetails) (sql.NullString, sql.NullString, error) {
	var biasJSON, tradeJSON sql.NullString

	if bias != nil {
		data, err := json.Marshal(bias)
		if err != nil {
			return biasJSON, tradeJSON, err
		}
		biasJSON = sql.NullString{String: string(data), Valid: true}
	}
	if trade != nil {
		data, err := json.Marshal(trade)
		if err != nil {
			return biasJSON, tradeJSON, err
		}
		tradeJSON = sql.NullString{String: string(data), Valid: true}
	}
	return biasJSON, tradeJSON, nil
}
