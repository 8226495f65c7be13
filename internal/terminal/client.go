package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apperrors "mtf-trader/internal/errors"
	"mtf-trader/internal/models"
	"mtf-trader/pkg/utils"
)

// Client talks to an MT5 gateway bridge over HTTP/JSON. Every call is
// bounded by the client timeout and retried with backoff; a feed that stays
// down maps to ErrFeedUnavailable so callers can skip the cycle instead of
// blocking the loop.
type Client struct {
	baseURL string
	client  *http.Client
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// ClientConfig holds bridge client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new bridge client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   utils.DefaultRetryConfig(),
		logger:  logger,
	}
}

// barPayload is the bridge's wire format for one bar.
type barPayload struct {
	Time   int64   `json:"time"` // unix seconds, UTC
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"tick_volume"`
}

// Ping verifies the bridge and its terminal connection are reachable.
// Called once at startup; failure is unrecoverable.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Connected bool `json:"connected"`
	}
	if err := c.getJSON(ctx, "/health", nil, &resp); err != nil {
		return apperrors.Wrap(err, "terminal bridge health check")
	}
	if !resp.Connected {
		return apperrors.Wrap(apperrors.ErrFeedUnavailable, "terminal reports no connection")
	}
	return nil
}

// FetchBars fetches up to count bars for a symbol, oldest first. Unless
// includeForming is set, the most recent bar is dropped: on a scheduled run
// it may still be forming and must not feed analysis.
func (c *Client) FetchBars(ctx context.Context, symbol string, tf models.Timeframe, count int, includeForming bool) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("count", strconv.Itoa(count))

	var payload []barPayload
	err := c.getJSON(ctx, "/bars", q, &payload)
	if err != nil {
		return nil, apperrors.NewDataError("bars", symbol, string(tf), "fetching bars", err)
	}
	if len(payload) == 0 {
		return nil, apperrors.NewDataError("bars", symbol, string(tf), "no data returned", apperrors.ErrDataUnavailable)
	}

	candles := make([]models.Candle, len(payload))
	for i, b := range payload {
		candles[i] = models.Candle{
			Timestamp: time.Unix(b.Time, 0).UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	if !includeForming && len(candles) > 0 {
		candles = candles[:len(candles)-1]
		c.logger.Debug().
			Str("symbol", symbol).
			Str("timeframe", string(tf)).
			Msg("Dropped forming bar from scheduled fetch")
	}
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("bars", symbol, string(tf), "only a forming bar available", apperrors.ErrDataUnavailable)
	}

	return candles, nil
}

// IsOpen reports whether the terminal holds an open position for symbol.
func (c *Client) IsOpen(ctx context.Context, symbol string) (bool, error) {
	var resp struct {
		Open bool `json:"open"`
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	if err := c.getJSON(ctx, "/position", q, &resp); err != nil {
		return false, apperrors.NewDataError("position", symbol, "", "querying position", err)
	}
	return resp.Open, nil
}

// getJSON performs a GET with retry and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFeedUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: bridge returned status %d", apperrors.ErrFeedUnavailable, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding bridge response: %w", err)
	}
	return nil
}
