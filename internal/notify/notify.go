// Package notify provides notification functionality for the trading application.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mtf-trader/internal/config"
	"mtf-trader/internal/models"
)

// Notifier defines the interface for sending strategy notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendBiasAlert(ctx context.Context, symbol string, tf models.Timeframe, bias models.BiasDetails) error
	SendEntryAlert(ctx context.Context, symbol string, trade models.TradeDetails) error
	SendTradeClosed(ctx context.Context, symbol string) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBias  NotificationType = "bias"
	NotificationTrade NotificationType = "trade"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
	}

	if mn.level == "" {
		mn.level = LevelAll
	}

	// Add enabled channels
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationTrade
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendBiasAlert sends a new-bias notification.
func (mn *MultiNotifier) SendBiasAlert(ctx context.Context, symbol string, tf models.Timeframe, bias models.BiasDetails) error {
	emoji := "📈"
	if bias.Direction == models.DirectionSell {
		emoji = "📉"
	}

	title := fmt.Sprintf("%s New %s Bias: %s", emoji, bias.Direction, symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nTimeframe: %s\nDirection: %s\nPullback Level: %.5f\nStop Loss: %.5f\nTP1: %.5f\nTP2: %.5f\nTP3: %.5f",
		symbol, tf, bias.Direction,
		bias.PullbackLevel, bias.StopLoss,
		bias.TakeProfit1, bias.TakeProfit2, bias.TakeProfit3,
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationBias,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":         symbol,
			"timeframe":      string(tf),
			"direction":      string(bias.Direction),
			"pullback_level": bias.PullbackLevel,
			"stop_loss":      bias.StopLoss,
		},
	})
}

// SendEntryAlert sends a confirmed-entry notification.
func (mn *MultiNotifier) SendEntryAlert(ctx context.Context, symbol string, trade models.TradeDetails) error {
	title := fmt.Sprintf("🔔 Entry Confirmed: %s %s", trade.Direction, symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nDirection: %s\nEntry: %.5f\nStop Loss: %.5f\nTP1: %.5f\nTP2: %.5f\nTP3: %.5f",
		symbol, trade.Direction,
		trade.EntryPrice, trade.StopLoss,
		trade.TakeProfit1, trade.TakeProfit2, trade.TakeProfit3,
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"direction":   string(trade.Direction),
			"entry_price": trade.EntryPrice,
			"stop_loss":   trade.StopLoss,
		},
	})
}

// SendTradeClosed sends a trade-closed notification.
func (mn *MultiNotifier) SendTradeClosed(ctx context.Context, symbol string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   fmt.Sprintf("✅ Trade Closed: %s", symbol),
		Message: fmt.Sprintf("Position on %s is closed. Resuming bias hunting.", symbol),
		Data: map[string]interface{}{
			"symbol": symbol,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	title := "❌ Error Occurred"
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// NoOpNotifier is a notifier that does nothing (for testing or disabled notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendBiasAlert does nothing.
func (n *NoOpNotifier) SendBiasAlert(ctx context.Context, symbol string, tf models.Timeframe, bias models.BiasDetails) error {
	return nil
}

// SendEntryAlert does nothing.
func (n *NoOpNotifier) SendEntryAlert(ctx context.Context, symbol string, trade models.TradeDetails) error {
	return nil
}

// SendTradeClosed does nothing.
func (n *NoOpNotifier) SendTradeClosed(ctx context.Context, symbol string) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
