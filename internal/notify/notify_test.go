package notify

import (
	"context"
	"errors"
	"testing"

	"mtf-trader/internal/config"
	"mtf-trader/internal/models"
)

// recordingChannel captures every delivered notification.
type recordingChannel struct {
	sent []Notification
	fail bool
}

func (r *recordingChannel) Name() string    { return "recording" }
func (r *recordingChannel) IsEnabled() bool { return true }
func (r *recordingChannel) Send(ctx context.Context, n Notification) error {
	if r.fail {
		return errors.New("channel down")
	}
	r.sent = append(r.sent, n)
	return nil
}

func newTestNotifier(level string) (*MultiNotifier, *recordingChannel) {
	mn := NewMultiNotifier(&config.NotificationConfig{Level: level})
	ch := &recordingChannel{}
	mn.AddChannel(ch)
	return mn, ch
}

func testBias() models.BiasDetails {
	return models.BiasDetails{
		Direction:     models.DirectionBuy,
		PullbackLevel: 1.10400,
		StopLoss:      1.10250,
		TakeProfit1:   1.10600,
		TakeProfit2:   1.10800,
		TakeProfit3:   1.11000,
	}
}

func TestMultiNotifier_LevelAll(t *testing.T) {
	mn, ch := newTestNotifier("all")
	ctx := context.Background()

	mn.SendBiasAlert(ctx, "EURUSD", models.TimeframeH4, testBias())
	mn.SendEntryAlert(ctx, "EURUSD", models.TradeDetails{BiasDetails: testBias(), EntryPrice: 1.1038})
	mn.SendTradeClosed(ctx, "EURUSD")
	mn.SendError(ctx, errors.New("boom"), "EURUSD")

	if len(ch.sent) != 4 {
		t.Fatalf("delivered %d notifications, want 4", len(ch.sent))
	}
	wantTypes := []NotificationType{NotificationBias, NotificationTrade, NotificationTrade, NotificationError}
	for i, n := range ch.sent {
		if n.Type != wantTypes[i] {
			t.Errorf("notification %d type = %s, want %s", i, n.Type, wantTypes[i])
		}
		if n.Timestamp.IsZero() {
			t.Errorf("notification %d has no timestamp", i)
		}
	}
}

func TestMultiNotifier_LevelTradesOnly(t *testing.T) {
	mn, ch := newTestNotifier("trades_only")
	ctx := context.Background()

	mn.SendBiasAlert(ctx, "EURUSD", models.TimeframeH4, testBias())
	mn.SendEntryAlert(ctx, "EURUSD", models.TradeDetails{BiasDetails: testBias(), EntryPrice: 1.1038})
	mn.SendTradeClosed(ctx, "EURUSD")
	mn.SendError(ctx, errors.New("boom"), "EURUSD")

	if len(ch.sent) != 2 {
		t.Fatalf("delivered %d notifications, want 2 trade alerts", len(ch.sent))
	}
	for _, n := range ch.sent {
		if n.Type != NotificationTrade {
			t.Errorf("type = %s, want trade", n.Type)
		}
	}
}

func TestMultiNotifier_LevelErrorsOnly(t *testing.T) {
	mn, ch := newTestNotifier("errors_only")
	ctx := context.Background()

	mn.SendBiasAlert(ctx, "EURUSD", models.TimeframeH4, testBias())
	mn.SendEntryAlert(ctx, "EURUSD", models.TradeDetails{BiasDetails: testBias(), EntryPrice: 1.1038})
	mn.SendError(ctx, errors.New("boom"), "EURUSD")

	if len(ch.sent) != 1 {
		t.Fatalf("delivered %d notifications, want 1 error alert", len(ch.sent))
	}
	if ch.sent[0].Type != NotificationError {
		t.Errorf("type = %s, want error", ch.sent[0].Type)
	}
}

func TestMultiNotifier_FailingChannelDoesNotBlockOthers(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{Level: "all"})
	bad := &recordingChannel{fail: true}
	good := &recordingChannel{}
	mn.AddChannel(bad)
	mn.AddChannel(good)

	err := mn.SendTradeClosed(context.Background(), "EURUSD")
	if err == nil {
		t.Error("expected aggregated error from failing channel")
	}
	if len(good.sent) != 1 {
		t.Errorf("healthy channel delivered %d, want 1", len(good.sent))
	}
}

func TestNewMultiNotifier_DisabledChannelsExcluded(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{
		Level:    "all",
		Webhook:  config.WebhookConfig{Enabled: false, URL: "http://example.invalid"},
		Telegram: config.TelegramConfig{Enabled: false},
	})
	if len(mn.channels) != 0 {
		t.Errorf("got %d channels, want 0 when all disabled", len(mn.channels))
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := escapeHTML("a<b>&c"); got != "a&lt;b&gt;&amp;c" {
		t.Errorf("escapeHTML = %q", got)
	}
}
