package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mtf-trader/internal/models"
	"mtf-trader/internal/notify"
	"mtf-trader/internal/scheduler"
	"mtf-trader/internal/store"
	"mtf-trader/internal/terminal"
	"mtf-trader/internal/trade"
)

// newRunCmd creates the command that starts the strategy loop.
func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the strategy loop",
		Long: `Start the poll loop that evaluates every configured symbol.

The loop runs until interrupted. A data-feed health check gates startup:
if the terminal bridge is unreachable the process exits non-zero instead
of silently polling a dead feed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := terminal.NewClient(terminal.ClientConfig{
				BaseURL: app.Config.Feed.BridgeURL,
				Timeout: time.Duration(app.Config.Feed.TimeoutSeconds) * time.Second,
			}, app.Logger)

			pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx); err != nil {
				return fmt.Errorf("terminal bridge unreachable: %w", err)
			}
			app.Logger.Info().Str("bridge", app.Config.Feed.BridgeURL).Msg("Terminal bridge connected")

			st, err := store.NewSQLiteStore(app.Config.Database.Path)
			if err != nil {
				return fmt.Errorf("opening state store: %w", err)
			}
			defer st.Close()

			var notifier notify.Notifier = notify.NewNoOpNotifier()
			if app.Config.Notifications.Enabled {
				notifier = notify.NewMultiNotifier(&app.Config.Notifications)
			}

			trades := trade.NewManager(client, st, notifier, app.Logger)

			sched, err := scheduler.NewScheduler(app.Config, client, st, st, trades, notifier, app.Logger)
			if err != nil {
				return fmt.Errorf("building scheduler: %w", err)
			}
			defer sched.Close()

			if err := sched.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

// newStateCmd creates the command that prints persisted symbol states.
func newStateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show persisted symbol states",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(app.Config.Database.Path)
			if err != nil {
				return fmt.Errorf("opening state store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			for _, sc := range app.Config.Strategies {
				biasTF, err := models.ParseTimeframe(sc.BiasTimeframe)
				if err != nil {
					return err
				}
				rec, err := st.Load(ctx, sc.Symbol, biasTF)
				if err != nil {
					fmt.Printf("%-10s %-4s  (no state: %v)\n", sc.Symbol, biasTF, err)
					continue
				}
				line := fmt.Sprintf("%-10s %-4s  %-20s updated %s",
					rec.Symbol, rec.BiasTimeframe, rec.State,
					rec.UpdatedAt.Format(time.RFC3339))
				if rec.Bias != nil {
					line += fmt.Sprintf("  %s pullback=%.5f sl=%.5f",
						rec.Bias.Direction, rec.Bias.PullbackLevel, rec.Bias.StopLoss)
				}
				if rec.Trade != nil {
					line += fmt.Sprintf(" entry=%.5f", rec.Trade.EntryPrice)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

// newSignalsCmd creates the command that prints the signal audit log.
func newSignalsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "signals [symbol]",
		Short: "Show the signal audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(app.Config.Database.Path)
			if err != nil {
				return fmt.Errorf("opening state store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			for _, sc := range app.Config.Strategies {
				if len(args) == 1 && args[0] != sc.Symbol {
					continue
				}
				biasTF, err := models.ParseTimeframe(sc.BiasTimeframe)
				if err != nil {
					return err
				}
				recs, err := st.GetSignals(ctx, sc.Symbol, biasTF)
				if err != nil {
					return err
				}
				for _, rec := range recs {
					line := fmt.Sprintf("%s  %-10s %-4s  %-20s",
						rec.Timestamp.Format(time.RFC3339), rec.Symbol, rec.Timeframe, rec.State)
					if rec.Bias != nil {
						line += fmt.Sprintf("  %s sl=%.5f tp1=%.5f",
							rec.Bias.Direction, rec.Bias.StopLoss, rec.Bias.TakeProfit1)
					}
					if rec.Trade != nil {
						line += fmt.Sprintf(" entry=%.5f", rec.Trade.EntryPrice)
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}
