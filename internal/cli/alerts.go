package cli

import (
	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
	"trade-journal/internal/store"
)

func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Behavioral alerts",
	}
	cmd.AddCommand(newAlertsRunCmd(app))
	cmd.AddCommand(newAlertsListCmd(app))
	cmd.AddCommand(newAlertsSeenCmd(app))
	rootCmd.AddCommand(cmd)
}

func newAlertsRunCmd(app *App) *cobra.Command {
	var tradeID string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <journal-id>",
		Short: "Run the alert engine",
		Long: `Run the alert engine over a journal. With --trade only that trade is the
trigger; otherwise every live trade is replayed in chronological order.
Alerts already in the journal's log for the same trade and category are not
raised again. Metrics are recomputed first so detectors see current values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			s, j, settings, err := app.loadJournal(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.recompute(ctx, j, settings); err != nil {
				return err
			}

			var triggers []*models.Trade
			if tradeID != "" {
				t, ok := j.Trade(tradeID)
				if !ok {
					return apperrors.NewStoreError("get", "trade", tradeID, apperrors.ErrTradeNotFound)
				}
				triggers = []*models.Trade{t}
			} else {
				triggers = stats.Live(j.Trades)
			}

			var raised []models.Alert
			for _, t := range triggers {
				if err := ctx.Err(); err != nil {
					return err
				}
				found := app.Alerts.Run(j, t)
				// Later triggers must see earlier alerts for de-duplication.
				j.Alerts = append(j.Alerts, found...)
				raised = append(raised, found...)
			}

			if !dryRun && len(raised) > 0 {
				if err := s.AppendAlerts(ctx, j.ID, raised); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				if raised == nil {
					raised = []models.Alert{}
				}
				return output.JSON(raised)
			}
			if len(raised) == 0 {
				output.Dim("No new alerts.")
				return nil
			}
			renderAlerts(output, raised)
			if dryRun {
				output.Dim("Dry run: %d alerts not saved.", len(raised))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tradeID, "trade", "", "only evaluate this trade as the trigger")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print alerts without saving them")
	return cmd
}

func newAlertsListCmd(app *App) *cobra.Command {
	var filter store.AlertFilter
	var category string
	cmd := &cobra.Command{
		Use:   "list <journal-id>",
		Short: "List the alert log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			filter.Category = models.AlertCategory(category)
			list, err := s.ListAlerts(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if list == nil {
					list = []models.Alert{}
				}
				return output.JSON(list)
			}
			if len(list) == 0 {
				output.Dim("No alerts.")
				return nil
			}
			renderAlerts(output, list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&filter.UnseenOnly, "unseen", false, "only alerts not yet seen")
	cmd.Flags().StringVar(&filter.TradeID, "trade", "", "only alerts about this trade")
	cmd.Flags().StringVar(&category, "category", "", "only alerts of this category")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of alerts")
	return cmd
}

func newAlertsSeenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seen <journal-id> [alert-id...]",
		Short: "Mark alerts as seen (all when no ids are given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			n, err := s.MarkSeen(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"marked": n})
			}
			output.Success("Marked %d alerts as seen", n)
			return nil
		},
	}
}

func renderAlerts(output *Output, list []models.Alert) {
	table := NewTable(output, "TIME", "SEVERITY", "CATEGORY", "TRADE", "MESSAGE")
	for _, a := range list {
		msg := a.Message
		if !a.Seen {
			msg = "* " + msg
		}
		table.AddRow(
			FormatDateTime(a.Timestamp),
			output.Severity(a.Severity),
			string(a.Category),
			TruncateString(a.TradeID, 12),
			msg,
		)
	}
	table.Render()
}
