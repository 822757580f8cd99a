package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
	"trade-journal/internal/stats"
)

func addReportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newReportCmd(app))
}

// groupNames lists the breakdowns accepted by --group.
func groupNames() []string {
	names := make([]string, 0, len(stats.KeyFuncs))
	for name := range stats.KeyFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newReportCmd(app *App) *cobra.Command {
	var flags tradeFilterFlags
	var group string
	cmd := &cobra.Command{
		Use:   "report <journal-id>",
		Short: "Aggregate performance report",
		Long: `Summarize the live trades of a journal: win rate, profit factor,
expectancy, streaks, R-multiples, discipline and aggregated tilt.
Use --group to break the summary down by ` + strings.Join(groupNames(), ", ") + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			var key stats.KeyFunc
			if group != "" {
				var ok bool
				if key, ok = stats.KeyFuncs[group]; !ok {
					return fmt.Errorf("unknown group %q (want one of %s)", group, strings.Join(groupNames(), ", "))
				}
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			s, j, settings, err := app.loadJournal(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.recompute(ctx, j, settings); err != nil {
				return err
			}
			selected, err := s.GetTrades(ctx, j.ID, filter)
			if err != nil {
				return err
			}
			trades := pick(j.Trades, selected)

			analyzer := app.analyzer()
			summary := analyzer.Summarize(trades, j.Capital, settings)
			var groups []stats.Group
			if key != nil {
				groups = analyzer.GroupBy(trades, j.Capital, settings, key)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"journal_id": j.ID,
					"summary":    summary,
					"groups":     groups,
				})
			}

			output.Bold("Journal %s  %s", j.ID, j.Name)
			if period := tradePeriod(trades); period != "" {
				output.Dim("%s", period)
			}
			output.Println()
			showSummary(output, summary)
			if key != nil {
				output.Println()
				output.Bold("By %s", group)
				showGroups(output, groups)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "break down by "+strings.Join(groupNames(), "|"))
	return cmd
}

// pick returns the trades of all whose ids appear in selected, in the order
// of selected. Stored trades carry stale metrics; all holds fresh ones.
func pick(all, selected []models.Trade) []models.Trade {
	byID := make(map[string]*models.Trade, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}
	out := make([]models.Trade, 0, len(selected))
	for _, t := range selected {
		if fresh, ok := byID[t.ID]; ok {
			out = append(out, *fresh)
		}
	}
	return out
}

// tradePeriod is the date range covered by the trades' open times.
func tradePeriod(trades []models.Trade) string {
	if len(trades) == 0 {
		return ""
	}
	first, last := trades[0].OpenTime, trades[0].OpenTime
	for _, t := range trades[1:] {
		if t.OpenTime.Before(first) {
			first = t.OpenTime
		}
		if t.OpenTime.After(last) {
			last = t.OpenTime
		}
	}
	return FormatDate(first) + " to " + FormatDate(last)
}

func showSummary(output *Output, s stats.Summary) {
	output.Printf("  Trades:         %d (%d closed, %d open)\n", s.Trades, s.Closed, s.Open)
	output.Printf("  Wins / Losses:  %d / %d (%d breakeven)\n", s.Wins, s.Losses, s.Breakevens)
	output.Printf("  Win rate:       %.1f%%\n", s.WinRate)
	output.Printf("  Net P/L:        %s (%s)\n", output.FormatPnL(s.NetPnL), FormatPercent(s.ReturnPercent))
	output.Printf("  Gross:          %s / -%s\n", FormatMoney(s.GrossProfit), FormatMoney(s.GrossLoss))
	output.Printf("  Profit factor:  %s\n", FormatRatio(s.ProfitFactor))
	output.Printf("  Expectancy:     %s\n", FormatPnL(s.Expectancy))
	output.Printf("  Avg win / loss: %s / %s\n", FormatMoney(s.AvgWin), FormatMoney(s.AvgLoss))
	output.Printf("  Largest:        %s / %s\n", FormatPnL(s.LargestWin), FormatPnL(s.LargestLoss))
	output.Printf("  Streaks:        %d wins, %d losses\n", s.MaxWinStreak, s.MaxLossStreak)
	output.Printf("  R:              total %s, avg %s, planned %s\n", FormatR(s.TotalR), FormatR(s.AvgR), FormatRiskReward(s.AvgPlannedRR))
	output.Printf("  Avg holding:    %s\n", FormatDuration(s.AvgHolding))
	output.Printf("  Avg score:      %.1f\n", s.AvgScore)
	output.Printf("  Tilt:           %s\n", output.Tilt(s.Tilt.FinalTilt))
}

func showGroups(output *Output, groups []stats.Group) {
	if len(groups) == 0 {
		output.Dim("  No trades.")
		return
	}
	table := NewTable(output, "KEY", "TRADES", "WIN %", "NET P/L", "PF", "AVG R", "SCORE", "TILT")
	for _, g := range groups {
		s := g.Summary
		table.AddRow(
			g.Key,
			fmt.Sprintf("%d", s.Trades),
			fmt.Sprintf("%.1f", s.WinRate),
			output.FormatPnL(s.NetPnL),
			FormatRatio(s.ProfitFactor),
			FormatR(s.AvgR),
			fmt.Sprintf("%.1f", s.AvgScore),
			output.Tilt(s.Tilt.FinalTilt),
		)
	}
	table.Render()
}
