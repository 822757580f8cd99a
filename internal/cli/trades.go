package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/performance"
	"trade-journal/internal/store"
)

// derivedBatchSize is how many derived blocks are written per transaction.
const derivedBatchSize = 200

func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trades",
		Aliases: []string{"trade"},
		Short:   "Inspect trades and their derived metrics",
	}
	cmd.AddCommand(newTradesListCmd(app))
	cmd.AddCommand(newTradeMetricsCmd(app))
	cmd.AddCommand(newRecomputeCmd(app))
	rootCmd.AddCommand(cmd)
}

// recompute refreshes the derived block of every trade in j in place.
func (a *App) recompute(ctx context.Context, j *models.Journal, settings *models.AppSettings) error {
	derived, err := a.Metrics.RecomputeAll(ctx, j, settings)
	if err != nil {
		return err
	}
	for i := range derived {
		j.Trades[i].Auto = derived[i]
	}
	return nil
}

// tradeFilterFlags registers the shared trade filter flags.
type tradeFilterFlags struct {
	symbol   string
	strategy string
	from     string
	to       string
	limit    int
	missing  bool
}

func (f *tradeFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "only trades in this instrument")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "only trades of this strategy")
	cmd.Flags().StringVar(&f.from, "from", "", "first open date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last open date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of trades")
	cmd.Flags().BoolVar(&f.missing, "missing", false, "include trades marked missing")
}

func (f *tradeFilterFlags) filter() (store.TradeFilter, error) {
	start, err := parseDate(f.from, false)
	if err != nil {
		return store.TradeFilter{}, err
	}
	end, err := parseDate(f.to, true)
	if err != nil {
		return store.TradeFilter{}, err
	}
	return store.TradeFilter{
		Symbol:         f.symbol,
		Strategy:       f.strategy,
		StartDate:      start,
		EndDate:        end,
		IncludeMissing: f.missing,
		Limit:          f.limit,
	}, nil
}

func newTradesListCmd(app *App) *cobra.Command {
	var flags tradeFilterFlags
	cmd := &cobra.Command{
		Use:   "list <journal-id>",
		Short: "List trades with their stored metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			s, err := app.Store()
			if err != nil {
				return err
			}
			trades, err := s.GetTrades(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades found.")
				return nil
			}
			table := NewTable(output, "ID", "OPENED", "SYMBOL", "DIR", "LOT", "RESULT", "NET P/L", "R", "SCORE", "TILT")
			for i := range trades {
				t := &trades[i]
				table.AddRow(
					TruncateString(t.ID, 12),
					FormatDateTime(t.OpenTime),
					t.Symbol,
					string(t.Direction),
					fmt.Sprintf("%.2f", t.LotSize),
					string(t.Auto.Result),
					output.FormatPnL(t.Auto.NetPnL),
					FormatR(t.Auto.RealizedR),
					output.Score(t.Auto.Score),
					output.Tilt(t.Auto.Tilt.FinalTilt),
				)
			}
			table.Render()
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newTradeMetricsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <journal-id> <trade-id>",
		Short: "Compute the derived metrics of one trade",
		Long: `Compute the derived metrics of a trade against the current journal and
settings without saving them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			_, j, settings, err := app.loadJournal(ctx, args[0])
			if err != nil {
				return err
			}
			t, ok := j.Trade(args[1])
			if !ok {
				return apperrors.NewStoreError("get", "trade", args[1], apperrors.ErrTradeNotFound)
			}
			auto := app.Metrics.Compute(ctx, t, j, settings)
			if output.IsJSON() {
				return output.JSON(auto)
			}
			showMetrics(output, t, auto)
			return nil
		},
	}
}

func showMetrics(output *Output, t *models.Trade, a models.AutoCalculated) {
	output.Bold("%s %s %s  (%s)", t.ID, t.Direction, t.Symbol, FormatDateTime(t.OpenTime))
	output.Printf("  Session:      %s\n", a.Session)
	output.Printf("  Zone:         %s\n", a.Zone)
	output.Printf("  Status:       %s / %s / %s\n", a.Status, a.Result, a.Outcome)
	output.Printf("  Holding:      %s\n", a.HoldingTime)
	output.Println()

	output.Printf("  Pips:         %.1f\n", a.Pips)
	output.Printf("  Gross P/L:    %s\n", output.FormatPnL(a.GrossPnL))
	output.Printf("  Costs:        %s (spread %s, commission %s, swap %s)\n",
		FormatMoney(a.Costs.Total), FormatMoney(a.Costs.Spread), FormatMoney(a.Costs.Commission), FormatMoney(a.Costs.Swap))
	output.Printf("  Net P/L:      %s (%s)\n", output.FormatPnL(a.NetPnL), FormatPercent(a.GainPercent))
	output.Println()

	output.Printf("  Risk:         %.1f pips, %s (%.2f%%)\n", a.RiskPips, FormatMoney(a.RiskAmount), a.RiskPercent)
	output.Printf("  Reward:       %.1f pips, planned %s\n", a.RewardPips, FormatRiskReward(a.PlannedRR))
	output.Printf("  Realized:     %s\n", FormatR(a.RealizedR))
	output.Printf("  MFE / MAE:    %.1f / %.1f pips\n", a.MFEPips, a.MAEPips)
	output.Println()

	output.Printf("  Discipline:   %s  %s\n", output.Score(a.Score), a.Score.Remark)
	c := a.Tilt.Components
	output.Printf("  Tilt:         %s (score %.2f, sentiment %.2f, custom %.2f, R %.2f, outcome %.2f, P/L %.2f)\n",
		output.Tilt(a.Tilt.FinalTilt), c.Score, c.Sentiment, c.CustomField, c.RealizedR, c.Outcome, c.PnL)
	if len(a.MatchedSetups) > 0 {
		output.Printf("  Setups:       %s\n", strings.Join(a.MatchedSetups, ", "))
	}
	if a.HighestNewsImpact != "" {
		output.Printf("  News impact:  %s\n", a.HighestNewsImpact)
	}
}

type derivedUpdate struct {
	id   string
	auto models.AutoCalculated
}

func newRecomputeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <journal-id>",
		Short: "Recompute and store the derived metrics of every trade",
		Args:  cobra.ExactArgs(1),
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

			written := 0
			batch := performance.NewBatchProcessor(derivedBatchSize, func(items []derivedUpdate) error {
				derived := make(map[string]models.AutoCalculated, len(items))
				for _, it := range items {
					derived[it.id] = it.auto
				}
				if err := s.UpdateDerived(ctx, j.ID, derived); err != nil {
					return err
				}
				written += len(items)
				return nil
			})
			for i := range j.Trades {
				if err := batch.Add(derivedUpdate{id: j.Trades[i].ID, auto: j.Trades[i].Auto}); err != nil {
					return err
				}
			}
			if err := batch.Flush(); err != nil {
				return err
			}
			lg := logging.FromContext(ctx)
			lg.Info().Str("journal_id", j.ID).Int("updated", written).Msg("Derived metrics stored")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"journal_id": j.ID, "updated": written})
			}
			output.Success("Recomputed %d trades in journal %s", written, j.ID)
			return nil
		},
	}
}
