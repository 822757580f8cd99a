package alerts

import (
	"fmt"

	"trade-journal/internal/models"
	"trade-journal/internal/stats"
)

// Thresholds of the periodic detectors.
const (
	DisciplineWindow       = 20
	HighDisciplineScore    = 75.0
	LowDisciplineScore     = 50.0
	LowWinRate             = 40.0
	HighProfitFactor       = 1.5
	UnderusedMinTrades     = 5
	UnderusedMinAvgR       = 1.5
	UnderusedMaxShare      = 0.2
	WeekdayMinTrades       = 5
	BreakevenWindow        = 10
	BreakevenRate          = 0.3
	RiskRewardWindow       = 20
	RiskRewardMinSamples   = 10
	RiskRewardMinAvgPlanRR = 1.0
)

// PeriodicDetectors returns the detectors evaluated every few live trades.
func PeriodicDetectors() []Detector {
	return []Detector{
		NewDetector("discipline_performance", detectDisciplinePerformance),
		NewDetector("setup_underused", detectSetupUnderused),
		NewDetector("weekday", detectWeekday),
		NewDetector("breakeven_rut", detectBreakevenRut),
		NewDetector("low_risk_reward", detectLowRiskReward),
	}
}

func summarize(trades []*models.Trade) stats.Summary {
	values := make([]models.Trade, len(trades))
	for i, t := range trades {
		values[i] = *t
	}
	return stats.Summarize(values, 0, nil)
}

// detectDisciplinePerformance flags a mismatch between discipline and
// results over the last DisciplineWindow closed trades.
func detectDisciplinePerformance(in Input) (*models.Alert, error) {
	closed := closedTrades(in.History())
	if len(closed) < DisciplineWindow {
		return nil, nil
	}
	sum := summarize(lastN(closed, DisciplineWindow))
	meta := map[string]interface{}{
		"avg_score":     sum.AvgScore,
		"win_rate":      sum.WinRate,
		"profit_factor": sum.ProfitFactor,
	}
	switch {
	case sum.AvgScore >= HighDisciplineScore && sum.WinRate < LowWinRate:
		return &models.Alert{
			Category: models.AlertDisciplinePerformance,
			Severity: models.SeverityInfo,
			Message: fmt.Sprintf("Discipline is high (avg score %.0f) but only %.0f%% of the last %d trades won. Review the edge of your setups.",
				sum.AvgScore, sum.WinRate, DisciplineWindow),
			Metadata: meta,
		}, nil
	case sum.AvgScore < LowDisciplineScore && float64(sum.ProfitFactor) >= HighProfitFactor:
		return &models.Alert{
			Category: models.AlertDisciplinePerformance,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("Profitable (profit factor %.2f) despite a low discipline score of %.0f. Results may not be repeatable.",
				float64(sum.ProfitFactor), sum.AvgScore),
			Metadata: meta,
		}, nil
	}
	return nil, nil
}

// detectSetupUnderused reports the best-performing strategy that accounts for
// few of the closed trades.
func detectSetupUnderused(in Input) (*models.Alert, error) {
	closed := closedTrades(in.History())
	if len(closed) == 0 {
		return nil, nil
	}
	buckets := make(map[string][]*models.Trade)
	for _, t := range closed {
		if t.StrategyName != "" {
			buckets[t.StrategyName] = append(buckets[t.StrategyName], t)
		}
	}

	var best string
	var bestR, bestShare float64
	for _, name := range sortedKeys(buckets) {
		trades := buckets[name]
		if len(trades) < UnderusedMinTrades {
			continue
		}
		share := float64(len(trades)) / float64(len(closed))
		avgR := summarize(trades).AvgR
		if avgR >= UnderusedMinAvgR && share < UnderusedMaxShare && (best == "" || avgR > bestR) {
			best, bestR, bestShare = name, avgR, share
		}
	}
	if best == "" {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertSetupUnderused,
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("%q averages %.2fR but makes up only %.0f%% of your trades. Consider trading it more.",
			best, bestR, bestShare*100),
		Metadata: map[string]interface{}{"strategy": best, "avg_r": bestR, "share": bestShare},
	}, nil
}

// detectWeekday reports the weekday with the worst net P/L among those that
// lost more than one average losing trade of the whole history.
func detectWeekday(in Input) (*models.Alert, error) {
	closed := closedTrades(in.History())
	threshold := -summarize(closed).AvgLoss
	buckets := make(map[string][]*models.Trade)
	for _, t := range closed {
		day := stats.ByWeekday(t)
		buckets[day] = append(buckets[day], t)
	}

	var worst string
	var worstSum stats.Summary
	for _, day := range sortedKeys(buckets) {
		trades := buckets[day]
		if len(trades) < WeekdayMinTrades {
			continue
		}
		sum := summarize(trades)
		if sum.NetPnL < 0 && sum.NetPnL < threshold && (worst == "" || sum.NetPnL < worstSum.NetPnL) {
			worst, worstSum = day, sum
		}
	}
	if worst == "" {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertWeekday,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("%s is your weakest day: %.2f net over %d trades with a %.0f%% win rate.",
			worst, worstSum.NetPnL, worstSum.Closed, worstSum.WinRate),
		Metadata: map[string]interface{}{"weekday": worst, "net_pnl": worstSum.NetPnL, "win_rate": worstSum.WinRate},
	}, nil
}

// detectBreakevenRut fires when breakeven exits dominate recent trades.
func detectBreakevenRut(in Input) (*models.Alert, error) {
	closed := closedTrades(in.History())
	if len(closed) < BreakevenWindow {
		return nil, nil
	}
	var be int
	for _, t := range lastN(closed, BreakevenWindow) {
		if t.Auto.Result == models.ResultBE {
			be++
		}
	}
	rate := float64(be) / BreakevenWindow
	if rate < BreakevenRate {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertBreakevenRut,
		Severity: models.SeverityInfo,
		Message:  fmt.Sprintf("%d of your last %d trades closed at breakeven. Stops may be moved too early.", be, BreakevenWindow),
		Metadata: map[string]interface{}{"breakeven_rate": rate},
	}, nil
}

// detectLowRiskReward fires when recent trades are planned with a reward
// smaller than their risk.
func detectLowRiskReward(in Input) (*models.Alert, error) {
	var planned []*models.Trade
	for _, t := range lastN(closedTrades(in.History()), RiskRewardWindow) {
		if t.Auto.PlannedRR > 0 {
			planned = append(planned, t)
		}
	}
	if len(planned) < RiskRewardMinSamples {
		return nil, nil
	}
	var total float64
	for _, t := range planned {
		total += t.Auto.PlannedRR
	}
	avg := total / float64(len(planned))
	if avg >= RiskRewardMinAvgPlanRR {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertLowRiskReward,
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("Recent trades plan an average R:R of %.2f. Targets are smaller than the risk taken.", avg),
		Metadata: map[string]interface{}{"avg_planned_rr": avg},
	}, nil
}
