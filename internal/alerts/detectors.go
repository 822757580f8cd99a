package alerts

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"trade-journal/internal/discipline"
	"trade-journal/internal/models"
)

// Thresholds of the per-trade detectors.
const (
	ShortStreak = 3
	LongStreak  = 5

	LargestLossMinLosses = 5

	// EarlyExitShare is the fraction of the reward distance that must remain
	// to the target for a winning exit to count as early.
	EarlyExitShare = 0.25

	BiasMinSamples    = 10
	BiasMinWinRateGap = 20.0 // percentage points

	RiskDriftWindow    = 10
	RiskDriftMinLosses = 3
	RiskDriftHigh      = 1.5
	RiskDriftLow       = 0.5

	ProfitTakingWindow  = 10
	ProfitTakingMinWins = 5
	ProfitTakingAvgR    = 1.2

	OverconfidenceLotFactor = 1.5
)

// PerTradeDetectors returns the detectors evaluated on every trigger.
func PerTradeDetectors() []Detector {
	return []Detector{
		NewDetector("streak", detectStreak),
		NewDetector("largest_loss", detectLargestLoss),
		NewDetector("closed_before_target", detectClosedBeforeTarget),
		NewDetector("bias_conflict", detectBiasConflict),
		NewDetector("risk_drift", detectRiskDrift),
		NewDetector("profit_taking", detectProfitTaking),
		NewDetector("plan_breach", detectPlanBreach),
		NewDetector("overconfidence", detectOverconfidence),
	}
}

func closedTrades(trades []*models.Trade) []*models.Trade {
	out := make([]*models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}

func withOutcome(trades []*models.Trade, o models.Outcome) []*models.Trade {
	var out []*models.Trade
	for _, t := range trades {
		if t.IsClosed() && t.Auto.Outcome == o {
			out = append(out, t)
		}
	}
	return out
}

func lastN(trades []*models.Trade, n int) []*models.Trade {
	if len(trades) > n {
		return trades[len(trades)-n:]
	}
	return trades
}

func isWin(t *models.Trade) bool  { return t.IsClosed() && t.Auto.Outcome == models.OutcomeWin }
func isLoss(t *models.Trade) bool { return t.IsClosed() && t.Auto.Outcome == models.OutcomeLoss }

// detectStreak fires when the run of equal outcomes ending at the trigger
// reaches exactly ShortStreak or LongStreak.
func detectStreak(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !isWin(t) && !isLoss(t) {
		return nil, nil
	}
	count := 1
	for i := len(in.Prior) - 1; i >= 0; i-- {
		p := in.Prior[i]
		if !p.IsClosed() {
			continue
		}
		if p.Auto.Outcome != t.Auto.Outcome {
			break
		}
		count++
	}
	if count != ShortStreak && count != LongStreak {
		return nil, nil
	}

	meta := map[string]interface{}{"streak": count}
	if isWin(t) {
		return &models.Alert{
			Category: models.AlertWinStreak,
			Severity: models.SeveritySuccess,
			Message:  fmt.Sprintf("%d wins in a row. Stick to the plan and avoid sizing up.", count),
			Metadata: meta,
		}, nil
	}
	severity := models.SeverityWarning
	if count >= LongStreak {
		severity = models.SeverityCritical
	}
	return &models.Alert{
		Category: models.AlertLossStreak,
		Severity: severity,
		Message:  fmt.Sprintf("%d losses in a row. Consider pausing before the next trade.", count),
		Metadata: meta,
	}, nil
}

// detectLargestLoss fires when the trigger loses more than any earlier loss.
func detectLargestLoss(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !isLoss(t) {
		return nil, nil
	}
	losses := withOutcome(in.Prior, models.OutcomeLoss)
	if len(losses) < LargestLossMinLosses {
		return nil, nil
	}
	worst := math.Inf(1)
	for _, l := range losses {
		worst = math.Min(worst, l.Auto.NetPnL)
	}
	if t.Auto.NetPnL >= worst {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertLargestLoss,
		Severity: models.SeverityCritical,
		Message:  fmt.Sprintf("Largest loss on record: %.2f (previous worst %.2f).", t.Auto.NetPnL, worst),
		Metadata: map[string]interface{}{"net_pnl": t.Auto.NetPnL, "previous_worst": worst},
	}, nil
}

// detectClosedBeforeTarget fires on a winning manual exit that left at least
// EarlyExitShare of the planned reward on the table.
func detectClosedBeforeTarget(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !isWin(t) || t.ClosePrice == nil || !(t.TakeProfit > 0) || t.Auto.Result == models.ResultTP {
		return nil, nil
	}
	sign := t.Direction.Sign()
	reward := sign * (t.TakeProfit - t.EntryPrice)
	if !(reward > 0) {
		return nil, nil
	}
	remaining := sign * (t.TakeProfit - *t.ClosePrice)
	share := remaining / reward
	if share < EarlyExitShare {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertClosedBeforeTarget,
		Severity: models.SeverityInfo,
		Message:  fmt.Sprintf("Closed %.0f%% short of the target. Let winners reach the plan.", share*100),
		Metadata: map[string]interface{}{"remaining_share": share},
	}, nil
}

// biasOf returns the direction of the bias declared on the highest timeframe
// that carries one: +1 bullish, -1 bearish, 0 none.
func biasOf(t *models.Trade) float64 {
	type declared struct {
		weight float64
		sign   float64
	}
	var best *declared
	timeframes := make([]string, 0, len(t.Analysis))
	for tf := range t.Analysis {
		timeframes = append(timeframes, tf)
	}
	sort.Strings(timeframes)
	for _, tf := range timeframes {
		w := discipline.TimeframeWeight(tf)
		subs := make([]string, 0, len(t.Analysis[tf]))
		for sub := range t.Analysis[tf] {
			if strings.Contains(strings.ToLower(sub), "bias") {
				subs = append(subs, sub)
			}
		}
		sort.Strings(subs)
		for _, sub := range subs {
			for _, sel := range t.Analysis[tf][sub] {
				id := strings.ToLower(sel.OptionID)
				var s float64
				switch {
				case strings.Contains(id, "bull"):
					s = 1
				case strings.Contains(id, "bear"):
					s = -1
				default:
					continue
				}
				if best == nil || w > best.weight {
					best = &declared{weight: w, sign: s}
				}
			}
		}
	}
	if best == nil {
		return 0
	}
	return best.sign
}

// detectBiasConflict fires when the trigger trades against its declared
// higher-timeframe bias and history shows conflicting trades win clearly
// less often than aligned ones.
func detectBiasConflict(in Input) (*models.Alert, error) {
	t := in.Trigger
	bias := biasOf(t)
	if bias == 0 || bias == t.Direction.Sign() {
		return nil, nil
	}

	var aligned, conflicting, alignedWins, conflictingWins int
	for _, p := range closedTrades(in.Prior) {
		b := biasOf(p)
		if b == 0 {
			continue
		}
		win := p.Auto.Outcome == models.OutcomeWin
		if b == p.Direction.Sign() {
			aligned++
			if win {
				alignedWins++
			}
		} else {
			conflicting++
			if win {
				conflictingWins++
			}
		}
	}
	if aligned+conflicting < BiasMinSamples || aligned == 0 || conflicting == 0 {
		return nil, nil
	}
	alignedRate := float64(alignedWins) / float64(aligned) * 100
	conflictRate := float64(conflictingWins) / float64(conflicting) * 100
	if alignedRate-conflictRate < BiasMinWinRateGap {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertBiasConflict,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("Trading against your higher-timeframe bias. Aligned trades win %.0f%%, conflicting ones %.0f%%.",
			alignedRate, conflictRate),
		Metadata: map[string]interface{}{"aligned_win_rate": alignedRate, "conflicting_win_rate": conflictRate},
	}, nil
}

// detectRiskDrift compares the trigger's risk with the average risk of recent
// losses: a loss risking much more, or a win risking much less.
func detectRiskDrift(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !(t.Auto.RiskAmount > 0) || (!isWin(t) && !isLoss(t)) {
		return nil, nil
	}
	var recent []*models.Trade
	for _, l := range withOutcome(in.Prior, models.OutcomeLoss) {
		if l.Auto.RiskAmount > 0 {
			recent = append(recent, l)
		}
	}
	recent = lastN(recent, RiskDriftWindow)
	if len(recent) < RiskDriftMinLosses {
		return nil, nil
	}
	var total float64
	for _, l := range recent {
		total += l.Auto.RiskAmount
	}
	avg := total / float64(len(recent))
	ratio := t.Auto.RiskAmount / avg
	meta := map[string]interface{}{"risk_amount": t.Auto.RiskAmount, "average_loss_risk": avg}

	switch {
	case isLoss(t) && ratio > RiskDriftHigh:
		return &models.Alert{
			Category: models.AlertRiskDrift,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("This loss risked %.1fx your recent average. Keep position risk consistent.", ratio),
			Metadata: meta,
		}, nil
	case isWin(t) && ratio < RiskDriftLow:
		return &models.Alert{
			Category: models.AlertRiskDrift,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("This win risked only %.1fx your recent average. Winners may be undersized.", ratio),
			Metadata: meta,
		}, nil
	}
	return nil, nil
}

// detectProfitTaking fires on a win below 1R when recent wins average under
// ProfitTakingAvgR.
func detectProfitTaking(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !isWin(t) || !(t.Auto.RiskAmount > 0) || t.Auto.RealizedR >= 1 {
		return nil, nil
	}
	var wins []*models.Trade
	for _, w := range withOutcome(in.Prior, models.OutcomeWin) {
		if w.Auto.RiskAmount > 0 {
			wins = append(wins, w)
		}
	}
	wins = lastN(wins, ProfitTakingWindow)
	if len(wins) < ProfitTakingMinWins {
		return nil, nil
	}
	var total float64
	for _, w := range wins {
		total += w.Auto.RealizedR
	}
	avg := total / float64(len(wins))
	if avg >= ProfitTakingAvgR {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertProfitTaking,
		Severity: models.SeverityInfo,
		Message:  fmt.Sprintf("Win of %.2fR; recent wins average %.2fR. You may be taking profits too early.", t.Auto.RealizedR, avg),
		Metadata: map[string]interface{}{"realized_r": t.Auto.RealizedR, "average_win_r": avg},
	}, nil
}

// breachCategories are the remark rules that come from the trading plan.
var breachCategories = map[models.RuleCategory]bool{
	models.RulePlan:       true,
	models.RuleRisk:       true,
	models.RuleTiming:     true,
	models.RuleInstrument: true,
	models.RuleRiskReward: true,
}

// detectPlanBreach surfaces the trading-plan remarks the scorer left on the
// trigger.
func detectPlanBreach(in Input) (*models.Alert, error) {
	var msgs []string
	for _, r := range in.Trigger.Auto.Score.Remarks {
		if breachCategories[r.Rule] {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertPlanBreach,
		Severity: models.SeverityWarning,
		Message:  "Trading plan breached: " + strings.Join(msgs, "; "),
		Metadata: map[string]interface{}{"breaches": len(msgs)},
	}, nil
}

// detectOverconfidence fires when a loss follows a win and was taken with a
// much larger position.
func detectOverconfidence(in Input) (*models.Alert, error) {
	t := in.Trigger
	if !isLoss(t) || len(in.Prior) == 0 {
		return nil, nil
	}
	prev := in.Prior[len(in.Prior)-1]
	if !isWin(prev) || !(prev.LotSize > 0) {
		return nil, nil
	}
	factor := t.LotSize / prev.LotSize
	if factor < OverconfidenceLotFactor {
		return nil, nil
	}
	return &models.Alert{
		Category: models.AlertOverconfidence,
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("Sized up %.1fx after a win and lost. Keep size steady after winners.", factor),
		Metadata: map[string]interface{}{"lot_factor": factor, "previous_trade_id": prev.ID},
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
