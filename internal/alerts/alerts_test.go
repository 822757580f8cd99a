package alerts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) // a Monday

func trade(i int, outcome models.Outcome, pnl float64) models.Trade {
	open := base.Add(time.Duration(i) * 24 * time.Hour)
	closeTime := open.Add(time.Hour)
	cp := 1.1
	result := models.ResultBE
	switch outcome {
	case models.OutcomeWin:
		result = models.ResultTP
	case models.OutcomeLoss:
		result = models.ResultSL
	}
	return models.Trade{
		ID:         fmt.Sprintf("t%02d", i),
		Symbol:     "EURUSD",
		Direction:  models.DirectionBuy,
		LotSize:    1,
		EntryPrice: 1.1,
		StopLoss:   1.09,
		TakeProfit: 1.12,
		ClosePrice: &cp,
		OpenTime:   open,
		CloseTime:  &closeTime,
		Auto: models.AutoCalculated{
			Status:     models.StatusClosed,
			Result:     result,
			Outcome:    outcome,
			NetPnL:     pnl,
			RiskAmount: 100,
			RealizedR:  pnl / 100,
		},
	}
}

func losses(n int) []models.Trade {
	out := make([]models.Trade, n)
	for i := range out {
		out[i] = trade(i, models.OutcomeLoss, -100)
	}
	return out
}

// inputOf treats the last trade as the trigger.
func inputOf(trades []models.Trade) Input {
	j := &models.Journal{ID: "j1", Trades: trades}
	prior := make([]*models.Trade, 0, len(trades)-1)
	for i := range trades[:len(trades)-1] {
		prior = append(prior, &j.Trades[i])
	}
	return Input{Trigger: &j.Trades[len(trades)-1], Prior: prior, Journal: j}
}

func fixedEngine(opts ...Option) *Engine {
	n := 0
	opts = append([]Option{
		WithClock(func() time.Time { return base }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("a%d", n) }),
	}, opts...)
	return NewEngine(opts...)
}

func TestLossStreakFiresAtExactThresholds(t *testing.T) {
	j := &models.Journal{ID: "j1", Trades: losses(6)}
	engine := fixedEngine()

	got := make(map[int][]models.Alert)
	for i := range j.Trades {
		got[i] = engine.Run(j, &j.Trades[i])
	}

	assert.Empty(t, got[0])
	assert.Empty(t, got[1])
	require.Len(t, got[2], 1)
	assert.Equal(t, models.AlertLossStreak, got[2][0].Category)
	assert.Equal(t, models.SeverityWarning, got[2][0].Severity)
	assert.Empty(t, got[3])
	require.Len(t, got[4], 1)
	assert.Equal(t, models.AlertLossStreak, got[4][0].Category)
	assert.Equal(t, models.SeverityCritical, got[4][0].Severity)
	assert.Equal(t, 5, got[4][0].Metadata["streak"])
	assert.Empty(t, got[5], "a sixth loss does not repeat the alert")
}

func TestRunStampsAlerts(t *testing.T) {
	trades := []models.Trade{
		trade(0, models.OutcomeWin, 100),
		trade(1, models.OutcomeWin, 100),
		trade(2, models.OutcomeWin, 100),
	}
	j := &models.Journal{ID: "j1", Trades: trades}

	alerts := fixedEngine().Run(j, &j.Trades[2])
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, base, a.Timestamp)
	assert.Equal(t, "t02", a.TradeID)
	assert.False(t, a.Seen)
	assert.Equal(t, models.AlertWinStreak, a.Category)
	assert.Equal(t, models.SeveritySuccess, a.Severity)

	def := RunAlertEngine(j, &j.Trades[2])
	require.Len(t, def, 1)
	assert.NotEmpty(t, def[0].ID)
}

func TestRunDeduplicatesAgainstJournal(t *testing.T) {
	j := &models.Journal{ID: "j1", Trades: losses(3)}
	engine := fixedEngine()

	first := engine.Run(j, &j.Trades[2])
	require.Len(t, first, 1)
	j.Alerts = append(j.Alerts, first...)

	assert.Empty(t, engine.Run(j, &j.Trades[2]))
}

func TestRunSkipsMissingAndNil(t *testing.T) {
	j := &models.Journal{ID: "j1", Trades: losses(3)}
	j.Trades[2].Missing = true
	engine := fixedEngine()

	assert.Nil(t, engine.Run(j, &j.Trades[2]))
	assert.Nil(t, engine.Run(nil, &j.Trades[1]))
	assert.Nil(t, engine.Run(j, nil))
}

func TestMissingTradesAreOutsideHistory(t *testing.T) {
	trades := losses(4)
	trades[1].Missing = true
	j := &models.Journal{ID: "j1", Trades: trades}

	// Live losses t00, t02, t03 form the streak of three.
	alerts := fixedEngine().Run(j, &j.Trades[3])
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertLossStreak, alerts[0].Category)
}

func TestUnsavedTriggerPlacedByOpenTime(t *testing.T) {
	j := &models.Journal{ID: "j1", Trades: losses(2)}
	next := trade(2, models.OutcomeLoss, -100)
	next.ID = "new"

	alerts := fixedEngine().Run(j, &next)
	require.Len(t, alerts, 1)
	assert.Equal(t, "new", alerts[0].TradeID)
}

func TestDetectorFailuresAreIsolated(t *testing.T) {
	panicky := NewDetector("panicky", func(Input) (*models.Alert, error) { panic("boom") })
	failing := NewDetector("failing", func(Input) (*models.Alert, error) { return nil, errors.New("bad") })
	dup := NewDetector("dup", func(Input) (*models.Alert, error) {
		return &models.Alert{Category: models.AlertLossStreak, Severity: models.SeverityInfo}, nil
	})

	j := &models.Journal{ID: "j1", Trades: losses(3)}
	engine := fixedEngine(WithDetectors(
		[]Detector{panicky, failing, NewDetector("streak", detectStreak), dup},
		nil,
	))

	alerts := engine.Run(j, &j.Trades[2])
	require.Len(t, alerts, 1, "the duplicate category is dropped")
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	_, err := engine.detect(panicky, inputOf(losses(1)))
	var de *apperrors.DetectorError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "panicky", de.Detector)
	assert.Equal(t, "t00", de.TradeID)
}

func TestPeriodicDetectorsRunEveryInterval(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			trades = append(trades, trade(i, models.OutcomeNeutral, 0))
		} else {
			trades = append(trades, trade(i, models.OutcomeWin, 100))
		}
	}
	trades[9] = trade(9, models.OutcomeNeutral, 0)
	j := &models.Journal{ID: "j1", Trades: trades}
	engine := fixedEngine()

	assert.Empty(t, engine.Run(j, &j.Trades[8]))
	alerts := engine.Run(j, &j.Trades[9])
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertBreakevenRut, alerts[0].Category)

	short := fixedEngine(WithPeriodicInterval(9))
	assert.Empty(t, short.Run(j, &j.Trades[9]))
}

func TestLargestLoss(t *testing.T) {
	trades := losses(6)
	trades[5].Auto.NetPnL = -300

	a, err := detectLargestLoss(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.SeverityCritical, a.Severity)
	assert.Equal(t, -100.0, a.Metadata["previous_worst"])

	a, _ = detectLargestLoss(inputOf(trades[1:]))
	assert.Nil(t, a, "needs five earlier losses")
}

func TestClosedBeforeTarget(t *testing.T) {
	win := trade(0, models.OutcomeWin, 100)
	win.Auto.Result = models.ResultStop
	cp := 1.11
	win.ClosePrice = &cp

	a, err := detectClosedBeforeTarget(inputOf([]models.Trade{win}))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.InDelta(t, 0.5, a.Metadata["remaining_share"], 1e-9)

	cp = 1.118
	a, _ = detectClosedBeforeTarget(inputOf([]models.Trade{win}))
	assert.Nil(t, a)

	sell := win
	sell.Direction = models.DirectionSell
	sell.EntryPrice, sell.TakeProfit = 1.12, 1.10
	cp = 1.11
	a, _ = detectClosedBeforeTarget(inputOf([]models.Trade{sell}))
	require.NotNil(t, a)
}

func withBias(tr models.Trade, dir models.Direction, bias string) models.Trade {
	tr.Direction = dir
	tr.Analysis = models.AnalysisSelections{
		"15m": {"bias": {{OptionID: "Bearish"}}},
		"4h":  {"bias": {{OptionID: bias}}},
	}
	return tr
}

func TestBiasConflict(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 6; i++ {
		outcome, pnl := models.OutcomeWin, 100.0
		if i == 0 {
			outcome, pnl = models.OutcomeLoss, -100
		}
		trades = append(trades, withBias(trade(i, outcome, pnl), models.DirectionBuy, "Bullish"))
	}
	for i := 6; i < 10; i++ {
		outcome, pnl := models.OutcomeLoss, -100.0
		if i == 6 {
			outcome, pnl = models.OutcomeWin, 100
		}
		trades = append(trades, withBias(trade(i, outcome, pnl), models.DirectionSell, "Bullish"))
	}
	trigger := withBias(trade(10, models.OutcomeNeutral, 0), models.DirectionSell, "Bullish")
	trigger.ClosePrice = nil

	a, err := detectBiasConflict(inputOf(append(trades, trigger)))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.InDelta(t, 83.33, a.Metadata["aligned_win_rate"], 0.01)
	assert.InDelta(t, 25.0, a.Metadata["conflicting_win_rate"], 0.01)

	aligned := withBias(trigger, models.DirectionBuy, "Bullish")
	a, _ = detectBiasConflict(inputOf(append(trades, aligned)))
	assert.Nil(t, a)

	a, _ = detectBiasConflict(inputOf(append(trades[1:], trigger)))
	assert.Nil(t, a, "fewer than ten samples")
}

func TestBiasOfUsesHighestTimeframe(t *testing.T) {
	tr := withBias(trade(0, models.OutcomeWin, 1), models.DirectionBuy, "Bullish")
	assert.Equal(t, 1.0, biasOf(&tr))
	tr.Analysis = nil
	assert.Equal(t, 0.0, biasOf(&tr))
}

func TestRiskDrift(t *testing.T) {
	trades := losses(4)
	trades[3].Auto.RiskAmount = 200

	a, err := detectRiskDrift(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.SeverityWarning, a.Severity)

	trades[3] = trade(3, models.OutcomeWin, 100)
	trades[3].Auto.RiskAmount = 40
	a, _ = detectRiskDrift(inputOf(trades))
	require.NotNil(t, a)
	assert.Equal(t, models.SeverityInfo, a.Severity)

	a, _ = detectRiskDrift(inputOf(trades[1:]))
	assert.Nil(t, a, "needs three earlier losses")
}

func TestProfitTaking(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, trade(i, models.OutcomeWin, 100))
	}
	small := trade(5, models.OutcomeWin, 50)

	a, err := detectProfitTaking(inputOf(append(trades, small)))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 0.5, a.Metadata["realized_r"])

	for i := range trades {
		trades[i].Auto.RealizedR = 2
	}
	a, _ = detectProfitTaking(inputOf(append(trades, small)))
	assert.Nil(t, a)
}

func TestPlanBreach(t *testing.T) {
	tr := trade(0, models.OutcomeLoss, -100)
	tr.Auto.Score.Remarks = []models.Remark{
		{Rule: models.RuleJournal, Message: "Lessons learned not recorded"},
		{Rule: models.RuleRisk, Message: "risk 500.00 exceeds max 100.00"},
		{Rule: models.RuleTiming, Message: "opened inside a no-trade window"},
	}
	a, err := detectPlanBreach(inputOf([]models.Trade{tr}))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Trading plan breached: risk 500.00 exceeds max 100.00; opened inside a no-trade window", a.Message)

	tr.Auto.Score.Remarks = tr.Auto.Score.Remarks[:1]
	a, _ = detectPlanBreach(inputOf([]models.Trade{tr}))
	assert.Nil(t, a)
}

func TestPlanBreachCoversWhitelistAndMinRiskReward(t *testing.T) {
	tests := []struct {
		name   string
		remark models.Remark
	}{
		{"instrument", models.Remark{Rule: models.RuleInstrument, Message: "GBPJPY is not in the instrument whitelist"}},
		{"risk reward", models.Remark{Rule: models.RuleRiskReward, Message: "Planned R:R 1.20 below minimum 2.00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := trade(0, models.OutcomeLoss, -100)
			tr.Auto.Score.Remarks = []models.Remark{tt.remark}
			a, err := detectPlanBreach(inputOf([]models.Trade{tr}))
			require.NoError(t, err)
			require.NotNil(t, a)
			assert.Equal(t, models.AlertPlanBreach, a.Category)
			assert.Equal(t, "Trading plan breached: "+tt.remark.Message, a.Message)
		})
	}
}

func TestOverconfidence(t *testing.T) {
	prev := trade(0, models.OutcomeWin, 100)
	big := trade(1, models.OutcomeLoss, -300)
	big.LotSize = 2

	a, err := detectOverconfidence(inputOf([]models.Trade{prev, big}))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 2.0, a.Metadata["lot_factor"])

	big.LotSize = 1.2
	a, _ = detectOverconfidence(inputOf([]models.Trade{prev, big}))
	assert.Nil(t, a)
}

func TestDisciplinePerformance(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 20; i++ {
		tr := trade(i, models.OutcomeLoss, -100)
		if i%4 == 0 {
			tr = trade(i, models.OutcomeWin, 100)
		}
		tr.Auto.Score.Value = 80
		trades = append(trades, tr)
	}
	a, err := detectDisciplinePerformance(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.SeverityInfo, a.Severity)

	for i := range trades {
		trades[i].Auto.Score.Value = 30
		if trades[i].Auto.Outcome == models.OutcomeWin {
			trades[i].Auto.NetPnL = 1000
		}
	}
	a, _ = detectDisciplinePerformance(inputOf(trades))
	require.NotNil(t, a)
	assert.Equal(t, models.SeverityWarning, a.Severity)

	a, _ = detectDisciplinePerformance(inputOf(trades[1:]))
	assert.Nil(t, a)
}

func TestSetupUnderused(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 30; i++ {
		tr := trade(i, models.OutcomeLoss, -100)
		tr.StrategyName = "Range"
		if i%6 == 0 {
			tr = trade(i, models.OutcomeWin, 200)
			tr.StrategyName = "Breakout"
		}
		trades = append(trades, tr)
	}
	a, err := detectSetupUnderused(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Breakout", a.Metadata["strategy"])
	assert.InDelta(t, 2.0, a.Metadata["avg_r"], 1e-9)
}

func TestWeekday(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 35; i++ {
		tr := trade(i, models.OutcomeWin, 50)
		if i%7 == 0 || i%7 == 2 {
			tr = trade(i, models.OutcomeLoss, -100)
			if i%7 == 2 {
				tr.Auto.NetPnL = -50
			}
		}
		trades = append(trades, tr)
	}
	a, err := detectWeekday(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Monday", a.Metadata["weekday"])
	assert.Equal(t, -500.0, a.Metadata["net_pnl"])
}

func TestWeekdayIgnoresWinRate(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 42; i++ {
		tr := trade(i, models.OutcomeWin, 50)
		if i%7 == 1 {
			// Tuesdays alternate +100 and -1000: half won, heavy net loss.
			tr = trade(i, models.OutcomeWin, 100)
			if (i/7)%2 == 1 {
				tr = trade(i, models.OutcomeLoss, -1000)
			}
		}
		trades = append(trades, tr)
	}
	a, err := detectWeekday(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Tuesday", a.Metadata["weekday"])
	assert.Equal(t, -2700.0, a.Metadata["net_pnl"])
	assert.Equal(t, 50.0, a.Metadata["win_rate"])
}

func TestWeekdaySmallLossIsNotMaterial(t *testing.T) {
	var trades []models.Trade
	thursdays := 0
	for i := 0; i < 35; i++ {
		tr := trade(i, models.OutcomeWin, 50)
		if i%7 == 3 {
			tr = trade(i, models.OutcomeWin, 100)
			if thursdays == 0 {
				tr = trade(i, models.OutcomeLoss, -420)
			}
			thursdays++
		}
		trades = append(trades, tr)
	}
	a, err := detectWeekday(inputOf(trades))
	require.NoError(t, err)
	assert.Nil(t, a, "a day down less than one average loss is not reported")
}

func TestLowRiskReward(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 12; i++ {
		tr := trade(i, models.OutcomeWin, 50)
		tr.Auto.PlannedRR = 0.8
		trades = append(trades, tr)
	}
	a, err := detectLowRiskReward(inputOf(trades))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.InDelta(t, 0.8, a.Metadata["avg_planned_rr"], 1e-9)

	a, _ = detectLowRiskReward(inputOf(trades[:9]))
	assert.Nil(t, a)
}
