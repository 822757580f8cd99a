package discipline

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func price(v float64) *float64 { return &v }

func analysisConfig() models.AnalysisConfig {
	return models.AnalysisConfig{Categories: []models.AnalysisCategory{{
		ID:   "structure",
		Name: "Market structure",
		Subcategories: []models.AnalysisSubcategory{
			{ID: "bias", Name: "Bias", Options: []models.AnalysisOption{{ID: "bull", Label: "Bullish"}, {ID: "bear", Label: "Bearish"}, {ID: "range", Label: "Ranging"}}},
			{ID: "pd", Name: "Premium/Discount Zone", Options: []models.AnalysisOption{{ID: "disc", Label: "Discount"}, {ID: "prem", Label: "Premium"}, {ID: "eq", Label: "Equilibrium"}}},
			{ID: "vol", Name: "Volatility", Options: []models.AnalysisOption{{ID: "lo", Label: "Low"}, {ID: "hi", Label: "High"}}},
			{ID: "entry", Name: "Entry model", Options: []models.AnalysisOption{{ID: "fvg", Label: "Fair value gap"}}},
		},
	}}}
}

func plainTrade() *models.Trade {
	return &models.Trade{
		ID:         "t1",
		Symbol:     "EURUSD",
		Direction:  models.DirectionBuy,
		LotSize:    1,
		EntryPrice: 1.1,
		StopLoss:   1.095,
		TakeProfit: 1.11,
		OpenTime:   time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC),
	}
}

func TestScoreMinimalTrade(t *testing.T) {
	s := NewScorer(DefaultOptions())
	score := s.Score(Input{Trade: plainTrade()})

	// initial 10, outside active hours +5, lessons missing -3
	assert.Equal(t, 12.0, score.Value)
	assert.Equal(t, models.ScoreRed, score.Color)
	assert.Equal(t, "Lessons learned not recorded", score.Remark)
	require.Len(t, score.Remarks, 1)
	assert.Equal(t, models.RuleJournal, score.Remarks[0].Rule)
}

func TestScoreCompliantTrade(t *testing.T) {
	tr := plainTrade()
	tr.SatisfiedRuleIDs = []string{"r1"}
	tr.Analysis = models.AnalysisSelections{
		"1h":  {"bias": {{OptionID: "bull"}}},
		"4h":  {"pd": {{OptionID: "disc"}}},
		"15m": {"entry": {{OptionID: "fvg"}}},
	}
	tr.Sentiments = map[models.SentimentStage][]string{models.StageBefore: {"Confident"}}
	tr.ImageCount = 3
	hit := true
	tr.TargetHit = &hit
	tr.LessonsLearned = "Waited for the retest before entering."

	strategy := &models.Strategy{
		Name: "Trend",
		RuleSets: []models.RuleSet{{Name: "entry", Rules: []models.Rule{
			{ID: "r1", Kind: models.RuleKindText, Text: "Wait for retest", Required: true},
			{ID: "r2", Kind: models.RuleKindAnalysis, Required: true, Timeframe: "1h", Subcategory: "bias", OptionIDs: []string{"bull"}},
			{ID: "r3", Kind: models.RuleKindText, Text: "Optional", Required: false},
		}}},
	}

	in := Input{
		Trade:   tr,
		Metrics: models.AutoCalculated{RiskAmount: 500, PlannedRR: 2},
		Capital: 10000,
		Plan: models.TradingPlan{
			ActiveHours:     []models.TimeWindow{{Start: "07:00", End: "16:00"}},
			Instruments:     []string{"eurusd"},
			MaxRiskPerTrade: 600,
			MinRiskReward:   1.5,
		},
		Strategy: strategy,
		Analysis: analysisConfig(),
		Settings: &models.AppSettings{Keywords: map[string]models.Impact{"confident": models.ImpactPositive}},
	}

	score := NewScorer(DefaultOptions()).Score(in)

	// 10 initial + 10 risk + 10 hours + 5 instrument + 10 strategy
	// + 2 (1h bias) + 2.5 (4h discount) + 1 (15m flat)
	// + 2 sentiment + 3 images + 3 excursion + 5 lessons + 5 R:R
	assert.Equal(t, 68.5, score.Value)
	assert.Equal(t, models.ScoreYellow, score.Color)
	assert.Equal(t, NoIssues, score.Remark)
	assert.Empty(t, score.Remarks)
}

func TestScoreViolations(t *testing.T) {
	tr := plainTrade()
	tr.Direction = models.DirectionSell
	tr.Symbol = "XAUUSD"
	tr.Analysis = models.AnalysisSelections{
		"1D": {"bias": {{OptionID: "bull"}}, "vol": {{OptionID: "lo"}}},
	}
	tr.Sentiments = map[models.SentimentStage][]string{models.StageDuring: {"FOMO"}}
	tr.CustomFields = map[string]interface{}{"plan": "deviated"}

	strategy := &models.Strategy{
		Name: "Trend",
		RuleSets: []models.RuleSet{{Rules: []models.Rule{
			{ID: "r1", Kind: models.RuleKindText, Required: true},
			{ID: "r2", Kind: models.RuleKindText, Required: true},
		}}},
	}

	in := Input{
		Trade:   tr,
		Metrics: models.AutoCalculated{RiskAmount: 800, PlannedRR: 0.8},
		Capital: 10000,
		Plan: models.TradingPlan{
			NoTradeWindows: []models.TimeWindow{{Start: "07:30", End: "08:30"}},
			Instruments:    []string{"EURUSD"},
			MaxRiskPercent: 2,
			MinRiskReward:  1.5,
		},
		Strategy: strategy,
		Analysis: analysisConfig(),
		Settings: &models.AppSettings{
			Keywords: map[string]models.Impact{"FOMO": models.ImpactNegative},
			CustomFields: []models.CustomField{{ID: "plan", Options: []models.CustomFieldOption{
				{ID: "deviated", Label: "Deviated", Impact: models.ImpactNegative},
			}}},
		},
	}

	score := NewScorer(DefaultOptions()).Score(in)

	assert.Equal(t, 0.0, score.Value, "score is clamped at zero")
	assert.Equal(t, models.ScoreRed, score.Color)

	rules := make(map[models.RuleCategory]int)
	for _, r := range score.Remarks {
		rules[r.Rule]++
	}
	assert.Equal(t, 1, rules[models.RuleRisk])
	assert.Equal(t, 1, rules[models.RuleTiming])
	assert.Equal(t, 1, rules[models.RuleInstrument])
	assert.Equal(t, 1, rules[models.RuleStrategy], "partial coverage yields a single remark")
	assert.Equal(t, 2, rules[models.RuleAnalysis])
	assert.Equal(t, 1, rules[models.RuleSentiment])
	assert.Equal(t, 1, rules[models.RuleRiskReward])
	assert.Contains(t, score.Remark, "; ")
}

func TestScoreZoneEquilibriumHalfCredit(t *testing.T) {
	tr := plainTrade()
	tr.LessonsLearned = "A complete lessons learned entry."
	tr.Analysis = models.AnalysisSelections{"4h": {"pd": {{OptionID: "eq"}}}}

	score := NewScorer(DefaultOptions()).Score(Input{Trade: tr, Analysis: analysisConfig()})
	// 10 + 5 hours + 5 lessons + 2.5/2
	assert.Equal(t, 21.25, score.Value)
}

func TestPlanThresholds(t *testing.T) {
	tr := plainTrade()
	tr.ID = "t3"
	tr.OpenTime = time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)
	tr.LessonsLearned = "A complete lessons learned entry."

	journal := []models.Trade{
		{ID: "t1", Symbol: "EURUSD", Direction: models.DirectionBuy, LotSize: 1, EntryPrice: 1.1, ClosePrice: price(1.099),
			OpenTime: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)},
		{ID: "t2", Symbol: "EURUSD", Direction: models.DirectionBuy, LotSize: 1, EntryPrice: 1.1, ClosePrice: price(1.0995),
			OpenTime: time.Date(2024, 3, 12, 11, 0, 0, 0, time.UTC)},
		// Missing trades never count.
		{ID: "tm", Symbol: "EURUSD", LotSize: 1, EntryPrice: 1.1, ClosePrice: price(1.0),
			OpenTime: time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC), Missing: true},
		// Later trades never count.
		{ID: "t4", Symbol: "EURUSD", LotSize: 1, EntryPrice: 1.1, ClosePrice: price(1.0),
			OpenTime: time.Date(2024, 3, 12, 16, 0, 0, 0, time.UTC)},
		*tr,
	}

	in := Input{
		Trade:   tr,
		Journal: journal,
		Plan: models.TradingPlan{
			DailyLossLimit:    100,
			DailyProfitTarget: 500,
			MaxTradesPerDay:   2,
			WeeklyLossLimit:   1000,
		},
	}

	score := NewScorer(DefaultOptions()).Score(in)

	// Earlier same-day P/L is -100 - 50 = -150 over two trades.
	var plan []string
	for _, r := range score.Remarks {
		if r.Rule == models.RulePlan {
			plan = append(plan, r.Message)
		}
	}
	assert.ElementsMatch(t, []string{
		"daily loss limit 100.00 already hit",
		"max trades per day (2) already reached",
	}, plan)
	// 10 + 5 hours + 5 lessons + 2 profit target - 10 - 10 + 2 weekly
	assert.Equal(t, 4.0, score.Value)
}

func TestRuleSatisfied(t *testing.T) {
	tr := plainTrade()
	tr.Analysis = models.AnalysisSelections{"1h": {"bias": {{OptionID: "bull"}}}}

	assert.True(t, RuleSatisfied(models.Rule{ID: "a", Kind: models.RuleKindAnalysis, Timeframe: "1h", Subcategory: "bias", OptionIDs: []string{"bull", "range"}}, tr))
	assert.False(t, RuleSatisfied(models.Rule{ID: "b", Kind: models.RuleKindAnalysis, Timeframe: "4h", Subcategory: "bias", OptionIDs: []string{"bull"}}, tr))
	assert.True(t, RuleSatisfied(models.Rule{ID: "c", Kind: models.RuleKindAnalysis, Timeframe: "1h", Subcategory: "bias"}, tr))
	assert.False(t, RuleSatisfied(models.Rule{ID: "d", Kind: models.RuleKindText}, tr))

	tr.SatisfiedRuleIDs = []string{"d"}
	assert.True(t, RuleSatisfied(models.Rule{ID: "d", Kind: models.RuleKindText}, tr))
}

func TestBandsColor(t *testing.T) {
	b := DefaultBands()
	assert.Equal(t, models.ScoreGreen, b.Color(75))
	assert.Equal(t, models.ScoreYellow, b.Color(74.99))
	assert.Equal(t, models.ScoreYellow, b.Color(50))
	assert.Equal(t, models.ScoreRed, b.Color(49.99))
}

func TestTimeframeWeight(t *testing.T) {
	tests := []struct {
		tf   string
		want float64
	}{
		{"1m", 1},
		{"M5", 1},
		{"15m", 1.5},
		{"M15", 1.5},
		{"30m", 2},
		{"1h", 2},
		{"H1", 2},
		{"4h", 2.5},
		{"H4", 2.5},
		{"1D", 3},
		{"daily", 3},
		{"D1", 3},
		{"1W", 4},
		{"W1", 4},
		{"1M", 5},
		{"MN", 5},
		{"monthly", 5},
		{"garbage", 1},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(tt.tf, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeframeWeight(tt.tf))
		})
	}
}

// TestScoreBounds checks the score stays in [0, 100] and is deterministic
// across arbitrary rule outcomes.
func TestScoreBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	s := NewScorer(DefaultOptions())
	cfg := analysisConfig()

	properties.Property("score in [0,100]", prop.ForAll(
		func(risk float64, images int, bull bool, sell bool, lessons string, hour int, nSent int) bool {
			tr := plainTrade()
			if sell {
				tr.Direction = models.DirectionSell
			}
			tr.ImageCount = images
			tr.LessonsLearned = lessons
			tr.OpenTime = time.Date(2024, 3, 12, hour, 0, 0, 0, time.UTC)
			opt := "bear"
			if bull {
				opt = "bull"
			}
			tr.Analysis = models.AnalysisSelections{
				"1W": {"bias": {{OptionID: opt}}, "entry": {{OptionID: "fvg"}}},
				"1h": {"pd": {{OptionID: "prem"}}},
			}
			tags := make([]string, nSent)
			for i := range tags {
				tags[i] = "good"
			}
			tr.Sentiments = map[models.SentimentStage][]string{models.StageAfter: tags}

			in := Input{
				Trade:    tr,
				Metrics:  models.AutoCalculated{RiskAmount: risk, PlannedRR: risk / 300},
				Capital:  10000,
				Plan:     models.TradingPlan{MaxRiskPercent: 1, MinRiskReward: 2, Instruments: []string{"EURUSD"}},
				Analysis: cfg,
				Settings: &models.AppSettings{Keywords: map[string]models.Impact{"good": models.ImpactPositive}},
			}
			a := s.Score(in)
			b := s.Score(in)
			return a.Value >= 0 && a.Value <= 100 && a.Value == b.Value && a.Remark == b.Remark
		},
		gen.Float64Range(0, 5000),
		gen.IntRange(0, 20),
		gen.Bool(),
		gen.Bool(),
		gen.AlphaString(),
		gen.IntRange(0, 23),
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}
