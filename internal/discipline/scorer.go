// Package discipline scores how closely a trade followed the trading plan,
// its strategy rules and the journaling routine.
package discipline

import (
	"fmt"
	"strings"

	"trade-journal/internal/models"
	"trade-journal/internal/pnl"
	"trade-journal/internal/pricing"
	"trade-journal/internal/session"
)

// NoIssues is the remark reported when no rule failed.
const NoIssues = "No issues"

// Weights are the point adjustments of every rule.
type Weights struct {
	Initial float64

	RiskPass float64
	RiskFail float64

	NoTradeWindow float64
	ActiveHours   float64
	OutsideHours  float64

	InstrumentPass float64
	InstrumentFail float64

	StrategyPass float64
	StrategyFail float64

	// FlatSelection is awarded per selection in subcategories without
	// directional meaning.
	FlatSelection float64

	SentimentPositive float64
	SentimentNegative float64

	CustomPositive float64
	CustomNegative float64

	PerImage       float64
	MaxImagePoints float64
	Excursion      float64
	LessonsPass    float64
	LessonsFail    float64

	PlanPass float64
	PlanFail float64

	RiskRewardPass float64
	RiskRewardFail float64
}

// DefaultWeights returns the default rule weights.
func DefaultWeights() Weights {
	return Weights{
		Initial:           10,
		RiskPass:          10,
		RiskFail:          -15,
		NoTradeWindow:     -15,
		ActiveHours:       10,
		OutsideHours:      5,
		InstrumentPass:    5,
		InstrumentFail:    -10,
		StrategyPass:      10,
		StrategyFail:      -10,
		FlatSelection:     1,
		SentimentPositive: 2,
		SentimentNegative: -4,
		CustomPositive:    3,
		CustomNegative:    -3,
		PerImage:          1,
		MaxImagePoints:    5,
		Excursion:         3,
		LessonsPass:       5,
		LessonsFail:       -3,
		PlanPass:          2,
		PlanFail:          -10,
		RiskRewardPass:    5,
		RiskRewardFail:    -10,
	}
}

// Bands are the lower bounds of the green and yellow score colors.
type Bands struct {
	Green  float64 `mapstructure:"green"`
	Yellow float64 `mapstructure:"yellow"`
}

// DefaultBands returns the default color bands.
func DefaultBands() Bands {
	return Bands{Green: 75, Yellow: 50}
}

// Color classifies a score.
func (b Bands) Color(score float64) models.ScoreColor {
	switch {
	case score >= b.Green:
		return models.ScoreGreen
	case score >= b.Yellow:
		return models.ScoreYellow
	default:
		return models.ScoreRed
	}
}

// Options configure a Scorer.
type Options struct {
	Weights          Weights
	Bands            Bands
	LessonsMinLength int
	Classifier       *session.Classifier
	Pricing          *pricing.Resolver
}

// DefaultOptions returns the default scorer options.
func DefaultOptions() Options {
	return Options{
		Weights:          DefaultWeights(),
		Bands:            DefaultBands(),
		LessonsMinLength: 20,
		Classifier:       session.Default(),
		Pricing:          pricing.NewResolver(nil),
	}
}

// Scorer computes discipline scores. It holds no mutable state.
type Scorer struct {
	opts Options
}

// NewScorer creates a scorer; nil collaborators fall back to the defaults.
func NewScorer(opts Options) *Scorer {
	if opts.Classifier == nil {
		opts.Classifier = session.Default()
	}
	if opts.Pricing == nil {
		opts.Pricing = pricing.NewResolver(nil)
	}
	return &Scorer{opts: opts}
}

// Input is everything a score depends on. Metrics must already carry the
// trade's risk amount, planned R:R and net P/L.
type Input struct {
	Trade    *models.Trade
	Metrics  models.AutoCalculated
	Capital  float64
	Plan     models.TradingPlan
	Strategy *models.Strategy
	// Analysis is the taxonomy used for option labels, already merged with
	// the strategy overlay.
	Analysis models.AnalysisConfig
	Settings *models.AppSettings
	// Journal holds the other trades of the journal for plan thresholds.
	Journal []models.Trade
	// Pricing overrides the scorer's resolver for recomputing journal P/L.
	Pricing *pricing.Resolver
}

type tally struct {
	value   float64
	remarks []models.Remark
}

func (t *tally) add(points float64) {
	t.value += points
}

func (t *tally) fail(points float64, rule models.RuleCategory, format string, args ...interface{}) {
	t.value += points
	t.remarks = append(t.remarks, models.Remark{Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// Score evaluates every rule and returns the clamped score with remarks.
func (s *Scorer) Score(in Input) models.DisciplineScore {
	if in.Trade == nil {
		return s.result(tally{})
	}
	w := s.opts.Weights
	t := &tally{value: w.Initial}

	s.scoreRisk(t, in)
	s.scoreTiming(t, in)
	s.scoreInstrument(t, in)
	s.scoreStrategy(t, in)
	s.scoreAnalysis(t, in)
	s.scoreSentiment(t, in)
	s.scoreJournaling(t, in)
	s.scorePlanThresholds(t, in)
	s.scoreRiskReward(t, in)

	return s.result(*t)
}

func (s *Scorer) result(t tally) models.DisciplineScore {
	value := pnl.Round(clamp(t.value, 0, 100), 2)
	remark := NoIssues
	if len(t.remarks) > 0 {
		msgs := make([]string, len(t.remarks))
		for i, r := range t.remarks {
			msgs[i] = r.Message
		}
		remark = strings.Join(msgs, "; ")
	}
	return models.DisciplineScore{
		Value:   value,
		Remark:  remark,
		Color:   s.opts.Bands.Color(value),
		Remarks: t.remarks,
	}
}

func (s *Scorer) scoreRisk(t *tally, in Input) {
	maxRisk := in.Plan.MaxRisk(in.Capital)
	if maxRisk <= 0 {
		return
	}
	w := s.opts.Weights
	if in.Metrics.RiskAmount <= maxRisk {
		t.add(w.RiskPass)
		return
	}
	t.fail(w.RiskFail, models.RuleRisk, "Risk %.2f exceeds max risk per trade %.2f", in.Metrics.RiskAmount, maxRisk)
}

func (s *Scorer) scoreTiming(t *tally, in Input) {
	w := s.opts.Weights
	c := s.opts.Classifier
	switch {
	case c.InAny(in.Plan.NoTradeWindows, in.Trade.OpenTime):
		t.fail(w.NoTradeWindow, models.RuleTiming, "Opened inside a no-trade window at %s", in.Trade.OpenTime.Format("15:04"))
	case c.InAny(in.Plan.ActiveHours, in.Trade.OpenTime):
		t.add(w.ActiveHours)
	default:
		t.add(w.OutsideHours)
	}
}

func (s *Scorer) scoreInstrument(t *tally, in Input) {
	if len(in.Plan.Instruments) == 0 {
		return
	}
	w := s.opts.Weights
	for _, sym := range in.Plan.Instruments {
		if strings.EqualFold(strings.TrimSpace(sym), strings.TrimSpace(in.Trade.Symbol)) {
			t.add(w.InstrumentPass)
			return
		}
	}
	t.fail(w.InstrumentFail, models.RuleInstrument, "%s is not in the instrument whitelist", in.Trade.Symbol)
}

func (s *Scorer) scoreStrategy(t *tally, in Input) {
	if in.Strategy == nil {
		return
	}
	required := in.Strategy.RequiredRules()
	if len(required) == 0 {
		return
	}
	satisfied := 0
	for _, r := range required {
		if RuleSatisfied(r, in.Trade) {
			satisfied++
		}
	}
	w := s.opts.Weights
	if satisfied == len(required) {
		t.add(w.StrategyPass)
		return
	}
	t.fail(w.StrategyFail, models.RuleStrategy, "Strategy %s: %d of %d required rules followed", in.Strategy.Name, satisfied, len(required))
}

// RuleSatisfied reports whether a strategy rule holds for the trade. Text
// rules must be ticked off; analysis rules are also met by a matching
// selection on their timeframe.
func RuleSatisfied(r models.Rule, tr *models.Trade) bool {
	for _, id := range tr.SatisfiedRuleIDs {
		if id == r.ID {
			return true
		}
	}
	switch r.Kind {
	case models.RuleKindAnalysis:
		selected := tr.Analysis.OptionIDs(r.Timeframe, r.Subcategory)
		if len(r.OptionIDs) == 0 {
			return len(selected) > 0
		}
		for _, id := range selected {
			for _, want := range r.OptionIDs {
				if id == want {
					return true
				}
			}
		}
		return false
	case models.RuleKindText:
		return false
	default:
		return false
	}
}

func (s *Scorer) scoreSentiment(t *tally, in Input) {
	w := s.opts.Weights
	for _, tag := range in.Trade.SentimentTags() {
		switch in.Settings.ImpactOf(tag) {
		case models.ImpactPositive:
			t.add(w.SentimentPositive)
		case models.ImpactNegative:
			t.fail(w.SentimentNegative, models.RuleSentiment, "Negative sentiment: %s", tag)
		}
	}
	for _, imp := range in.Settings.CustomFieldImpacts(in.Trade) {
		switch imp {
		case models.ImpactPositive:
			t.add(w.CustomPositive)
		case models.ImpactNegative:
			t.add(w.CustomNegative)
		}
	}
}

func (s *Scorer) scoreJournaling(t *tally, in Input) {
	w := s.opts.Weights
	tr := in.Trade

	if tr.ImageCount > 0 {
		t.add(min(float64(tr.ImageCount)*w.PerImage, w.MaxImagePoints))
	}
	if tr.HighestPrice > 0 || tr.LowestPrice > 0 || tr.TargetHit != nil {
		t.add(w.Excursion)
	}
	if len([]rune(strings.TrimSpace(tr.LessonsLearned))) >= s.opts.LessonsMinLength {
		t.add(w.LessonsPass)
	} else {
		t.fail(w.LessonsFail, models.RuleJournal, "Lessons learned not recorded")
	}
}

func (s *Scorer) scoreRiskReward(t *tally, in Input) {
	if in.Plan.MinRiskReward <= 0 {
		return
	}
	w := s.opts.Weights
	if in.Metrics.PlannedRR >= in.Plan.MinRiskReward {
		t.add(w.RiskRewardPass)
		return
	}
	t.fail(w.RiskRewardFail, models.RuleRiskReward, "Planned R:R %.2f below minimum %.2f", in.Metrics.PlannedRR, in.Plan.MinRiskReward)
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
