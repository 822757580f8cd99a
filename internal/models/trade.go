package models

import "time"

// Direction represents the side of a trade.
type Direction string

const (
	DirectionBuy  Direction = "Buy"
	DirectionSell Direction = "Sell"
)

// Sign returns +1 for buys and -1 for sells.
func (d Direction) Sign() float64 {
	if d == DirectionSell {
		return -1
	}
	return 1
}

// PartialClose represents a tranche of the position closed before the final exit.
type PartialClose struct {
	LotSize float64 `json:"lot_size" validate:"gte=0"`
	Price   float64 `json:"price" validate:"gte=0"`
}

// Layer represents an additional entry added on top of the base position.
type Layer struct {
	LotSize      float64  `json:"lot_size" validate:"gte=0"`
	EntryPrice   float64  `json:"entry_price" validate:"gte=0"`
	ClosingPrice *float64 `json:"closing_price,omitempty"`
	StopLoss     float64  `json:"stop_loss" validate:"gte=0"`
	TakeProfit   float64  `json:"take_profit" validate:"gte=0"`
}

// AnalysisSelection is a single option picked in the analysis checklist.
// Modifiers carry free-form key/value refinements (e.g. "strength": "strong").
type AnalysisSelection struct {
	OptionID  string            `json:"option_id"`
	Modifiers map[string]string `json:"modifiers,omitempty"`
}

// SubcategorySelections maps subcategory id to the options selected for it.
type SubcategorySelections map[string][]AnalysisSelection

// AnalysisSelections maps timeframe to its subcategory selections.
type AnalysisSelections map[string]SubcategorySelections

// OptionIDs returns the selected option ids for a timeframe and subcategory.
func (a AnalysisSelections) OptionIDs(timeframe, subcategory string) []string {
	subs, ok := a[timeframe]
	if !ok {
		return nil
	}
	sel := subs[subcategory]
	ids := make([]string, 0, len(sel))
	for _, s := range sel {
		ids = append(ids, s.OptionID)
	}
	return ids
}

// HasTimeframe reports whether any selection was recorded for the timeframe.
func (a AnalysisSelections) HasTimeframe(timeframe string) bool {
	subs, ok := a[timeframe]
	if !ok {
		return false
	}
	for _, sel := range subs {
		if len(sel) > 0 {
			return true
		}
	}
	return false
}

// SentimentStage is the moment of the trade a sentiment was recorded for.
type SentimentStage string

const (
	StageBefore SentimentStage = "Before"
	StageDuring SentimentStage = "During"
	StageAfter  SentimentStage = "After"
)

// NewsImpact represents the impact level of a news event.
type NewsImpact string

const (
	NewsImpactNone   NewsImpact = "None"
	NewsImpactLow    NewsImpact = "Low"
	NewsImpactMedium NewsImpact = "Medium"
	NewsImpactHigh   NewsImpact = "High"
)

// Rank orders impacts from None (0) to High (3).
func (n NewsImpact) Rank() int {
	switch n {
	case NewsImpactLow:
		return 1
	case NewsImpactMedium:
		return 2
	case NewsImpactHigh:
		return 3
	default:
		return 0
	}
}

// NewsEvent represents a news event selected on a trade.
type NewsEvent struct {
	Name   string     `json:"name"`
	Impact NewsImpact `json:"impact"`
}

// Trade represents a journaled trade. Everything except Auto is user-entered;
// Auto is always recomputed from the trade and its journal.
type Trade struct {
	ID         string     `json:"id" validate:"required"`
	Symbol     string     `json:"symbol" validate:"required"`
	Direction  Direction  `json:"direction" validate:"oneof=Buy Sell"`
	LotSize    float64    `json:"lot_size" validate:"gte=0"`
	EntryPrice float64    `json:"entry_price" validate:"gte=0"`
	ClosePrice *float64   `json:"close_price,omitempty"`
	StopLoss   float64    `json:"stop_loss" validate:"gte=0"`
	TakeProfit float64    `json:"take_profit" validate:"gte=0"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`

	PartialCloses []PartialClose `json:"partial_closes,omitempty" validate:"dive"`
	Layers        []Layer        `json:"layers,omitempty" validate:"dive"`

	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`

	// Extreme prices reached while the trade was open; zero when unknown.
	HighestPrice float64 `json:"highest_price,omitempty" validate:"gte=0"`
	LowestPrice  float64 `json:"lowest_price,omitempty" validate:"gte=0"`
	TargetHit    *bool   `json:"target_hit,omitempty"`

	Analysis     AnalysisSelections          `json:"analysis,omitempty"`
	Sentiments   map[SentimentStage][]string `json:"sentiments,omitempty"`
	CustomFields map[string]interface{}      `json:"custom_fields,omitempty"`
	NewsEvents   []NewsEvent                 `json:"news_events,omitempty"`

	Tags           []string `json:"tags,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	LessonsLearned string   `json:"lessons_learned,omitempty"`
	ImageCount     int      `json:"image_count" validate:"gte=0"`

	StrategyName     string   `json:"strategy_name,omitempty"`
	SatisfiedRuleIDs []string `json:"satisfied_rule_ids,omitempty"`

	// Missing marks placeholder trades that are kept out of every baseline.
	Missing bool `json:"missing,omitempty"`

	Auto AutoCalculated `json:"auto"`
}

// IsClosed reports whether the trade has a final close price.
func (t *Trade) IsClosed() bool {
	return t.ClosePrice != nil
}

// SentimentTags returns all selected sentiment tags in stage order.
func (t *Trade) SentimentTags() []string {
	var tags []string
	for _, stage := range []SentimentStage{StageBefore, StageDuring, StageAfter} {
		tags = append(tags, t.Sentiments[stage]...)
	}
	return tags
}

// Status represents whether the trade is still open.
type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)

// Result describes how the trade was exited.
type Result string

const (
	ResultTP      Result = "TP"
	ResultSL      Result = "SL"
	ResultBE      Result = "BE"
	ResultStop    Result = "Stop"
	ResultRunning Result = "Running"
)

// Outcome classifies the realized result.
type Outcome string

const (
	OutcomeWin     Outcome = "Win"
	OutcomeLoss    Outcome = "Loss"
	OutcomeNeutral Outcome = "Neutral"
)

// ScoreColor is the three-band classification of a discipline score.
type ScoreColor string

const (
	ScoreGreen  ScoreColor = "green"
	ScoreYellow ScoreColor = "yellow"
	ScoreRed    ScoreColor = "red"
)

// RuleCategory groups discipline remarks by the rule family that produced them.
type RuleCategory string

const (
	RuleRisk       RuleCategory = "risk"
	RuleTiming     RuleCategory = "timing"
	RuleInstrument RuleCategory = "instrument"
	RuleStrategy   RuleCategory = "strategy"
	RuleAnalysis   RuleCategory = "analysis"
	RuleSentiment  RuleCategory = "sentiment"
	RuleJournal    RuleCategory = "journal"
	RulePlan       RuleCategory = "plan"
	RuleRiskReward RuleCategory = "risk_reward"
)

// Remark is a single failed-rule note produced by the discipline scorer.
type Remark struct {
	Rule    RuleCategory `json:"rule"`
	Message string       `json:"message"`
}

// DisciplineScore is the bounded compliance score of a trade.
type DisciplineScore struct {
	Value   float64    `json:"value"`
	Remark  string     `json:"remark"`
	Color   ScoreColor `json:"color"`
	Remarks []Remark   `json:"remarks,omitempty"`
}

// TiltComponents are the six normalized inputs of the tilt index.
type TiltComponents struct {
	Score       float64 `json:"score"`
	Sentiment   float64 `json:"sentiment"`
	CustomField float64 `json:"custom_field"`
	RealizedR   float64 `json:"realized_r"`
	Outcome     float64 `json:"outcome"`
	PnL         float64 `json:"pnl"`
}

// Tilt is the weighted composite of the tilt components.
type Tilt struct {
	Components TiltComponents `json:"components"`
	FinalTilt  float64        `json:"final_tilt"`
}

// CostBreakdown itemizes trading costs deducted from gross P/L.
type CostBreakdown struct {
	Spread     float64 `json:"spread"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Total      float64 `json:"total"`
}

// AutoCalculated is the derived block of a trade.
type AutoCalculated struct {
	Session           string          `json:"session"`
	Zone              string          `json:"zone"`
	Result            Result          `json:"result"`
	Status            Status          `json:"status"`
	Outcome           Outcome         `json:"outcome"`
	Pips              float64         `json:"pips"`
	GrossPnL          float64         `json:"gross_pnl"`
	NetPnL            float64         `json:"net_pnl"`
	RiskPips          float64         `json:"risk_pips"`
	RewardPips        float64         `json:"reward_pips"`
	RiskAmount        float64         `json:"risk_amount"`
	PlannedRR         float64         `json:"planned_rr"`
	RealizedR         float64         `json:"realized_r"`
	RiskPercent       float64         `json:"risk_percent"`
	GainPercent       float64         `json:"gain_percent"`
	HoldingTime       string          `json:"holding_time"`
	Score             DisciplineScore `json:"score"`
	Tilt              Tilt            `json:"tilt"`
	MatchedSetups     []string        `json:"matched_setups"`
	HighestNewsImpact NewsImpact      `json:"highest_news_impact"`
	MFEPips           float64         `json:"mfe_pips"`
	MAEPips           float64         `json:"mae_pips"`
	Costs             CostBreakdown   `json:"costs"`
}
