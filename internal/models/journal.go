package models

// TimeWindow is a wall-clock range in "HH:MM" form. End before Start means
// the window wraps past midnight.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TradingPlan holds the rules a trader committed to.
type TradingPlan struct {
	ActiveHours    []TimeWindow `json:"active_hours,omitempty"`
	NoTradeWindows []TimeWindow `json:"no_trade_windows,omitempty"`
	Instruments    []string     `json:"instruments,omitempty"`

	// MaxRiskPerTrade is an account-currency amount; MaxRiskPercent is used
	// against capital when the amount is not set.
	MaxRiskPerTrade float64 `json:"max_risk_per_trade" validate:"gte=0"`
	MaxRiskPercent  float64 `json:"max_risk_percent" validate:"gte=0,lte=100"`

	DailyLossLimit      float64 `json:"daily_loss_limit" validate:"gte=0"`
	WeeklyLossLimit     float64 `json:"weekly_loss_limit" validate:"gte=0"`
	MonthlyLossLimit    float64 `json:"monthly_loss_limit" validate:"gte=0"`
	DailyProfitTarget   float64 `json:"daily_profit_target" validate:"gte=0"`
	WeeklyProfitTarget  float64 `json:"weekly_profit_target" validate:"gte=0"`
	MonthlyProfitTarget float64 `json:"monthly_profit_target" validate:"gte=0"`
	MaxTradesPerDay     int     `json:"max_trades_per_day" validate:"gte=0"`
	MinRiskReward       float64 `json:"min_risk_reward" validate:"gte=0"`
}

// MaxRisk returns the per-trade risk limit in account currency, 0 if unset.
func (p TradingPlan) MaxRisk(capital float64) float64 {
	if p.MaxRiskPerTrade > 0 {
		return p.MaxRiskPerTrade
	}
	if p.MaxRiskPercent > 0 && capital > 0 {
		return capital * p.MaxRiskPercent / 100
	}
	return 0
}

// RuleKind discriminates strategy rules.
type RuleKind string

const (
	// RuleKindText is a checklist rule the trader ticks off manually.
	RuleKindText RuleKind = "text"
	// RuleKindAnalysis is satisfied by an analysis selection on a timeframe.
	RuleKindAnalysis RuleKind = "analysis"
)

// Rule is a single strategy rule. Text rules use ID/Text; analysis rules also
// name the timeframe, subcategory and acceptable option ids.
type Rule struct {
	ID          string   `json:"id" validate:"required"`
	Kind        RuleKind `json:"kind" validate:"oneof=text analysis"`
	Text        string   `json:"text,omitempty"`
	Required    bool     `json:"required"`
	Timeframe   string   `json:"timeframe,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	OptionIDs   []string `json:"option_ids,omitempty"`
}

// RuleSet is a named group of strategy rules.
type RuleSet struct {
	Name  string `json:"name"`
	Rules []Rule `json:"rules" validate:"dive"`
}

// RuleCombination requires, on one timeframe, one of the listed option ids
// for every listed subcategory.
type RuleCombination struct {
	Timeframe    string              `json:"timeframe"`
	Requirements map[string][]string `json:"requirements"`
}

// Setup is a named combination of per-timeframe requirements.
type Setup struct {
	Name         string            `json:"name"`
	Combinations []RuleCombination `json:"combinations"`
}

// Strategy is a trading strategy with rules and setups.
type Strategy struct {
	Name     string          `json:"name" validate:"required"`
	RuleSets []RuleSet       `json:"rule_sets,omitempty" validate:"dive"`
	Setups   []Setup         `json:"setups,omitempty"`
	Analysis *AnalysisConfig `json:"analysis,omitempty"`
}

// RequiredRules returns every rule flagged as required, in declaration order.
func (s *Strategy) RequiredRules() []Rule {
	var rules []Rule
	for _, set := range s.RuleSets {
		for _, r := range set.Rules {
			if r.Required {
				rules = append(rules, r)
			}
		}
	}
	return rules
}

// Journal is a trading account with its trades, plan, strategies and alert log.
type Journal struct {
	ID         string      `json:"id" validate:"required"`
	Name       string      `json:"name"`
	Capital    float64     `json:"capital" validate:"gte=0"`
	Balance    float64     `json:"balance"`
	Trades     []Trade     `json:"trades,omitempty"`
	Plan       TradingPlan `json:"plan"`
	Strategies []Strategy  `json:"strategies,omitempty"`
	Alerts     []Alert     `json:"alerts,omitempty"`
}

// Strategy looks a strategy up by name.
func (j *Journal) Strategy(name string) (*Strategy, bool) {
	if j == nil || name == "" {
		return nil, false
	}
	for i := range j.Strategies {
		if j.Strategies[i].Name == name {
			return &j.Strategies[i], true
		}
	}
	return nil, false
}

// Trade looks a trade up by id.
func (j *Journal) Trade(id string) (*Trade, bool) {
	if j == nil {
		return nil, false
	}
	for i := range j.Trades {
		if j.Trades[i].ID == id {
			return &j.Trades[i], true
		}
	}
	return nil, false
}
