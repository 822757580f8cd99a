package models

import "time"

// AlertCategory names the behavioral pattern an alert reports.
type AlertCategory string

const (
	AlertWinStreak             AlertCategory = "win_streak"
	AlertLossStreak            AlertCategory = "loss_streak"
	AlertLargestLoss           AlertCategory = "largest_loss"
	AlertClosedBeforeTarget    AlertCategory = "closed_before_target"
	AlertBiasConflict          AlertCategory = "bias_conflict"
	AlertRiskDrift             AlertCategory = "risk_drift"
	AlertProfitTaking          AlertCategory = "profit_taking"
	AlertPlanBreach            AlertCategory = "plan_breach"
	AlertOverconfidence        AlertCategory = "overconfidence"
	AlertDisciplinePerformance AlertCategory = "discipline_performance"
	AlertSetupUnderused        AlertCategory = "setup_underused"
	AlertWeekday               AlertCategory = "weekday"
	AlertBreakevenRut          AlertCategory = "breakeven_rut"
	AlertLowRiskReward         AlertCategory = "low_risk_reward"
)

// AlertSeverity is the display type of an alert.
type AlertSeverity string

const (
	SeveritySuccess  AlertSeverity = "success"
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a behavioral finding appended to a journal's alert log.
type Alert struct {
	ID        string                 `json:"id"`
	Category  AlertCategory          `json:"category"`
	Severity  AlertSeverity          `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Seen      bool                   `json:"seen"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
