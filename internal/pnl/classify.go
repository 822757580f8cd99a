package pnl

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// breakevenPips is the pip band around zero reported as breakeven.
const breakevenPips = 0.5

// Classify derives result, status and outcome from the close and P/L.
func Classify(t *models.Trade, profile models.PricingProfile, res Result) (models.Result, models.Status, models.Outcome) {
	if t == nil || t.ClosePrice == nil {
		return models.ResultRunning, models.StatusOpen, models.OutcomeNeutral
	}

	result := exitResult(t, profile, res)
	if result == models.ResultBE {
		return result, models.StatusClosed, models.OutcomeNeutral
	}

	outcome := models.OutcomeNeutral
	switch {
	case res.NetPnL > 0:
		outcome = models.OutcomeWin
	case res.NetPnL < 0:
		outcome = models.OutcomeLoss
	}
	return result, models.StatusClosed, outcome
}

func exitResult(t *models.Trade, profile models.PricingProfile, res Result) models.Result {
	if abs(res.Pips) < breakevenPips || res.GrossPnL == 0 {
		return models.ResultBE
	}

	tolerance := dec(profile.PipSize).Div(decimal.NewFromInt(2))
	closePrice := dec(*t.ClosePrice)
	if t.TakeProfit > 0 && closePrice.Sub(dec(t.TakeProfit)).Abs().LessThanOrEqual(tolerance) {
		return models.ResultTP
	}
	if t.StopLoss > 0 && closePrice.Sub(dec(t.StopLoss)).Abs().LessThanOrEqual(tolerance) {
		return models.ResultSL
	}
	return models.ResultStop
}

// Excursion returns the maximum favorable and adverse excursion in pips from
// the recorded highest/lowest prices. Unknown extremes give zero.
func Excursion(t *models.Trade, profile models.PricingProfile) (mfe, mae float64) {
	if t == nil || !(profile.PipSize > 0) {
		return 0, 0
	}
	favorable, adverse := t.HighestPrice, t.LowestPrice
	if t.Direction == models.DirectionSell {
		favorable, adverse = t.LowestPrice, t.HighestPrice
	}

	sign := t.Direction.Sign()
	if favorable > 0 {
		mfe = nonNegative(sign * (favorable - t.EntryPrice) / profile.PipSize)
	}
	if adverse > 0 {
		mae = nonNegative(sign * (t.EntryPrice - adverse) / profile.PipSize)
	}
	return Round(mfe, 2), Round(mae, 2)
}

// HoldingTime formats the time between open and close as "1d 2h 5m". Open
// trades and inverted ranges report "N/A".
func HoldingTime(open time.Time, closeTime *time.Time) string {
	if closeTime == nil || closeTime.Before(open) {
		return "N/A"
	}
	d := closeTime.Sub(open)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// HighestNewsImpact returns the strongest impact among the selected events.
func HighestNewsImpact(events []models.NewsEvent) models.NewsImpact {
	highest := models.NewsImpactNone
	for _, e := range events {
		if e.Impact.Rank() > highest.Rank() {
			highest = e.Impact
		}
	}
	return highest
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
