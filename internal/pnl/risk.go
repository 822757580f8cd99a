package pnl

import (
	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Risk holds the planned risk/reward of a trade and its realized R.
type Risk struct {
	RiskPips    float64
	RewardPips  float64
	RiskAmount  float64
	PlannedRR   float64
	RealizedR   float64
	RiskPercent float64
	GainPercent float64
}

// CalculateRisk derives risk and reward from stop/target distances. Unset
// levels count as zero distance and every ratio is zero when its divisor is.
// Percentages are relative to capital as passed in.
func CalculateRisk(t *models.Trade, profile models.PricingProfile, netPnL, capital float64) Risk {
	if t == nil || !(profile.PipSize > 0) {
		return Risk{}
	}

	pipValue := dec(profile.PipValue)

	riskPips := decimal.Zero
	if t.StopLoss > 0 {
		riskPips = pipDistance(t.EntryPrice, t.StopLoss, profile.PipSize)
	}
	rewardPips := decimal.Zero
	if t.TakeProfit > 0 {
		rewardPips = pipDistance(t.TakeProfit, t.EntryPrice, profile.PipSize)
	}

	lot := dec(t.LotSize)
	if lot.IsNegative() {
		lot = decimal.Zero
	}
	riskAmount := riskPips.Mul(lot).Mul(pipValue)
	for _, layer := range t.Layers {
		if layer.StopLoss <= 0 || layer.LotSize <= 0 {
			continue
		}
		lp := pipDistance(layer.EntryPrice, layer.StopLoss, profile.PipSize)
		riskAmount = riskAmount.Add(lp.Mul(dec(layer.LotSize)).Mul(pipValue))
	}

	r := Risk{
		RiskPips:   roundFloat(riskPips, 2),
		RewardPips: roundFloat(rewardPips, 2),
		RiskAmount: roundFloat(riskAmount, 2),
	}
	if riskPips.IsPositive() {
		r.PlannedRR = roundFloat(rewardPips.Div(riskPips), 2)
	}

	net := dec(netPnL)
	if riskAmount.IsPositive() {
		r.RealizedR = roundFloat(net.Div(riskAmount), 2)
	}
	if c := dec(capital); c.IsPositive() {
		hundred := decimal.NewFromInt(100)
		r.RiskPercent = roundFloat(riskAmount.Div(c).Mul(hundred), 2)
		r.GainPercent = roundFloat(net.Div(c).Mul(hundred), 2)
	}
	return r
}
