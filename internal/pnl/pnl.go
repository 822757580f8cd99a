// Package pnl computes profit/loss, pips, costs and risk/reward for trades.
//
// Price differences are evaluated in decimal so that pip counts and money
// values are exact for the prices a trader actually typed.
package pnl

import (
	"math"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Result is the P/L breakdown of a trade.
type Result struct {
	Pips     float64
	GrossPnL float64
	NetPnL   float64
	Costs    models.CostBreakdown
	TotalLot float64
	// Realized is false while no part of the position has been closed.
	Realized bool
}

type leg struct {
	entry decimal.Decimal
	exit  decimal.Decimal
	lot   decimal.Decimal
}

// Calculate computes gross/net P/L and pips. Partial closes are realized
// against the entry price and the final close price applies to the remaining
// lot. Layers are evaluated as separate positions. A zero total lot yields a
// zero result.
func Calculate(t *models.Trade, profile models.PricingProfile) Result {
	if t == nil {
		return Result{}
	}

	pipSize := dec(profile.PipSize)
	if !pipSize.IsPositive() {
		return Result{}
	}
	pipValue := dec(profile.PipValue)
	sign := dec(t.Direction.Sign())

	legs, totalLot := closedLegs(t)
	if !totalLot.IsPositive() {
		return Result{}
	}
	if len(legs) == 0 {
		return Result{TotalLot: totalLot.InexactFloat64()}
	}

	weightedPips := decimal.Zero
	for _, l := range legs {
		pips := l.exit.Sub(l.entry).Div(pipSize).Mul(sign)
		weightedPips = weightedPips.Add(pips.Mul(l.lot))
	}
	gross := weightedPips.Mul(pipValue)
	pips := weightedPips.Div(totalLot)

	costs := calculateCosts(t, profile, totalLot)
	net := gross.Sub(costs.total)

	return Result{
		Pips:     roundFloat(pips, 2),
		GrossPnL: roundFloat(gross, 2),
		NetPnL:   roundFloat(net, 2),
		Costs: models.CostBreakdown{
			Spread:     roundFloat(costs.spread, 2),
			Commission: roundFloat(costs.commission, 2),
			Swap:       roundFloat(costs.swap, 2),
			Total:      roundFloat(costs.total, 2),
		},
		TotalLot: totalLot.InexactFloat64(),
		Realized: true,
	}
}

// closedLegs returns every realized tranche of the trade and the total lot of
// the base position plus all layers.
func closedLegs(t *models.Trade) ([]leg, decimal.Decimal) {
	entry := dec(t.EntryPrice)
	lot := dec(t.LotSize)
	if lot.IsNegative() {
		lot = decimal.Zero
	}
	totalLot := lot

	var legs []leg
	remaining := lot
	for _, p := range t.PartialCloses {
		pl := dec(p.LotSize)
		if !pl.IsPositive() {
			continue
		}
		if pl.GreaterThan(remaining) {
			pl = remaining
		}
		if pl.IsZero() {
			break
		}
		legs = append(legs, leg{entry: entry, exit: dec(p.Price), lot: pl})
		remaining = remaining.Sub(pl)
	}
	if t.ClosePrice != nil && remaining.IsPositive() {
		legs = append(legs, leg{entry: entry, exit: dec(*t.ClosePrice), lot: remaining})
	}

	for _, layer := range t.Layers {
		ll := dec(layer.LotSize)
		if !ll.IsPositive() {
			continue
		}
		totalLot = totalLot.Add(ll)

		var exit *float64
		switch {
		case layer.ClosingPrice != nil:
			exit = layer.ClosingPrice
		case t.ClosePrice != nil:
			exit = t.ClosePrice
		}
		if exit == nil {
			continue
		}
		legs = append(legs, leg{
			entry: dec(layer.EntryPrice),
			exit:  dec(*exit),
			lot:   ll,
		})
	}
	return legs, totalLot
}

type costs struct {
	spread     decimal.Decimal
	commission decimal.Decimal
	swap       decimal.Decimal
	total      decimal.Decimal
}

// calculateCosts applies spread and commission per lot and swap only when
// the position was held across a calendar day.
func calculateCosts(t *models.Trade, profile models.PricingProfile, totalLot decimal.Decimal) costs {
	pipValue := dec(profile.PipValue)

	var c costs
	c.spread = dec(profile.Spread).Mul(totalLot).Mul(pipValue)
	if t.Commission != 0 {
		c.commission = dec(t.Commission)
	} else {
		c.commission = dec(profile.CommissionPerLot).Mul(totalLot)
	}
	if t.Swap != 0 && heldOvernight(t) {
		c.swap = dec(t.Swap)
	}
	c.total = c.spread.Add(c.commission).Add(c.swap)
	return c
}

func heldOvernight(t *models.Trade) bool {
	if t.CloseTime == nil {
		return false
	}
	oy, om, od := t.OpenTime.Date()
	cy, cm, cd := t.CloseTime.In(t.OpenTime.Location()).Date()
	return oy != cy || om != cm || od != cd
}

// PriceToPips converts an absolute price distance to pips.
func PriceToPips(distance, pipSize float64) float64 {
	return roundFloat(pipDistance(distance, 0, pipSize), 2)
}

func pipDistance(a, b, pipSize float64) decimal.Decimal {
	ps := dec(pipSize)
	if !ps.IsPositive() {
		return decimal.Zero
	}
	return dec(a).Sub(dec(b)).Abs().Div(ps)
}

func roundFloat(d decimal.Decimal, places int32) float64 {
	return d.Round(places).InexactFloat64()
}

// Round rounds a float to the given number of decimal places, half away from zero.
func Round(v float64, places int32) float64 {
	return roundFloat(dec(v), places)
}

// dec converts a float to decimal, mapping NaN and infinities to zero.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
