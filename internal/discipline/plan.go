package discipline

import (
	"time"

	"trade-journal/internal/models"
	"trade-journal/internal/pnl"
	"trade-journal/internal/pricing"
)

type period int

const (
	periodDay period = iota
	periodWeek
	periodMonth
)

func (p period) String() string {
	switch p {
	case periodWeek:
		return "weekly"
	case periodMonth:
		return "monthly"
	default:
		return "daily"
	}
}

func samePeriod(p period, a, b time.Time) bool {
	b = b.In(a.Location())
	switch p {
	case periodWeek:
		ay, aw := a.ISOWeek()
		by, bw := b.ISOWeek()
		return ay == by && aw == bw
	case periodMonth:
		return a.Year() == b.Year() && a.Month() == b.Month()
	default:
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	}
}

type periodStats struct {
	trades int
	netPnL float64
}

// earlierInPeriod aggregates the journal's live trades opened before tr in
// the same period. Their P/L is recomputed rather than read from storage.
func (s *Scorer) earlierInPeriod(p period, tr *models.Trade, journal []models.Trade, resolver *pricing.Resolver) periodStats {
	var st periodStats
	for i := range journal {
		other := &journal[i]
		if other.Missing || other.ID == tr.ID || !other.OpenTime.Before(tr.OpenTime) {
			continue
		}
		if !samePeriod(p, tr.OpenTime, other.OpenTime) {
			continue
		}
		st.trades++
		if other.IsClosed() {
			st.netPnL += pnl.Calculate(other, resolver.Resolve(other.Symbol)).NetPnL
		}
	}
	return st
}

func (s *Scorer) scorePlanThresholds(t *tally, in Input) {
	w := s.opts.Weights
	plan := in.Plan
	resolver := in.Pricing
	if resolver == nil {
		resolver = s.opts.Pricing
	}

	checks := []struct {
		period       period
		profitTarget float64
		lossLimit    float64
	}{
		{periodDay, plan.DailyProfitTarget, plan.DailyLossLimit},
		{periodWeek, plan.WeeklyProfitTarget, plan.WeeklyLossLimit},
		{periodMonth, plan.MonthlyProfitTarget, plan.MonthlyLossLimit},
	}

	for _, c := range checks {
		if c.profitTarget <= 0 && c.lossLimit <= 0 && (c.period != periodDay || plan.MaxTradesPerDay <= 0) {
			continue
		}
		st := s.earlierInPeriod(c.period, in.Trade, in.Journal, resolver)

		if c.profitTarget > 0 {
			if st.netPnL >= c.profitTarget {
				t.fail(w.PlanFail, models.RulePlan, "%s profit target %.2f already reached", c.period, c.profitTarget)
			} else {
				t.add(w.PlanPass)
			}
		}
		if c.lossLimit > 0 {
			if st.netPnL <= -c.lossLimit {
				t.fail(w.PlanFail, models.RulePlan, "%s loss limit %.2f already hit", c.period, c.lossLimit)
			} else {
				t.add(w.PlanPass)
			}
		}
		if c.period == periodDay && plan.MaxTradesPerDay > 0 {
			if st.trades >= plan.MaxTradesPerDay {
				t.fail(w.PlanFail, models.RulePlan, "max trades per day (%d) already reached", plan.MaxTradesPerDay)
			} else {
				t.add(w.PlanPass)
			}
		}
	}
}
