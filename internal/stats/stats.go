// Package stats computes aggregate analytics over sets of trades.
package stats

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"trade-journal/internal/models"
	"trade-journal/internal/tilt"
)

// Ratio is a float that may legitimately be +Inf. It encodes infinity as the
// JSON string "Infinity".
type Ratio float64

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	v := float64(r)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// IsInf reports whether the ratio is infinite.
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 0)
}

// Summary is the aggregate view of a trade set.
type Summary struct {
	Trades     int `json:"trades"`
	Open       int `json:"open"`
	Closed     int `json:"closed"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Breakevens int `json:"breakevens"`

	WinRate     float64 `json:"win_rate"` // percent of closed trades
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"` // positive magnitude
	NetPnL      float64 `json:"net_pnl"`
	// ProfitFactor is +Inf when there are no losses and profit > 0.
	ProfitFactor Ratio   `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	AvgPnL       float64 `json:"avg_pnl"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`

	AvgLotSize    float64       `json:"avg_lot_size"`
	MaxWinStreak  int           `json:"max_win_streak"`
	MaxLossStreak int           `json:"max_loss_streak"`
	AvgHolding    time.Duration `json:"avg_holding"`
	AvgScore      float64       `json:"avg_score"`

	TotalR        float64 `json:"total_r"`
	AvgR          float64 `json:"avg_r"`
	AvgPlannedRR  float64 `json:"avg_planned_rr"`
	ReturnPercent float64 `json:"return_percent"`

	Tilt models.Tilt `json:"tilt"`
}

// Baseline is the reference a group is compared to for its aggregate tilt.
type Baseline struct {
	AvgScore float64
	AvgPnL   float64
}

// Analyzer computes summaries. It holds no mutable state.
type Analyzer struct {
	tilt *tilt.Calculator
}

// NewAnalyzer creates an analyzer using calc for aggregate tilt.
func NewAnalyzer(calc *tilt.Calculator) *Analyzer {
	if calc == nil {
		calc = tilt.Default()
	}
	return &Analyzer{tilt: calc}
}

// Summarize computes the summary of trades with the default analyzer.
func Summarize(trades []models.Trade, capital float64, s *models.AppSettings) Summary {
	return NewAnalyzer(nil).Summarize(trades, capital, s)
}

// Summarize aggregates the closed live trades. The tilt baseline is the set
// itself.
func (a *Analyzer) Summarize(trades []models.Trade, capital float64, s *models.AppSettings) Summary {
	sum, acc := a.summarize(trades, capital)
	sum.Tilt = a.aggregateTilt(sum, acc, s, Baseline{AvgScore: sum.AvgScore, AvgPnL: sum.AvgPnL})
	return sum
}

type accumulator struct {
	closed []*models.Trade
}

func (a *Analyzer) summarize(trades []models.Trade, capital float64) (Summary, accumulator) {
	var sum Summary
	var acc accumulator

	live := Live(trades)
	sum.Trades = len(live)

	var lots, scores, plannedRR, holding float64
	var rCount, holdCount, rrCount int
	for _, t := range live {
		if !t.IsClosed() {
			sum.Open++
			continue
		}
		acc.closed = append(acc.closed, t)
		sum.Closed++

		pnl := t.Auto.NetPnL
		sum.NetPnL += pnl
		switch t.Auto.Outcome {
		case models.OutcomeWin:
			sum.Wins++
			sum.GrossProfit += pnl
			sum.LargestWin = math.Max(sum.LargestWin, pnl)
		case models.OutcomeLoss:
			sum.Losses++
			sum.GrossLoss += -pnl
			sum.LargestLoss = math.Min(sum.LargestLoss, pnl)
		default:
			sum.Breakevens++
		}

		lots += t.LotSize
		scores += t.Auto.Score.Value
		if t.Auto.RiskAmount > 0 {
			sum.TotalR += t.Auto.NetPnL / t.Auto.RiskAmount
			rCount++
		}
		if t.Auto.PlannedRR > 0 {
			plannedRR += t.Auto.PlannedRR
			rrCount++
		}
		if t.CloseTime != nil && !t.CloseTime.Before(t.OpenTime) {
			holding += float64(t.CloseTime.Sub(t.OpenTime))
			holdCount++
		}
	}

	if sum.Closed == 0 {
		return sum, acc
	}

	n := float64(sum.Closed)
	sum.WinRate = float64(sum.Wins) / n * 100
	sum.AvgPnL = sum.NetPnL / n
	sum.AvgLotSize = lots / n
	sum.AvgScore = scores / n
	if sum.Wins > 0 {
		sum.AvgWin = sum.GrossProfit / float64(sum.Wins)
	}
	if sum.Losses > 0 {
		sum.AvgLoss = sum.GrossLoss / float64(sum.Losses)
	}
	sum.ProfitFactor = ProfitFactor(sum.GrossProfit, sum.GrossLoss)
	sum.Expectancy = float64(sum.Wins)/n*sum.AvgWin - float64(sum.Losses)/n*sum.AvgLoss
	if rCount > 0 {
		sum.AvgR = sum.TotalR / float64(rCount)
	}
	if rrCount > 0 {
		sum.AvgPlannedRR = plannedRR / float64(rrCount)
	}
	if holdCount > 0 {
		sum.AvgHolding = time.Duration(holding / float64(holdCount))
	}
	if capital > 0 {
		sum.ReturnPercent = sum.NetPnL / capital * 100
	}
	sum.MaxWinStreak, sum.MaxLossStreak = Streaks(acc.closed)
	return sum, acc
}

func (a *Analyzer) aggregateTilt(sum Summary, acc accumulator, s *models.AppSettings, base Baseline) models.Tilt {
	in := tilt.AggregateInput{
		Trades:         sum.Closed,
		Wins:           sum.Wins,
		Losses:         sum.Losses,
		AvgScore:       sum.AvgScore,
		ScoreBaseline:  base.AvgScore,
		AvgRealizedR:   sum.AvgR,
		NetPnL:         sum.NetPnL,
		AvgPnLBaseline: base.AvgPnL,
	}
	for _, t := range acc.closed {
		pos, neg, total := s.SentimentCounts(t)
		in.SentimentPositive += pos
		in.SentimentNegative += neg
		in.SentimentTotal += total
		for _, imp := range s.CustomFieldImpacts(t) {
			switch imp {
			case models.ImpactPositive:
				in.CustomPositive++
			case models.ImpactNegative:
				in.CustomNegative++
			}
		}
	}
	return a.tilt.Aggregate(in)
}

// ProfitFactor is gross profit over gross loss: +Inf with profit and no
// losses, 0 with neither.
func ProfitFactor(grossProfit, grossLoss float64) Ratio {
	if grossLoss <= 0 {
		if grossProfit > 0 {
			return Ratio(math.Inf(1))
		}
		return 0
	}
	return Ratio(grossProfit / grossLoss)
}

// Live returns pointers to the non-missing trades, stably sorted by open time.
func Live(trades []models.Trade) []*models.Trade {
	out := make([]*models.Trade, 0, len(trades))
	for i := range trades {
		if !trades[i].Missing {
			out = append(out, &trades[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].OpenTime.Before(out[b].OpenTime)
	})
	return out
}

// Streaks returns the longest win and loss runs in the given order.
// Breakevens end both runs.
func Streaks(trades []*models.Trade) (maxWin, maxLoss int) {
	var win, loss int
	for _, t := range trades {
		switch t.Auto.Outcome {
		case models.OutcomeWin:
			win++
			loss = 0
		case models.OutcomeLoss:
			loss++
			win = 0
		default:
			win, loss = 0, 0
		}
		maxWin = max(maxWin, win)
		maxLoss = max(maxLoss, loss)
	}
	return maxWin, maxLoss
}
