// Package tilt computes the tilt index, a six-factor composite in [-1, 1]
// that flags emotionally driven trading.
package tilt

import (
	"math"

	"trade-journal/internal/models"
)

// Weights defines the weight of each component in the final tilt.
type Weights struct {
	Score       float64 `mapstructure:"score"`
	Sentiment   float64 `mapstructure:"sentiment"`
	CustomField float64 `mapstructure:"custom_field"`
	RealizedR   float64 `mapstructure:"realized_r"`
	Outcome     float64 `mapstructure:"outcome"`
	PnL         float64 `mapstructure:"pnl"`
}

// DefaultWeights returns the default component weights. Discipline and
// sentiment dominate.
func DefaultWeights() Weights {
	return Weights{
		Score:       0.25,
		Sentiment:   0.25,
		CustomField: 0.10,
		RealizedR:   0.15,
		Outcome:     0.15,
		PnL:         0.10,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Score + w.Sentiment + w.CustomField + w.RealizedR + w.Outcome + w.PnL
}

// RCaps shape the realized-R mapping: Pivot maps to 0, Upper to +1 and
// Lower to -1.
type RCaps struct {
	Pivot float64 `mapstructure:"pivot"`
	Upper float64 `mapstructure:"upper"`
	Lower float64 `mapstructure:"lower"`
}

// DefaultRCaps returns the default realized-R caps.
func DefaultRCaps() RCaps {
	return RCaps{Pivot: 1.5, Upper: 3, Lower: -1}
}

// NeutralOutcome is the outcome component of a breakeven or open trade.
const NeutralOutcome = 0.2

// History summarizes earlier trades for the score and P/L components.
type History struct {
	Count    int
	AvgScore float64
	AvgPnL   float64
}

// Input carries the per-trade values a tilt is computed from.
type Input struct {
	Score             float64
	SentimentPositive int
	SentimentNegative int
	SentimentTotal    int
	CustomImpacts     []models.Impact
	RealizedR         float64
	Outcome           models.Outcome
	NetPnL            float64
	History           History
}

// Calculator computes tilt values. It holds no mutable state.
type Calculator struct {
	weights Weights
	caps    RCaps
}

// NewCalculator creates a calculator with the given weights and caps.
func NewCalculator(weights Weights, caps RCaps) *Calculator {
	return &Calculator{weights: weights, caps: caps}
}

// Default returns a calculator with the default weights and caps.
func Default() *Calculator {
	return NewCalculator(DefaultWeights(), DefaultRCaps())
}

// Compute returns the tilt of a single trade against its history.
func (c *Calculator) Compute(in Input) models.Tilt {
	comp := models.TiltComponents{
		Score:       ScoreComponent(in.Score, in.History),
		Sentiment:   SentimentComponent(in.SentimentPositive, in.SentimentNegative, in.SentimentTotal),
		CustomField: CustomFieldComponent(in.CustomImpacts),
		RealizedR:   c.RComponent(in.RealizedR),
		Outcome:     OutcomeComponent(in.Outcome),
		PnL:         PnLComponent(in.NetPnL, in.History),
	}
	return c.combine(comp)
}

func (c *Calculator) combine(comp models.TiltComponents) models.Tilt {
	w := c.weights
	sum := comp.Score*w.Score +
		comp.Sentiment*w.Sentiment +
		comp.CustomField*w.CustomField +
		comp.RealizedR*w.RealizedR +
		comp.Outcome*w.Outcome +
		comp.PnL*w.PnL

	return models.Tilt{
		Components: models.TiltComponents{
			Score:       round3(comp.Score),
			Sentiment:   round3(comp.Sentiment),
			CustomField: round3(comp.CustomField),
			RealizedR:   round3(comp.RealizedR),
			Outcome:     round3(comp.Outcome),
			PnL:         round3(comp.PnL),
		},
		FinalTilt: round3(clamp(sum)),
	}
}

// ScoreComponent is +1 when the score beats the historical average and -1
// otherwise. Without history it is neutral.
func ScoreComponent(score float64, h History) float64 {
	if h.Count == 0 {
		return 0
	}
	if score > h.AvgScore {
		return 1
	}
	return -1
}

// SentimentComponent is (positive - negative) / total, 0 when nothing was
// selected.
func SentimentComponent(positive, negative, total int) float64 {
	if total <= 0 {
		return 0
	}
	return clamp(float64(positive-negative) / float64(total))
}

// CustomFieldComponent averages the signs of impact-tagged selections.
func CustomFieldComponent(impacts []models.Impact) float64 {
	var sum float64
	n := 0
	for _, imp := range impacts {
		s := imp.Sign()
		if s == 0 {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// RComponent maps realized R piecewise-linearly onto [-1, 1].
func (c *Calculator) RComponent(r float64) float64 {
	caps := c.caps
	if math.IsNaN(r) {
		return 0
	}
	if r >= caps.Pivot {
		span := caps.Upper - caps.Pivot
		if span <= 0 {
			return 1
		}
		return clamp((r - caps.Pivot) / span)
	}
	span := caps.Pivot - caps.Lower
	if span <= 0 {
		return -1
	}
	return clamp(-(caps.Pivot - r) / span)
}

// OutcomeComponent is +1 for a win, -1 for a loss and a small positive value
// otherwise.
func OutcomeComponent(o models.Outcome) float64 {
	switch o {
	case models.OutcomeWin:
		return 1
	case models.OutcomeLoss:
		return -1
	default:
		return NeutralOutcome
	}
}

// PnLComponent compares net P/L to the historical average magnitude, falling
// back to the P/L sign when the average is zero.
func PnLComponent(netPnL float64, h History) float64 {
	if h.Count == 0 || h.AvgPnL == 0 {
		return sign(netPnL)
	}
	return clamp(netPnL / math.Abs(h.AvgPnL))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
