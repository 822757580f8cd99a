package tilt

import "trade-journal/internal/models"

// AggregateInput holds group totals for a dashboard-level tilt.
type AggregateInput struct {
	Trades int
	Wins   int
	Losses int

	AvgScore float64
	// ScoreBaseline is the score the group average is compared against,
	// typically the journal-wide average.
	ScoreBaseline float64

	SentimentPositive int
	SentimentNegative int
	SentimentTotal    int

	CustomPositive int
	CustomNegative int

	AvgRealizedR float64

	NetPnL float64
	// AvgPnLBaseline is the per-trade average P/L the group is compared to.
	AvgPnLBaseline float64
}

// Aggregate computes the six components from group totals rather than
// per-trade history.
func (c *Calculator) Aggregate(in AggregateInput) models.Tilt {
	if in.Trades == 0 {
		return models.Tilt{}
	}

	score := 0.0
	switch {
	case in.AvgScore > in.ScoreBaseline:
		score = 1
	case in.AvgScore < in.ScoreBaseline:
		score = -1
	}

	custom := 0.0
	if n := in.CustomPositive + in.CustomNegative; n > 0 {
		custom = float64(in.CustomPositive-in.CustomNegative) / float64(n)
	}

	neutral := in.Trades - in.Wins - in.Losses
	outcome := (float64(in.Wins) - float64(in.Losses) + NeutralOutcome*float64(neutral)) / float64(in.Trades)

	avgPnL := in.NetPnL / float64(in.Trades)
	pnlComponent := PnLComponent(avgPnL, History{Count: in.Trades, AvgPnL: in.AvgPnLBaseline})

	return c.combine(models.TiltComponents{
		Score:       score,
		Sentiment:   SentimentComponent(in.SentimentPositive, in.SentimentNegative, in.SentimentTotal),
		CustomField: custom,
		RealizedR:   c.RComponent(in.AvgRealizedR),
		Outcome:     clamp(outcome),
		PnL:         pnlComponent,
	})
}
