package stats

import (
	"sort"

	"trade-journal/internal/models"
)

// KeyFunc extracts the grouping key of a trade.
type KeyFunc func(t *models.Trade) string

// Group is the summary of one breakdown bucket.
type Group struct {
	Key     string  `json:"key"`
	Summary Summary `json:"summary"`
}

// Common grouping keys.
var (
	ByInstrument KeyFunc = func(t *models.Trade) string { return t.Symbol }
	ByStrategy   KeyFunc = func(t *models.Trade) string {
		if t.StrategyName == "" {
			return "None"
		}
		return t.StrategyName
	}
	BySession KeyFunc = func(t *models.Trade) string { return t.Auto.Session }
	ByWeekday KeyFunc = func(t *models.Trade) string { return t.OpenTime.Weekday().String() }
)

// KeyFuncs maps breakdown names to their key functions.
var KeyFuncs = map[string]KeyFunc{
	"instrument": ByInstrument,
	"strategy":   ByStrategy,
	"session":    BySession,
	"weekday":    ByWeekday,
}

// GroupBy splits the live trades by key and summarizes each bucket. Group
// tilts are relative to the whole set. Groups are sorted by key.
func (a *Analyzer) GroupBy(trades []models.Trade, capital float64, s *models.AppSettings, key KeyFunc) []Group {
	overall, _ := a.summarize(trades, capital)
	base := Baseline{AvgScore: overall.AvgScore, AvgPnL: overall.AvgPnL}

	buckets := make(map[string][]models.Trade)
	for _, t := range Live(trades) {
		k := key(t)
		if k == "" {
			k = "N/A"
		}
		buckets[k] = append(buckets[k], *t)
	}

	groups := make([]Group, 0, len(buckets))
	for k, bucket := range buckets {
		sum, acc := a.summarize(bucket, capital)
		sum.Tilt = a.aggregateTilt(sum, acc, s, base)
		groups = append(groups, Group{Key: k, Summary: sum})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// GroupBy groups with the default analyzer.
func GroupBy(trades []models.Trade, capital float64, s *models.AppSettings, key KeyFunc) []Group {
	return NewAnalyzer(nil).GroupBy(trades, capital, s, key)
}
