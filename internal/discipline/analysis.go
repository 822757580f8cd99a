package discipline

import (
	"sort"
	"strings"

	"trade-journal/internal/models"
)

type subcategoryKind int

const (
	kindFlat subcategoryKind = iota
	kindBias
	kindVolatility
	kindZone
)

func kindOf(subcategoryID string, cfg models.AnalysisConfig) subcategoryKind {
	name := subcategoryID
	if sub, ok := cfg.Subcategory(subcategoryID); ok && sub.Name != "" {
		name = subcategoryID + " " + sub.Name
	}
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "bias"):
		return kindBias
	case strings.Contains(name, "volatility"):
		return kindVolatility
	case strings.Contains(name, "zone"):
		return kindZone
	default:
		return kindFlat
	}
}

// scoreAnalysis walks the selections in sorted timeframe/subcategory order so
// the float sum and remark order are stable.
func (s *Scorer) scoreAnalysis(t *tally, in Input) {
	w := s.opts.Weights
	dir := in.Trade.Direction

	timeframes := make([]string, 0, len(in.Trade.Analysis))
	for tf := range in.Trade.Analysis {
		timeframes = append(timeframes, tf)
	}
	sort.Strings(timeframes)

	for _, tf := range timeframes {
		weight := TimeframeWeight(tf)
		subs := in.Trade.Analysis[tf]

		ids := make([]string, 0, len(subs))
		for id := range subs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, subID := range ids {
			kind := kindOf(subID, in.Analysis)
			for _, sel := range subs[subID] {
				label := strings.ToLower(sel.OptionID + " " + in.Analysis.OptionLabel(subID, sel.OptionID))
				switch kind {
				case kindBias:
					switch {
					case strings.Contains(label, "bull"):
						if dir == models.DirectionBuy {
							t.add(weight)
						} else {
							t.fail(-weight, models.RuleAnalysis, "%s bias is bullish but trade is %s", tf, dir)
						}
					case strings.Contains(label, "bear"):
						if dir == models.DirectionSell {
							t.add(weight)
						} else {
							t.fail(-weight, models.RuleAnalysis, "%s bias is bearish but trade is %s", tf, dir)
						}
					default:
						t.add(w.FlatSelection)
					}
				case kindVolatility:
					if strings.Contains(label, "low") {
						t.fail(-weight, models.RuleAnalysis, "%s volatility is low", tf)
					} else {
						t.add(w.FlatSelection)
					}
				case kindZone:
					switch {
					case strings.Contains(label, "equilibrium"):
						t.add(weight / 2)
					case strings.Contains(label, "discount"):
						if dir == models.DirectionBuy {
							t.add(weight)
						} else {
							t.fail(-weight, models.RuleAnalysis, "%s sell from discount", tf)
						}
					case strings.Contains(label, "premium"):
						if dir == models.DirectionSell {
							t.add(weight)
						} else {
							t.fail(-weight, models.RuleAnalysis, "%s buy from premium", tf)
						}
					default:
						t.add(w.FlatSelection)
					}
				default:
					t.add(w.FlatSelection)
				}
			}
		}
	}
}
