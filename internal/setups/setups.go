// Package setups matches trade analysis selections against strategy setups.
package setups

import "trade-journal/internal/models"

// Match reports whether the trade satisfies every combination of the setup.
// Each referenced timeframe must have recorded selections, and every required
// subcategory must contain at least one of the required option ids. A setup
// without combinations never matches.
func Match(setup models.Setup, selections models.AnalysisSelections) bool {
	if len(setup.Combinations) == 0 {
		return false
	}
	for _, combo := range setup.Combinations {
		if !selections.HasTimeframe(combo.Timeframe) {
			return false
		}
		for subcategory, required := range combo.Requirements {
			if !anyOf(selections.OptionIDs(combo.Timeframe, subcategory), required) {
				return false
			}
		}
	}
	return true
}

// Matches returns the names of the strategy's setups the trade satisfies, in
// declaration order. The result is never nil.
func Matches(strategy *models.Strategy, selections models.AnalysisSelections) []string {
	names := []string{}
	if strategy == nil {
		return names
	}
	for _, setup := range strategy.Setups {
		if Match(setup, selections) {
			names = append(names, setup.Name)
		}
	}
	return names
}

func anyOf(selected, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, s := range selected {
		for _, r := range required {
			if s == r {
				return true
			}
		}
	}
	return false
}
