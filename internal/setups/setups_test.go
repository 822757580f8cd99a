package setups

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trade-journal/internal/models"
)

func bullish1h() models.Setup {
	return models.Setup{
		Name: "Trend continuation",
		Combinations: []models.RuleCombination{{
			Timeframe:    "1h",
			Requirements: map[string][]string{"bias": {"Bullish"}},
		}},
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		selections models.AnalysisSelections
		want       bool
	}{
		{
			name:       "bullish on 1h",
			selections: models.AnalysisSelections{"1h": {"bias": {{OptionID: "Bullish"}}}},
			want:       true,
		},
		{
			name:       "one of several selections",
			selections: models.AnalysisSelections{"1h": {"bias": {{OptionID: "Ranging"}, {OptionID: "Bullish", Modifiers: map[string]string{"strength": "strong"}}}}},
			want:       true,
		},
		{
			name:       "timeframe not recorded",
			selections: models.AnalysisSelections{"4h": {"bias": {{OptionID: "Bullish"}}}},
			want:       false,
		},
		{
			name:       "timeframe recorded but empty",
			selections: models.AnalysisSelections{"1h": {"bias": {}}},
			want:       false,
		},
		{
			name:       "wrong option",
			selections: models.AnalysisSelections{"1h": {"bias": {{OptionID: "Bearish"}}}},
			want:       false,
		},
		{
			name:       "no selections",
			selections: nil,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(bullish1h(), tt.selections))
		})
	}
}

func TestMatchRequiresEveryGroup(t *testing.T) {
	setup := models.Setup{
		Name: "Discount long",
		Combinations: []models.RuleCombination{
			{Timeframe: "4h", Requirements: map[string][]string{"bias": {"Bullish"}, "zone": {"Discount", "Equilibrium"}}},
			{Timeframe: "15m", Requirements: map[string][]string{"entry": {"FVG", "OB"}}},
		},
	}

	full := models.AnalysisSelections{
		"4h":  {"bias": {{OptionID: "Bullish"}}, "zone": {{OptionID: "Equilibrium"}}},
		"15m": {"entry": {{OptionID: "OB"}}},
	}
	assert.True(t, Match(setup, full))

	missingZone := models.AnalysisSelections{
		"4h":  {"bias": {{OptionID: "Bullish"}}},
		"15m": {"entry": {{OptionID: "OB"}}},
	}
	assert.False(t, Match(setup, missingZone))

	assert.False(t, Match(models.Setup{Name: "empty"}, full))
}

func TestMatches(t *testing.T) {
	strategy := &models.Strategy{
		Name: "ICT",
		Setups: []models.Setup{
			bullish1h(),
			{Name: "Bearish 1h", Combinations: []models.RuleCombination{{Timeframe: "1h", Requirements: map[string][]string{"bias": {"Bearish"}}}}},
			{Name: "Any 1h", Combinations: []models.RuleCombination{{Timeframe: "1h"}}},
		},
	}
	selections := models.AnalysisSelections{"1h": {"bias": {{OptionID: "Bullish"}}}}

	assert.Equal(t, []string{"Trend continuation", "Any 1h"}, Matches(strategy, selections))
	assert.Equal(t, []string{}, Matches(nil, selections))
}
