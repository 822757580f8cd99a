package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
)

func taxonomy() AnalysisConfig {
	return AnalysisConfig{Categories: []AnalysisCategory{{
		ID:   "structure",
		Name: "Structure",
		Subcategories: []AnalysisSubcategory{{
			ID:      "bias",
			Name:    "Bias",
			Options: []AnalysisOption{{ID: "bull", Label: "Bullish"}, {ID: "bear", Label: "Bearish"}},
		}},
	}}}
}

func TestMergeOverlaysWithoutMutating(t *testing.T) {
	base := taxonomy()
	overlay := &AnalysisConfig{Categories: []AnalysisCategory{
		{
			ID: "structure",
			Subcategories: []AnalysisSubcategory{{
				ID:        "bias",
				Options:   []AnalysisOption{{ID: "bull", Label: "Strong bull"}, {ID: "range", Label: "Ranging"}},
				Modifiers: []string{"strength"},
			}},
		},
		{ID: "flow", Name: "Order flow"},
	}}

	merged := base.Merge(overlay)

	require.Len(t, merged.Categories, 2)
	assert.Equal(t, "Structure", merged.Categories[0].Name)
	assert.Equal(t, "Strong bull", merged.OptionLabel("bias", "bull"))
	assert.Equal(t, "Ranging", merged.OptionLabel("bias", "range"))
	assert.Equal(t, "Bearish", merged.OptionLabel("bias", "bear"))
	sub, ok := merged.Subcategory("bias")
	require.True(t, ok)
	assert.Equal(t, []string{"strength"}, sub.Modifiers)

	assert.Equal(t, taxonomy(), base, "base taxonomy unchanged")
	assert.Equal(t, "Bullish", base.OptionLabel("bias", "bull"))

	merged.Categories[0].Subcategories[0].Options[0].Label = "edited"
	assert.Equal(t, "Ranging", overlay.Categories[0].Subcategories[0].Options[1].Label)
	assert.Equal(t, "Strong bull", overlay.Categories[0].Subcategories[0].Options[0].Label)
}

func TestMergeNilOverlayCopies(t *testing.T) {
	base := taxonomy()
	merged := base.Merge(nil)
	assert.Equal(t, base, merged)
	merged.Categories[0].Subcategories[0].Options[0].Label = "edited"
	assert.Equal(t, "Bullish", base.OptionLabel("bias", "bull"))
}

func TestOptionLabelFallsBackToID(t *testing.T) {
	c := taxonomy()
	assert.Equal(t, "sideways", c.OptionLabel("bias", "sideways"))
	assert.Equal(t, "x", c.OptionLabel("missing", "x"))
}

func TestImpactOf(t *testing.T) {
	s := &AppSettings{Keywords: map[string]Impact{"Calm": ImpactPositive, "FOMO": ImpactNegative}}
	assert.Equal(t, ImpactPositive, s.ImpactOf("Calm"))
	assert.Equal(t, ImpactNegative, s.ImpactOf(" fomo "))
	assert.Equal(t, ImpactNeutral, s.ImpactOf("bored"))

	var none *AppSettings
	assert.Equal(t, ImpactNeutral, none.ImpactOf("Calm"))
}

func TestImpactOfCaseCollisionIsStable(t *testing.T) {
	s := &AppSettings{Keywords: map[string]Impact{
		"Fear": ImpactNegative,
		"FEAR": ImpactPositive,
		"fear ": ImpactNeutral,
	}}
	assert.Equal(t, ImpactNegative, s.ImpactOf("Fear"), "exact key wins")
	for i := 0; i < 50; i++ {
		require.Equal(t, ImpactPositive, s.ImpactOf("fear"), "first key in sorted order")
	}
}

func TestSentimentCounts(t *testing.T) {
	s := &AppSettings{Keywords: map[string]Impact{"Calm": ImpactPositive, "Focused": ImpactPositive, "FOMO": ImpactNegative}}
	tr := &Trade{Sentiments: map[SentimentStage][]string{
		StageBefore: {"Calm", "Focused"},
		StageAfter:  {"FOMO"},
	}}
	pos, neg, total := s.SentimentCounts(tr)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 1, neg)
	assert.Equal(t, 3, total)
}

func TestCustomFieldImpacts(t *testing.T) {
	s := &AppSettings{CustomFields: []CustomField{{
		ID: "sleep",
		Options: []CustomFieldOption{
			{ID: "good", Label: "Good", Impact: ImpactPositive},
			{ID: "poor", Label: "Poor", Impact: ImpactNegative},
			{ID: "ok", Label: "OK"},
		},
	}}}

	tests := []struct {
		name  string
		value interface{}
		want  []Impact
	}{
		{"single id", "good", []Impact{ImpactPositive}},
		{"label", "Poor", []Impact{ImpactNegative}},
		{"decoded list", []interface{}{"good", "poor", "ok"}, []Impact{ImpactPositive, ImpactNegative}},
		{"string list", []string{"poor"}, []Impact{ImpactNegative}},
		{"untagged", "ok", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Trade{CustomFields: map[string]interface{}{"sleep": tt.value}}
			assert.Equal(t, tt.want, s.CustomFieldImpacts(tr))
		})
	}
}

func TestValidateTrade(t *testing.T) {
	valid := func() Trade {
		return Trade{
			ID:         "t1",
			Symbol:     "EURUSD",
			Direction:  DirectionBuy,
			LotSize:    1,
			EntryPrice: 1.1,
			OpenTime:   time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		}
	}

	tr := valid()
	assert.NoError(t, ValidateTrade(&tr))

	tr = valid()
	tr.Direction = "Long"
	assert.Error(t, ValidateTrade(&tr))

	tr = valid()
	tr.LotSize = -1
	err := ValidateTrade(&tr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTrade)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "LotSize", verr.Field)
	assert.Equal(t, -1.0, verr.Value)

	tr = valid()
	tr.PartialCloses = []PartialClose{{LotSize: 0.5, Price: 1.11}, {LotSize: 0.5, Price: 1.12}}
	assert.NoError(t, ValidateTrade(&tr), "partials may add up to the full lot")

	tr.PartialCloses = append(tr.PartialCloses, PartialClose{LotSize: 0.1, Price: 1.13})
	err = ValidateTrade(&tr)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "PartialCloses", verr.Field)
	assert.Contains(t, verr.Message, "partial_lots_lte_lot_size")
}

func TestValidateJournal(t *testing.T) {
	j := &Journal{ID: "j1", Capital: 1000, Trades: []Trade{{}}}
	assert.NoError(t, ValidateJournal(j), "trades are validated separately")

	j.Capital = -1
	err := ValidateJournal(j)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Capital", verr.Field)
}

func TestJournalLookups(t *testing.T) {
	j := &Journal{
		Trades:     []Trade{{ID: "a"}, {ID: "b"}},
		Strategies: []Strategy{{Name: "Breakout"}},
	}
	tr, ok := j.Trade("b")
	require.True(t, ok)
	tr.Notes = "edited"
	assert.Equal(t, "edited", j.Trades[1].Notes, "lookup returns the stored trade")

	_, ok = j.Trade("c")
	assert.False(t, ok)
	_, ok = j.Strategy("Breakout")
	assert.True(t, ok)
	_, ok = j.Strategy("")
	assert.False(t, ok)

	var none *Journal
	_, ok = none.Strategy("Breakout")
	assert.False(t, ok)
}
