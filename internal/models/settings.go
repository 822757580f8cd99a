package models

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// OtherInstrument is the pricing key used for symbols without their own profile.
const OtherInstrument = "Other"

// PricingProfile describes how price movement converts into money.
type PricingProfile struct {
	PipSize          float64 `json:"pip_size" mapstructure:"pip_size"`
	PipValue         float64 `json:"pip_value" mapstructure:"pip_value"`
	Spread           float64 `json:"spread" mapstructure:"spread"` // in pips
	CommissionPerLot float64 `json:"commission_per_lot" mapstructure:"commission_per_lot"`
}

// AnalysisOption is a selectable option of a subcategory.
type AnalysisOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AnalysisSubcategory groups options. Modifiers name the free-form keys a
// selection may carry.
type AnalysisSubcategory struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Options   []AnalysisOption `json:"options"`
	Modifiers []string         `json:"modifiers,omitempty"`
}

// AnalysisCategory is the top level of the analysis taxonomy.
type AnalysisCategory struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Subcategories []AnalysisSubcategory `json:"subcategories"`
}

// AnalysisConfig is the category → subcategory → option taxonomy.
type AnalysisConfig struct {
	Categories []AnalysisCategory `json:"categories"`
}

// Subcategory finds a subcategory by id anywhere in the taxonomy.
func (c AnalysisConfig) Subcategory(id string) (AnalysisSubcategory, bool) {
	for _, cat := range c.Categories {
		for _, sub := range cat.Subcategories {
			if sub.ID == id {
				return sub, true
			}
		}
	}
	return AnalysisSubcategory{}, false
}

// OptionLabel resolves an option id to its label, falling back to the id.
func (c AnalysisConfig) OptionLabel(subcategoryID, optionID string) string {
	sub, ok := c.Subcategory(subcategoryID)
	if !ok {
		return optionID
	}
	for _, opt := range sub.Options {
		if opt.ID == optionID {
			if opt.Label == "" {
				return optionID
			}
			return opt.Label
		}
	}
	return optionID
}

// Merge returns a new taxonomy with overlay applied on top of c. Categories
// and subcategories are matched by id; overlay options replace or extend the
// base options. Neither input is modified.
func (c AnalysisConfig) Merge(overlay *AnalysisConfig) AnalysisConfig {
	merged := AnalysisConfig{Categories: make([]AnalysisCategory, 0, len(c.Categories))}
	for _, cat := range c.Categories {
		merged.Categories = append(merged.Categories, cloneCategory(cat))
	}
	if overlay == nil {
		return merged
	}

	for _, ocat := range overlay.Categories {
		ci := indexOfCategory(merged.Categories, ocat.ID)
		if ci < 0 {
			merged.Categories = append(merged.Categories, cloneCategory(ocat))
			continue
		}
		cat := &merged.Categories[ci]
		if ocat.Name != "" {
			cat.Name = ocat.Name
		}
		for _, osub := range ocat.Subcategories {
			si := indexOfSubcategory(cat.Subcategories, osub.ID)
			if si < 0 {
				cat.Subcategories = append(cat.Subcategories, cloneSubcategory(osub))
				continue
			}
			cat.Subcategories[si] = mergeSubcategory(cat.Subcategories[si], osub)
		}
	}
	return merged
}

func mergeSubcategory(base, overlay AnalysisSubcategory) AnalysisSubcategory {
	out := cloneSubcategory(base)
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	for _, opt := range overlay.Options {
		replaced := false
		for i := range out.Options {
			if out.Options[i].ID == opt.ID {
				out.Options[i] = opt
				replaced = true
				break
			}
		}
		if !replaced {
			out.Options = append(out.Options, opt)
		}
	}
	for _, m := range overlay.Modifiers {
		if !containsString(out.Modifiers, m) {
			out.Modifiers = append(out.Modifiers, m)
		}
	}
	return out
}

func cloneCategory(c AnalysisCategory) AnalysisCategory {
	out := AnalysisCategory{ID: c.ID, Name: c.Name, Subcategories: make([]AnalysisSubcategory, 0, len(c.Subcategories))}
	for _, s := range c.Subcategories {
		out.Subcategories = append(out.Subcategories, cloneSubcategory(s))
	}
	return out
}

func cloneSubcategory(s AnalysisSubcategory) AnalysisSubcategory {
	return AnalysisSubcategory{
		ID:        s.ID,
		Name:      s.Name,
		Options:   append([]AnalysisOption(nil), s.Options...),
		Modifiers: append([]string(nil), s.Modifiers...),
	}
}

func indexOfCategory(cats []AnalysisCategory, id string) int {
	for i := range cats {
		if cats[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfSubcategory(subs []AnalysisSubcategory, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Impact is the emotional/quality sign attached to a keyword or option.
type Impact string

const (
	ImpactPositive Impact = "Positive"
	ImpactNegative Impact = "Negative"
	ImpactNeutral  Impact = "Neutral"
)

// Sign returns +1, -1 or 0.
func (i Impact) Sign() float64 {
	switch i {
	case ImpactPositive:
		return 1
	case ImpactNegative:
		return -1
	default:
		return 0
	}
}

// CustomFieldOption is a selectable value of a custom field.
type CustomFieldOption struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Impact Impact `json:"impact,omitempty"`
}

// CustomField is a user-defined trade attribute.
type CustomField struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Options []CustomFieldOption `json:"options,omitempty"`
}

// AppSettings are the app-wide settings consumed by the analytics engine.
type AppSettings struct {
	Pricing      map[string]PricingProfile `json:"pricing"`
	Analysis     AnalysisConfig            `json:"analysis"`
	CustomFields []CustomField             `json:"custom_fields,omitempty"`
	Keywords     map[string]Impact         `json:"keywords,omitempty"`
}

// ImpactOf looks up a sentiment tag in the keyword table, case-insensitively.
// An exact key wins; otherwise the first case-folded match in key order.
func (s *AppSettings) ImpactOf(tag string) Impact {
	if s == nil {
		return ImpactNeutral
	}
	if imp, ok := s.Keywords[tag]; ok {
		return imp
	}
	needle := strings.ToLower(strings.TrimSpace(tag))
	keys := make([]string, 0, len(s.Keywords))
	for k := range s.Keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ToLower(strings.TrimSpace(k)) == needle {
			return s.Keywords[k]
		}
	}
	return ImpactNeutral
}

// SentimentCounts counts the trade's positive, negative and total sentiment selections.
func (s *AppSettings) SentimentCounts(t *Trade) (positive, negative, total int) {
	for _, tag := range t.SentimentTags() {
		total++
		switch s.ImpactOf(tag) {
		case ImpactPositive:
			positive++
		case ImpactNegative:
			negative++
		}
	}
	return positive, negative, total
}

// CustomFieldImpacts returns the impact of every impact-tagged custom-field
// option selected on the trade. Field values may be a single option id or a
// list of them.
func (s *AppSettings) CustomFieldImpacts(t *Trade) []Impact {
	if s == nil || len(t.CustomFields) == 0 {
		return nil
	}
	var impacts []Impact
	for _, field := range s.CustomFields {
		raw, ok := t.CustomFields[field.ID]
		if !ok || raw == nil {
			continue
		}
		for _, selected := range selectedValues(raw) {
			for _, opt := range field.Options {
				if opt.ID != selected && opt.Label != selected {
					continue
				}
				if opt.Impact == ImpactPositive || opt.Impact == ImpactNegative {
					impacts = append(impacts, opt.Impact)
				}
				break
			}
		}
	}
	return impacts
}

func selectedValues(raw interface{}) []string {
	switch raw.(type) {
	case []string, []interface{}:
		return cast.ToStringSlice(raw)
	default:
		v := cast.ToString(raw)
		if v == "" {
			return nil
		}
		return []string{v}
	}
}
