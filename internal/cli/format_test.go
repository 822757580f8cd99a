package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/stats"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0.00"},
		{12.5, "12.50"},
		{999.999, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-1500, "-1,500.00"},
		{-0.001, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(tt.amount), "amount %v", tt.amount)
	}
}

var moneyPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{2}$`)

func TestFormatMoneyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	amounts := gen.Float64Range(-1e9, 1e9)

	properties.Property("grouped with two decimals", prop.ForAll(
		func(v float64) bool {
			return moneyPattern.MatchString(FormatMoney(v))
		},
		amounts,
	))

	properties.Property("ungrouped value rounds to amount", prop.ForAll(
		func(v float64) bool {
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(FormatMoney(v), ",", ""), 64)
			return err == nil && math.Abs(parsed-v) <= 0.005+1e-9*math.Abs(v)
		},
		amounts,
	))

	properties.Property("sign follows amount", prop.ForAll(
		func(v float64) bool {
			s := FormatMoney(v)
			if strings.HasPrefix(s, "-") {
				return v < 0
			}
			return v >= 0 || s == "0.00"
		},
		amounts,
	))

	properties.TestingRun(t)
}

func TestFormatPnL(t *testing.T) {
	assert.Equal(t, "+1,200.00", FormatPnL(1200))
	assert.Equal(t, "-45.10", FormatPnL(-45.1))
	assert.Equal(t, "0.00", FormatPnL(0.001))
}

func TestFormatR(t *testing.T) {
	assert.Equal(t, "+1.50R", FormatR(1.5))
	assert.Equal(t, "-1.00R", FormatR(-1))
	assert.Equal(t, "+0.00R", FormatR(0))
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "inf", FormatRatio(stats.Ratio(math.Inf(1))))
	assert.Equal(t, "2.50", FormatRatio(2.5))
	assert.Equal(t, "0.00", FormatRatio(0))
}

func TestFormatRiskReward(t *testing.T) {
	assert.Equal(t, "-", FormatRiskReward(0))
	assert.Equal(t, "1:2.00", FormatRiskReward(2))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "3m 5s", FormatDuration(185*time.Second))
	assert.Equal(t, "2h 30m", FormatDuration(150*time.Minute))
	assert.Equal(t, "1d 2h", FormatDuration(26*time.Hour))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))
	assert.Equal(t, "ééé", TruncateString("éééééé", 3))
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("", false)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseDate("2024-03-04", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("2024-03-04", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 23, 59, 59, 999999999, time.UTC), got)

	_, err = parseDate("04/03/2024", false)
	assert.Error(t, err)
}

func TestTableAlignsColoredCells(t *testing.T) {
	var b strings.Builder
	output := &Output{writer: &b, colorEnabled: true}
	table := NewTable(output, "A", "B")
	table.AddRow(output.ColoredString(ColorRed, "x"), "y")
	table.Render()

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, len(stripANSI(lines[0])), len(stripANSI(lines[2])))
}
