package session

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 12, h, m, 0, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"7:30", 450, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"12", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowWraparound(t *testing.T) {
	w := MustWindow("Sydney", "21:00", "06:00")
	assert.True(t, w.Contains(21*60))
	assert.True(t, w.Contains(0))
	assert.True(t, w.Contains(5*60+59))
	assert.False(t, w.Contains(6*60))
	assert.False(t, w.Contains(20*60+59))
}

func TestSessionOverlapJoinsInTableOrder(t *testing.T) {
	c := Default()

	assert.Equal(t, "London / New York", c.Session(at(13, 0)))
	assert.Equal(t, "Sydney / Asian", c.Session(at(23, 30)))
	assert.Equal(t, "Asian / London", c.Session(at(7, 15)))
	assert.Equal(t, "London", c.Session(at(9, 0)))
}

func TestSessionNotApplicable(t *testing.T) {
	c := NewClassifier([]Window{MustWindow("Morning", "08:00", "12:00")}, nil, nil)
	assert.Equal(t, NotApplicable, c.Session(at(14, 0)))
}

func TestZone(t *testing.T) {
	c := Default()
	assert.Equal(t, "London Kill Zone", c.Zone(at(8, 0)))
	assert.Equal(t, "New York Kill Zone", c.Zone(at(12, 0)))
	assert.Equal(t, "Rollover", c.Zone(at(23, 59)))
	assert.Equal(t, "Asian Kill Zone", c.Zone(at(0, 0)))
}

func TestClassifierLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	c := NewClassifier(nil, nil, loc)
	// 06:00 UTC is 08:00 local: London only.
	assert.Equal(t, "London", c.Session(at(6, 0)))
}

func TestSignature(t *testing.T) {
	assert.Equal(t, Default().Signature(), NewClassifier(DefaultSessions(), DefaultZones(), nil).Signature())

	renamed := DefaultSessions()
	renamed[0].Name = "Tokyo"
	shifted := DefaultZones()
	shifted[0].End++
	est := time.FixedZone("EST", -5*3600)

	others := []*Classifier{
		NewClassifier(renamed, nil, nil),
		NewClassifier(nil, shifted, nil),
		NewClassifier(nil, nil, est),
		NewClassifier(nil, nil, time.UTC),
	}
	seen := map[string]bool{Default().Signature(): true}
	for _, c := range others {
		sig := c.Signature()
		assert.False(t, seen[sig], sig)
		seen[sig] = true
	}
}

func TestInAny(t *testing.T) {
	c := Default()
	windows := []models.TimeWindow{{Start: "22:00", End: "02:00"}, {Start: "bogus", End: "10:00"}}
	assert.True(t, c.InAny(windows, at(1, 0)))
	assert.False(t, c.InAny(windows, at(9, 0)))
	assert.False(t, c.InAny(nil, at(9, 0)))
}

// TestZonesPartitionDay checks every minute of the day lands in exactly one default zone.
func TestZonesPartitionDay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	zones := DefaultZones()

	properties.Property("exactly one zone per minute", prop.ForAll(
		func(m int) bool {
			hits := 0
			for _, z := range zones {
				if z.Contains(m) {
					hits++
				}
			}
			return hits == 1
		},
		gen.IntRange(0, 24*60-1),
	))

	properties.TestingRun(t)
}
