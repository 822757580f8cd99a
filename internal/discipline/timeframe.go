package discipline

import (
	"strconv"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

var namedTimeframes = map[string]time.Duration{
	"daily":   day,
	"weekly":  week,
	"monthly": month,
	"d":       day,
	"w":       week,
	"mn":      month,
}

// ParseTimeframe parses chart timeframes such as "15m", "4h", "1D", "1W",
// "1M" (month), MT4-style "M15", "H4", "D1", "W1", "MN", and the names
// "daily", "weekly" and "monthly".
func ParseTimeframe(tf string) (time.Duration, bool) {
	s := strings.TrimSpace(tf)
	if s == "" {
		return 0, false
	}
	if d, ok := namedTimeframes[strings.ToLower(s)]; ok {
		return d, true
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "MN") {
		n, ok := count(upper[2:])
		return time.Duration(n) * month, ok
	}

	// MT4 form: unit letter followed by a count.
	if first := s[0]; first < '0' || first > '9' {
		n, ok := count(s[1:])
		if !ok {
			return 0, false
		}
		switch first {
		case 'M', 'm':
			return time.Duration(n) * time.Minute, true
		case 'H', 'h':
			return time.Duration(n) * time.Hour, true
		case 'D', 'd':
			return time.Duration(n) * day, true
		case 'W', 'w':
			return time.Duration(n) * week, true
		}
		return 0, false
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit := s[i:]; unit {
	case "m", "min", "mins":
		return time.Duration(n) * time.Minute, true
	case "M", "mo", "mon":
		return time.Duration(n) * month, true
	case "h", "H", "hr":
		return time.Duration(n) * time.Hour, true
	case "d", "D":
		return time.Duration(n) * day, true
	case "w", "W", "wk":
		return time.Duration(n) * week, true
	}
	return 0, false
}

// count parses the numeric part of an MT4 timeframe; empty means 1.
func count(s string) (int, bool) {
	if s == "" {
		return 1, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// TimeframeWeight maps a timeframe to its analysis weight. Longer horizons
// weigh more; unknown timeframes weigh 1.
func TimeframeWeight(tf string) float64 {
	d, ok := ParseTimeframe(tf)
	if !ok {
		return 1
	}
	switch {
	case d <= 5*time.Minute:
		return 1
	case d <= 15*time.Minute:
		return 1.5
	case d <= time.Hour:
		return 2
	case d <= 4*time.Hour:
		return 2.5
	case d <= day:
		return 3
	case d <= week:
		return 4
	default:
		return 5
	}
}
