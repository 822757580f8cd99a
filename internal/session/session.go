// Package session classifies trade open times into market sessions and zones.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-journal/internal/models"
)

// NotApplicable is reported when no window contains the time.
const NotApplicable = "N/A"

// Separator joins overlapping session names.
const Separator = " / "

// Window is a named [Start, End) range in minutes from midnight. End before
// Start means the window wraps past midnight.
type Window struct {
	Name  string
	Start int
	End   int
}

// NewWindow builds a window from "HH:MM" strings.
func NewWindow(name, start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("window %q start: %w", name, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("window %q end: %w", name, err)
	}
	return Window{Name: name, Start: s, End: e}, nil
}

// MustWindow is NewWindow for static tables.
func MustWindow(name, start, end string) Window {
	w, err := NewWindow(name, start, end)
	if err != nil {
		panic(err)
	}
	return w
}

// Contains reports whether minute-of-day m falls inside the window. A window
// whose start equals its end is empty.
func (w Window) Contains(m int) bool {
	switch {
	case w.Start < w.End:
		return m >= w.Start && m < w.End
	case w.Start > w.End:
		return m >= w.Start || m < w.End
	default:
		return false
	}
}

// ParseClock parses "HH:MM" (or "H:MM") into minutes from midnight. "24:00"
// is accepted as end-of-day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h == 24 && m == 0 {
		return 24 * 60, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// MinuteOfDay returns t's wall-clock minutes from midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DefaultSessions is the forex session table in UTC, in reporting order.
func DefaultSessions() []Window {
	return []Window{
		MustWindow("Sydney", "21:00", "06:00"),
		MustWindow("Asian", "23:00", "08:00"),
		MustWindow("London", "07:00", "16:00"),
		MustWindow("New York", "12:00", "21:00"),
	}
}

// DefaultZones partitions the day into non-overlapping labels.
func DefaultZones() []Window {
	return []Window{
		MustWindow("Asian Kill Zone", "00:00", "02:00"),
		MustWindow("Asian Range", "02:00", "05:00"),
		MustWindow("Pre-London", "05:00", "07:00"),
		MustWindow("London Kill Zone", "07:00", "10:00"),
		MustWindow("London Lunch", "10:00", "12:00"),
		MustWindow("New York Kill Zone", "12:00", "15:00"),
		MustWindow("London Close", "15:00", "17:00"),
		MustWindow("New York Afternoon", "17:00", "21:00"),
		MustWindow("Rollover", "21:00", "24:00"),
	}
}

// Classifier maps times to session and zone labels. It is immutable and safe
// for concurrent use.
type Classifier struct {
	sessions []Window
	zones    []Window
	location *time.Location
}

// NewClassifier creates a classifier. Nil tables select the defaults; a nil
// location classifies times in their own wall clock.
func NewClassifier(sessions, zones []Window, loc *time.Location) *Classifier {
	if sessions == nil {
		sessions = DefaultSessions()
	}
	if zones == nil {
		zones = DefaultZones()
	}
	return &Classifier{
		sessions: append([]Window(nil), sessions...),
		zones:    append([]Window(nil), zones...),
		location: loc,
	}
}

// Default returns a classifier over the default tables.
func Default() *Classifier {
	return NewClassifier(nil, nil, nil)
}

// Signature is a canonical description of the tables and location. Two
// classifiers with equal signatures classify every time the same way.
func (c *Classifier) Signature() string {
	var b strings.Builder
	loc := "wall"
	if c.location != nil {
		loc = c.location.String()
	}
	b.WriteString(loc)
	for _, table := range [][]Window{c.sessions, c.zones} {
		b.WriteByte('|')
		for i, w := range table {
			if i > 0 {
				b.WriteByte(';')
			}
			fmt.Fprintf(&b, "%q:%d-%d", w.Name, w.Start, w.End)
		}
	}
	return b.String()
}

func (c *Classifier) minute(t time.Time) int {
	if c.location != nil {
		t = t.In(c.location)
	}
	return MinuteOfDay(t)
}

// Session returns every session containing t, joined in table order, or N/A.
func (c *Classifier) Session(t time.Time) string {
	m := c.minute(t)
	var names []string
	for _, w := range c.sessions {
		if w.Contains(m) {
			names = append(names, w.Name)
		}
	}
	if len(names) == 0 {
		return NotApplicable
	}
	return strings.Join(names, Separator)
}

// Zone returns the first zone containing t, or N/A.
func (c *Classifier) Zone(t time.Time) string {
	m := c.minute(t)
	for _, w := range c.zones {
		if w.Contains(m) {
			return w.Name
		}
	}
	return NotApplicable
}

// InAny reports whether t falls inside any of the plan windows. Unparseable
// windows are skipped.
func (c *Classifier) InAny(windows []models.TimeWindow, t time.Time) bool {
	m := c.minute(t)
	for _, tw := range windows {
		w, err := NewWindow("", tw.Start, tw.End)
		if err != nil {
			continue
		}
		if w.Contains(m) {
			return true
		}
	}
	return false
}
