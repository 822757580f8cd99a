// Package alerts detects behavioral patterns in a journal's trade history.
//
// Each detector inspects the trade that triggered a run together with the
// chronological history before it and returns at most one alert. The engine
// runs the catalog, isolates detector failures, stamps ids and timestamps and
// drops alerts the journal already holds.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
)

// DefaultPeriodicInterval is how many live trades pass between runs of the
// periodic detectors.
const DefaultPeriodicInterval = 10

// Input is what a detector sees.
type Input struct {
	// Trigger is the trade that caused the run.
	Trigger *models.Trade
	// Prior holds the live trades that precede the trigger, oldest first.
	Prior []*models.Trade
	// Journal is the journal being analyzed. Detectors must not modify it.
	Journal *models.Journal
}

// History returns the prior trades followed by the trigger.
func (in Input) History() []*models.Trade {
	out := make([]*models.Trade, 0, len(in.Prior)+1)
	out = append(out, in.Prior...)
	return append(out, in.Trigger)
}

// Detector recognizes one behavioral pattern.
type Detector interface {
	Name() string
	// Detect returns nil when the pattern is absent.
	Detect(in Input) (*models.Alert, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc struct {
	name string
	fn   func(in Input) (*models.Alert, error)
}

// NewDetector wraps fn as a named detector.
func NewDetector(name string, fn func(in Input) (*models.Alert, error)) DetectorFunc {
	return DetectorFunc{name: name, fn: fn}
}

// Name implements Detector.
func (d DetectorFunc) Name() string { return d.name }

// Detect implements Detector.
func (d DetectorFunc) Detect(in Input) (*models.Alert, error) { return d.fn(in) }

// Engine runs detector catalogs against trades.
type Engine struct {
	perTrade []Detector
	periodic []Detector
	interval int
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the alert id source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithPeriodicInterval sets how many live trades pass between periodic runs.
// Values below 1 keep the default.
func WithPeriodicInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.interval = n
		}
	}
}

// WithDetectors replaces both catalogs.
func WithDetectors(perTrade, periodic []Detector) Option {
	return func(e *Engine) {
		e.perTrade = perTrade
		e.periodic = periodic
	}
}

// NewEngine creates an engine with the built-in catalogs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		perTrade: PerTradeDetectors(),
		periodic: PeriodicDetectors(),
		interval: DefaultPeriodicInterval,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAlertEngine runs the built-in catalogs for trigger.
func RunAlertEngine(j *models.Journal, trigger *models.Trade) []models.Alert {
	return NewEngine().Run(j, trigger)
}

// Run evaluates every detector for trigger and returns the new alerts in
// catalog order. Missing triggers produce nothing. A failing detector is
// logged and skipped.
func (e *Engine) Run(j *models.Journal, trigger *models.Trade) (out []models.Alert) {
	if j == nil || trigger == nil || trigger.Missing {
		return nil
	}
	logger := logging.WithTrade(logging.WithJournal(e.logger, j.ID), trigger.ID, trigger.Symbol)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Alert engine failed")
			out = nil
		}
	}()

	in, position := e.input(j, trigger)

	detectors := e.perTrade
	if (position+1)%e.interval == 0 {
		detectors = append(append([]Detector(nil), e.perTrade...), e.periodic...)
	}

	seen := make(map[dedupeKey]bool, len(j.Alerts))
	for _, a := range j.Alerts {
		seen[dedupeKey{a.TradeID, a.Category}] = true
	}

	now := e.now()
	for _, d := range detectors {
		alert, err := e.detect(d, in)
		if err != nil {
			dl := logging.WithDetector(logger, d.Name())
			dl.Warn().Err(err).Msg("Detector failed")
			continue
		}
		if alert == nil {
			continue
		}
		if alert.TradeID == "" {
			alert.TradeID = trigger.ID
		}
		key := dedupeKey{alert.TradeID, alert.Category}
		if seen[key] {
			continue
		}
		seen[key] = true

		alert.ID = e.newID()
		alert.Timestamp = now
		alert.Seen = false
		logging.LogAlert(logger, alert.ID, string(alert.Category), string(alert.Severity), alert.TradeID)
		out = append(out, *alert)
	}
	return out
}

type dedupeKey struct {
	tradeID  string
	category models.AlertCategory
}

// detect runs one detector, converting a panic into a DetectorError.
func (e *Engine) detect(d Detector, in Input) (alert *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alert = nil
			err = apperrors.NewDetectorError(d.Name(), in.Trigger.ID, fmt.Errorf("panic: %v", r))
		}
	}()
	alert, err = d.Detect(in)
	if err != nil {
		return nil, apperrors.NewDetectorError(d.Name(), in.Trigger.ID, err)
	}
	return alert, nil
}

// input builds the detector input and the trigger's zero-based position in
// the live history. A trigger not yet stored in the journal is placed after
// every live trade opened no later than it.
func (e *Engine) input(j *models.Journal, trigger *models.Trade) (Input, int) {
	live := stats.Live(j.Trades)
	if trigger.ID != "" {
		for i, t := range live {
			if t.ID == trigger.ID {
				return Input{Trigger: trigger, Prior: live[:i], Journal: j}, i
			}
		}
	}
	prior := make([]*models.Trade, 0, len(live))
	for _, t := range live {
		if !t.OpenTime.After(trigger.OpenTime) {
			prior = append(prior, t)
		}
	}
	return Input{Trigger: trigger, Prior: prior, Journal: j}, len(prior)
}
