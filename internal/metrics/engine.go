// Package metrics composes the analytics pipeline into the derived block of
// a trade: pricing, session, P/L, risk, discipline score, tilt and setups.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"trade-journal/internal/discipline"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/pnl"
	"trade-journal/internal/pricing"
	"trade-journal/internal/session"
	"trade-journal/internal/setups"
	"trade-journal/internal/tilt"
)

// Config holds the tunables of the engine.
type Config struct {
	Weights          discipline.Weights
	Bands            discipline.Bands
	LessonsMinLength int
	TiltWeights      tilt.Weights
	RCaps            tilt.RCaps
	Classifier       *session.Classifier
	// Workers bounds batch recomputation parallelism; 0 means NumCPU.
	Workers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Weights:          discipline.DefaultWeights(),
		Bands:            discipline.DefaultBands(),
		LessonsMinLength: 20,
		TiltWeights:      tilt.DefaultWeights(),
		RCaps:            tilt.DefaultRCaps(),
		Classifier:       session.Default(),
	}
}

// Engine computes derived trade metrics. It is stateless apart from its
// configuration and safe for concurrent use.
type Engine struct {
	classifier *session.Classifier
	scorer     *discipline.Scorer
	tilt       *tilt.Calculator
	workers    int
	digest     string
	logger     zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.Classifier == nil {
		cfg.Classifier = session.Default()
	}
	return &Engine{
		classifier: cfg.Classifier,
		scorer: discipline.NewScorer(discipline.Options{
			Weights:          cfg.Weights,
			Bands:            cfg.Bands,
			LessonsMinLength: cfg.LessonsMinLength,
			Classifier:       cfg.Classifier,
		}),
		tilt:    tilt.NewCalculator(cfg.TiltWeights, cfg.RCaps),
		workers: cfg.Workers,
		digest:  configDigest(cfg),
		logger:  logger,
	}
}

// configDigest hashes every tunable that changes a derived block. Workers
// only changes scheduling and is left out.
func configDigest(cfg Config) string {
	data, err := json.Marshal(struct {
		Weights          discipline.Weights
		Bands            discipline.Bands
		LessonsMinLength int
		TiltWeights      tilt.Weights
		RCaps            tilt.RCaps
		Classifier       string
	}{cfg.Weights, cfg.Bands, cfg.LessonsMinLength, cfg.TiltWeights, cfg.RCaps, cfg.Classifier.Signature()})
	if err != nil {
		// Non-finite tunables; fall back to the printed form.
		data = []byte(fmt.Sprintf("%v|%v|%d|%v|%v|%s", cfg.Weights, cfg.Bands, cfg.LessonsMinLength,
			cfg.TiltWeights, cfg.RCaps, cfg.Classifier.Signature()))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Digest identifies the engine configuration. Engines with equal digests
// produce equal derived blocks for equal inputs.
func (e *Engine) Digest() string {
	return e.digest
}

// Default returns an engine with the default configuration and no logging.
func Default() *Engine {
	return NewEngine(DefaultConfig(), zerolog.Nop())
}

// ComputeTradeMetrics computes the derived block with the default engine.
func ComputeTradeMetrics(t *models.Trade, j *models.Journal, s *models.AppSettings) models.AutoCalculated {
	return Default().Compute(t, j, s)
}

// snapshot is the per-call view of journal and settings shared by every
// trade computed in the same call.
type snapshot struct {
	journal  *models.Journal
	settings *models.AppSettings
	resolver *pricing.Resolver
}

func newSnapshot(j *models.Journal, s *models.AppSettings) snapshot {
	if j == nil {
		j = &models.Journal{}
	}
	var profiles map[string]models.PricingProfile
	if s != nil {
		profiles = s.Pricing
	}
	return snapshot{journal: j, settings: s, resolver: pricing.NewResolver(profiles)}
}

// Compute returns the derived block of t. It never panics: an internal fault
// yields zeroed metrics and an error log line.
func (e *Engine) Compute(t *models.Trade, j *models.Journal, s *models.AppSettings) (auto models.AutoCalculated) {
	if t == nil {
		return models.AutoCalculated{}
	}
	log := logging.WithTrade(e.logger, t.ID, t.Symbol)
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Trade metrics computation failed")
			auto = models.AutoCalculated{}
		}
	}()

	if err := models.ValidateTrade(t); err != nil {
		ev := log.Warn().Err(err)
		var verr *apperrors.ValidationError
		if apperrors.As(err, &verr) {
			ev = ev.Str("field", verr.Field)
		}
		ev.Msg("Computing metrics for invalid trade")
	}

	snap := newSnapshot(j, s)
	auto = e.base(t, snap)

	order := chronological(snap.journal.Trades)
	var h tilt.History
	if pos := position(snap.journal.Trades, order, t); pos >= 0 {
		h = e.historyBefore(snap, order[:pos])
	} else {
		h = e.historyBefore(snap, openedNotAfter(snap.journal.Trades, order, t))
	}
	auto.Tilt = e.tiltFor(t, auto, snap.settings, h)
	return auto
}

// base computes everything except the history-dependent tilt.
func (e *Engine) base(t *models.Trade, snap snapshot) models.AutoCalculated {
	j := snap.journal
	profile := snap.resolver.Resolve(t.Symbol)

	res := pnl.Calculate(t, profile)
	risk := pnl.CalculateRisk(t, profile, res.NetPnL, j.Capital)
	result, status, outcome := pnl.Classify(t, profile, res)
	mfe, mae := pnl.Excursion(t, profile)

	auto := models.AutoCalculated{
		Session:           e.classifier.Session(t.OpenTime),
		Zone:              e.classifier.Zone(t.OpenTime),
		Result:            result,
		Status:            status,
		Outcome:           outcome,
		Pips:              res.Pips,
		GrossPnL:          res.GrossPnL,
		NetPnL:            res.NetPnL,
		RiskPips:          risk.RiskPips,
		RewardPips:        risk.RewardPips,
		RiskAmount:        risk.RiskAmount,
		PlannedRR:         risk.PlannedRR,
		RealizedR:         risk.RealizedR,
		RiskPercent:       risk.RiskPercent,
		GainPercent:       risk.GainPercent,
		HoldingTime:       pnl.HoldingTime(t.OpenTime, t.CloseTime),
		HighestNewsImpact: pnl.HighestNewsImpact(t.NewsEvents),
		MFEPips:           mfe,
		MAEPips:           mae,
		Costs:             res.Costs,
	}

	strategy, _ := j.Strategy(t.StrategyName)
	var taxonomy models.AnalysisConfig
	if snap.settings != nil {
		taxonomy = snap.settings.Analysis
	}
	if strategy != nil {
		taxonomy = taxonomy.Merge(strategy.Analysis)
	}

	auto.Score = e.scorer.Score(discipline.Input{
		Trade:    t,
		Metrics:  auto,
		Capital:  j.Capital,
		Plan:     j.Plan,
		Strategy: strategy,
		Analysis: taxonomy,
		Settings: snap.settings,
		Journal:  j.Trades,
		Pricing:  snap.resolver,
	})
	auto.MatchedSetups = setups.Matches(strategy, t.Analysis)
	return auto
}

func (e *Engine) tiltFor(t *models.Trade, auto models.AutoCalculated, s *models.AppSettings, h tilt.History) models.Tilt {
	pos, neg, total := s.SentimentCounts(t)
	return e.tilt.Compute(tilt.Input{
		Score:             auto.Score.Value,
		SentimentPositive: pos,
		SentimentNegative: neg,
		SentimentTotal:    total,
		CustomImpacts:     s.CustomFieldImpacts(t),
		RealizedR:         auto.RealizedR,
		Outcome:           auto.Outcome,
		NetPnL:            auto.NetPnL,
		History:           h,
	})
}

// historyBefore averages score and net P/L over the closed live trades at
// the given journal indices, recomputing each from its inputs.
func (e *Engine) historyBefore(snap snapshot, indices []int) tilt.History {
	var acc historyAccumulator
	for _, i := range indices {
		other := &snap.journal.Trades[i]
		if other.Missing || !other.IsClosed() {
			continue
		}
		b := e.base(other, snap)
		acc.add(b.Score.Value, b.NetPnL)
	}
	return acc.history()
}

type historyAccumulator struct {
	count    int
	scoreSum float64
	pnlSum   float64
}

func (a *historyAccumulator) add(score, netPnL float64) {
	a.count++
	a.scoreSum += score
	a.pnlSum += netPnL
}

func (a *historyAccumulator) history() tilt.History {
	if a.count == 0 {
		return tilt.History{}
	}
	return tilt.History{
		Count:    a.count,
		AvgScore: a.scoreSum / float64(a.count),
		AvgPnL:   a.pnlSum / float64(a.count),
	}
}
