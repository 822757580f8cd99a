package metrics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// Memo stores computed metrics by key. Implementations must be safe for
// concurrent use; a miss is reported as ok == false with a nil error.
type Memo interface {
	Get(ctx context.Context, key string) (models.AutoCalculated, bool, error)
	Set(ctx context.Context, key string, auto models.AutoCalculated) error
}

// fingerprintInput is everything a trade's derived block depends on. The
// derived blocks of the trades themselves are excluded.
type fingerprintInput struct {
	Capital    float64             `json:"capital"`
	Plan       models.TradingPlan  `json:"plan"`
	Strategies []models.Strategy   `json:"strategies"`
	Settings   *models.AppSettings `json:"settings"`
	Trades     []models.Trade      `json:"trades"`
}

// Fingerprint digests the journal inputs and settings. Two calls with equal
// inputs return the same value; any change to a trade, the plan, the
// strategies, the capital or the settings changes it.
func Fingerprint(j *models.Journal, s *models.AppSettings) (string, error) {
	in := fingerprintInput{Settings: s}
	if j != nil {
		in.Capital = j.Capital
		in.Plan = j.Plan
		in.Strategies = j.Strategies
		in.Trades = make([]models.Trade, len(j.Trades))
		for i, t := range j.Trades {
			t.Auto = models.AutoCalculated{}
			in.Trades[i] = t
		}
	}
	// encoding/json sorts map keys, so the encoding is canonical.
	data, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MemoKey builds the cache key of one trade under an engine digest and a
// journal fingerprint.
func MemoKey(tradeID, digest, fingerprint string) string {
	return tradeID + ":" + digest + ":" + fingerprint
}

// Memoized wraps an Engine with a Memo. Memo failures degrade to direct
// computation.
type Memoized struct {
	engine *Engine
	memo   Memo
	logger zerolog.Logger
}

// NewMemoized creates a memoizing engine. A nil memo disables caching.
func NewMemoized(engine *Engine, memo Memo, logger zerolog.Logger) *Memoized {
	return &Memoized{engine: engine, memo: memo, logger: logger}
}

// Compute returns the derived block of t, served from the memo when the
// journal, the settings and the engine configuration are unchanged.
func (m *Memoized) Compute(ctx context.Context, t *models.Trade, j *models.Journal, s *models.AppSettings) models.AutoCalculated {
	if m.memo == nil || t == nil || t.ID == "" {
		return m.engine.Compute(t, j, s)
	}
	fp, err := Fingerprint(j, s)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Fingerprint failed, computing without cache")
		return m.engine.Compute(t, j, s)
	}
	key := MemoKey(t.ID, m.engine.Digest(), fp)

	if auto, ok, err := m.memo.Get(ctx, key); err == nil && ok {
		return auto
	} else if err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("Memo read failed")
	}

	auto := m.engine.Compute(t, j, s)
	if err := m.memo.Set(ctx, key, auto); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("Memo write failed")
	}
	return auto
}

// RecomputeAll recomputes the journal, reusing memoized blocks when every
// trade is cached under the current fingerprint.
func (m *Memoized) RecomputeAll(ctx context.Context, j *models.Journal, s *models.AppSettings) ([]models.AutoCalculated, error) {
	if m.memo == nil || j == nil {
		return m.engine.RecomputeAll(ctx, j, s)
	}
	start := time.Now()
	fp, err := Fingerprint(j, s)
	if err != nil {
		return m.engine.RecomputeAll(ctx, j, s)
	}

	cached := make([]models.AutoCalculated, len(j.Trades))
	hits := 0
	for i := range j.Trades {
		auto, ok, err := m.memo.Get(ctx, MemoKey(j.Trades[i].ID, m.engine.Digest(), fp))
		if err != nil || !ok {
			break
		}
		cached[i] = auto
		hits++
	}
	if hits == len(j.Trades) {
		logging.LogRecompute(logging.WithJournal(m.logger, j.ID), j.ID, len(j.Trades), hits, time.Since(start))
		return cached, nil
	}

	out, err := m.engine.RecomputeAll(ctx, j, s)
	if err != nil {
		return nil, err
	}
	for i := range j.Trades {
		if j.Trades[i].ID == "" {
			continue
		}
		if err := m.memo.Set(ctx, MemoKey(j.Trades[i].ID, m.engine.Digest(), fp), out[i]); err != nil {
			m.logger.Debug().Err(err).Msg("Memo write failed")
			break
		}
	}
	return out, nil
}
