package metrics

import (
	"context"
	"fmt"
	"time"

	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/performance"
)

// RecomputeAll computes the derived block of every trade in the journal and
// returns them in journal order. Base metrics run in parallel; tilt runs in
// chronological order with running averages, which yields the same values as
// calling Compute per trade.
func (e *Engine) RecomputeAll(ctx context.Context, j *models.Journal, s *models.AppSettings) ([]models.AutoCalculated, error) {
	if j == nil || len(j.Trades) == 0 {
		return nil, nil
	}
	start := time.Now()
	snap := newSnapshot(j, s)
	trades := j.Trades
	out := make([]models.AutoCalculated, len(trades))

	pool := performance.NewWorkerPool(e.workers)
	pool.Start()
	defer pool.Stop()

	err := performance.ForEach(ctx, pool, len(trades), func(i int) {
		out[i] = e.safeBase(&trades[i], snap)
	})
	if err != nil {
		return nil, err
	}

	var acc historyAccumulator
	for _, i := range chronological(trades) {
		t := &trades[i]
		out[i].Tilt = e.tiltFor(t, out[i], snap.settings, acc.history())
		if !t.Missing && t.IsClosed() {
			acc.add(out[i].Score.Value, out[i].NetPnL)
		}
	}

	logging.LogRecompute(logging.WithJournal(e.logger, j.ID), j.ID, len(trades), 0, time.Since(start))
	return out, nil
}

// safeBase is base with the same panic isolation as Compute.
func (e *Engine) safeBase(t *models.Trade, snap snapshot) (auto models.AutoCalculated) {
	defer func() {
		if r := recover(); r != nil {
			tl := logging.WithTrade(e.logger, t.ID, t.Symbol)
			tl.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("Trade metrics computation failed")
			auto = models.AutoCalculated{}
		}
	}()
	return e.base(t, snap)
}
