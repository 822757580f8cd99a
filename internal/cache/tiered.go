package cache

import (
	"context"
	"errors"

	"trade-journal/internal/models"
)

// Memo mirrors metrics.Memo so tiers can be composed without importing the
// engine.
type Memo interface {
	Get(ctx context.Context, key string) (models.AutoCalculated, bool, error)
	Set(ctx context.Context, key string, auto models.AutoCalculated) error
}

// Tiered reads through its tiers in order and back-fills the faster ones on a
// hit. Writes go to every tier.
type Tiered struct {
	tiers []Memo
}

// NewTiered composes memos, fastest first. Nil tiers are skipped.
func NewTiered(tiers ...Memo) *Tiered {
	t := &Tiered{}
	for _, m := range tiers {
		if m != nil {
			t.tiers = append(t.tiers, m)
		}
	}
	return t
}

// Get implements metrics.Memo. Tier errors are skipped; the last one is
// returned only when no tier hits.
func (t *Tiered) Get(ctx context.Context, key string) (models.AutoCalculated, bool, error) {
	var lastErr error
	for i, m := range t.tiers {
		auto, ok, err := m.Get(ctx, key)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range t.tiers[:i] {
			_ = faster.Set(ctx, key, auto)
		}
		return auto, true, nil
	}
	return models.AutoCalculated{}, false, lastErr
}

// Set implements metrics.Memo. It fails only when every tier fails.
func (t *Tiered) Set(ctx context.Context, key string, auto models.AutoCalculated) error {
	var errs []error
	for _, m := range t.tiers {
		if err := m.Set(ctx, key, auto); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(t.tiers) {
		return errors.Join(errs...)
	}
	return nil
}
