package metrics

import (
	"sort"

	"trade-journal/internal/models"
)

// chronological returns trade indices stably sorted by open time.
func chronological(trades []models.Trade) []int {
	order := make([]int, len(trades))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return trades[order[a]].OpenTime.Before(trades[order[b]].OpenTime)
	})
	return order
}

// position returns t's index within order, matched by id, or -1.
func position(trades []models.Trade, order []int, t *models.Trade) int {
	if t.ID == "" {
		return -1
	}
	for pos, i := range order {
		if trades[i].ID == t.ID {
			return pos
		}
	}
	return -1
}

// openedNotAfter returns the indices of trades opened no later than t, for a
// trade that is not part of the journal yet.
func openedNotAfter(trades []models.Trade, order []int, t *models.Trade) []int {
	var out []int
	for _, i := range order {
		if trades[i].OpenTime.After(t.OpenTime) {
			break
		}
		out = append(out, i)
	}
	return out
}
