// Package store provides journal persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// JournalStore persists journals, their trades and the application settings.
type JournalStore interface {
	// Journals
	GetJournal(ctx context.Context, id string) (*models.Journal, error)
	ListJournals(ctx context.Context) ([]JournalSummary, error)
	SaveJournal(ctx context.Context, j *models.Journal) error
	DeleteJournal(ctx context.Context, id string) error

	// Trades
	GetTrades(ctx context.Context, journalID string, filter TradeFilter) ([]models.Trade, error)
	SaveTrade(ctx context.Context, journalID string, t *models.Trade) error
	SaveTrades(ctx context.Context, journalID string, trades []models.Trade) error
	UpdateDerived(ctx context.Context, journalID string, derived map[string]models.AutoCalculated) error
	DeleteTrade(ctx context.Context, journalID, tradeID string) error

	// Settings
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	SaveSettings(ctx context.Context, s *models.AppSettings) error

	// Lifecycle
	Close() error
}

// AlertSink persists the alert log of a journal.
type AlertSink interface {
	AppendAlerts(ctx context.Context, journalID string, alerts []models.Alert) error
	ListAlerts(ctx context.Context, journalID string, filter AlertFilter) ([]models.Alert, error)
	MarkSeen(ctx context.Context, journalID string, alertIDs ...string) (int, error)
}

// Store is a journal store that also keeps the alert log.
type Store interface {
	JournalStore
	AlertSink
}

// JournalSummary is a journal listing row.
type JournalSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Capital   float64   `json:"capital"`
	Trades    int       `json:"trades"`
	Unseen    int       `json:"unseen_alerts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Symbol         string
	Strategy       string
	StartDate      time.Time
	EndDate        time.Time
	IncludeMissing bool
	Limit          int
}

// AlertFilter represents filters for querying alerts.
type AlertFilter struct {
	Category   models.AlertCategory
	TradeID    string
	UnseenOnly bool
	Limit      int
}
