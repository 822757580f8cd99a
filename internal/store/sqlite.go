package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// SQLiteStore implements JournalStore and AlertSink using SQLite. Structured
// fields (plan, strategies, trade bodies, derived blocks, settings) are kept
// as JSON; the columns used for filtering and ordering are denormalized.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ JournalStore = (*SQLiteStore)(nil)
	_ AlertSink    = (*SQLiteStore)(nil)
	_ Store        = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Journals: account-level fields, plan and strategies
	CREATE TABLE IF NOT EXISTS journals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		capital REAL NOT NULL DEFAULT 0,
		balance REAL NOT NULL DEFAULT 0,
		plan TEXT,
		strategies TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades: user-entered body plus the derived metrics block
	CREATE TABLE IF NOT EXISTS trades (
		journal_id TEXT NOT NULL,
		id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT '',
		open_time TEXT NOT NULL,
		missing INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		auto TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (journal_id, id),
		FOREIGN KEY (journal_id) REFERENCES journals(id) ON DELETE CASCADE
	);

	-- Alerts: append-only behavioral alert log
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		journal_id TEXT NOT NULL,
		trade_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		seen INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		FOREIGN KEY (journal_id) REFERENCES journals(id) ON DELETE CASCADE
	);

	-- Settings: a single row of application settings
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_journal_time ON trades(journal_id, open_time);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(journal_id, symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_journal ON alerts(journal_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_trade ON alerts(journal_id, trade_id, category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Journals
// ============================================================================

// GetJournal loads a journal with its trades (missing ones included) and its
// alert log.
func (s *SQLiteStore) GetJournal(ctx context.Context, id string) (*models.Journal, error) {
	var j models.Journal
	var planJSON, strategiesJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, capital, balance, plan, strategies FROM journals WHERE id = ?
	`, id).Scan(&j.ID, &j.Name, &j.Capital, &j.Balance, &planJSON, &strategiesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewStoreError("get", "journal", id, apperrors.ErrJournalNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	if err := unmarshalNullable(planJSON, &j.Plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	if err := unmarshalNullable(strategiesJSON, &j.Strategies); err != nil {
		return nil, fmt.Errorf("failed to decode strategies: %w", err)
	}

	if j.Trades, err = s.GetTrades(ctx, id, TradeFilter{IncludeMissing: true}); err != nil {
		return nil, err
	}
	if j.Alerts, err = s.ListAlerts(ctx, id, AlertFilter{}); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJournals lists every journal with trade and unseen alert counts.
func (s *SQLiteStore) ListJournals(ctx context.Context) ([]JournalSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.id, j.name, j.capital, j.updated_at,
			(SELECT COUNT(*) FROM trades t WHERE t.journal_id = j.id AND t.missing = 0),
			(SELECT COUNT(*) FROM alerts a WHERE a.journal_id = j.id AND a.seen = 0)
		FROM journals j
		ORDER BY j.name, j.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journals: %w", err)
	}
	defer rows.Close()

	var out []JournalSummary
	for rows.Next() {
		var js JournalSummary
		if err := rows.Scan(&js.ID, &js.Name, &js.Capital, &js.UpdatedAt, &js.Trades, &js.Unseen); err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		out = append(out, js)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journals: %w", err)
	}
	return out, nil
}

// SaveJournal writes the journal, replaces its trades and upserts its alerts
// in one transaction.
func (s *SQLiteStore) SaveJournal(ctx context.Context, j *models.Journal) error {
	if err := models.ValidateJournal(j); err != nil {
		return apperrors.Wrapf(err, "journal %s", j.ID)
	}
	for i := range j.Trades {
		if err := models.ValidateTrade(&j.Trades[i]); err != nil {
			return apperrors.Wrapf(err, "journal %s trade %s", j.ID, j.Trades[i].ID)
		}
	}
	plan, err := json.Marshal(j.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	strategies, err := json.Marshal(j.Strategies)
	if err != nil {
		return fmt.Errorf("failed to encode strategies: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journals (id, name, capital, balance, plan, strategies, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			capital = excluded.capital,
			balance = excluded.balance,
			plan = excluded.plan,
			strategies = excluded.strategies,
			updated_at = CURRENT_TIMESTAMP
	`, j.ID, j.Name, j.Capital, j.Balance, string(plan), string(strategies))
	if err != nil {
		return fmt.Errorf("failed to save journal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE journal_id = ?`, j.ID); err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}
	if err := upsertTrades(ctx, tx, j.ID, j.Trades); err != nil {
		return err
	}
	if err := insertAlerts(ctx, tx, j.ID, j.Alerts, "INSERT OR REPLACE"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteJournal removes a journal with its trades and alerts.
func (s *SQLiteStore) DeleteJournal(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM alerts WHERE journal_id = ?`,
		`DELETE FROM trades WHERE journal_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete journal data: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM journals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewStoreError("delete", "journal", id, apperrors.ErrJournalNotFound)
	}
	return tx.Commit()
}

// ============================================================================
// Trades
// ============================================================================

// GetTrades returns the trades of a journal ordered by open time.
func (s *SQLiteStore) GetTrades(ctx context.Context, journalID string, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT data, auto FROM trades WHERE journal_id = ?"
	args := []interface{}{journalID}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if !filter.StartDate.IsZero() {
		query += " AND open_time >= ?"
		args = append(args, formatTime(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND open_time <= ?"
		args = append(args, formatTime(filter.EndDate))
	}
	if !filter.IncludeMissing {
		query += " AND missing = 0"
	}

	query += " ORDER BY open_time ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var data string
		var auto sql.NullString
		if err := rows.Scan(&data, &auto); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		var t models.Trade
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("failed to decode trade: %w", err)
		}
		if err := unmarshalNullable(auto, &t.Auto); err != nil {
			return nil, fmt.Errorf("failed to decode trade %s metrics: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// SaveTrade validates and upserts one trade.
func (s *SQLiteStore) SaveTrade(ctx context.Context, journalID string, t *models.Trade) error {
	return s.SaveTrades(ctx, journalID, []models.Trade{*t})
}

// SaveTrades validates and upserts trades in one transaction.
func (s *SQLiteStore) SaveTrades(ctx context.Context, journalID string, trades []models.Trade) error {
	for i := range trades {
		if err := models.ValidateTrade(&trades[i]); err != nil {
			return apperrors.Wrapf(err, "trade %s", trades[i].ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireJournal(ctx, tx, journalID); err != nil {
		return err
	}
	if err := upsertTrades(ctx, tx, journalID, trades); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateDerived replaces the derived metrics blocks of existing trades.
func (s *SQLiteStore) UpdateDerived(ctx context.Context, journalID string, derived map[string]models.AutoCalculated) error {
	if len(derived) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE trades SET auto = ?, updated_at = CURRENT_TIMESTAMP WHERE journal_id = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for id, auto := range derived {
		data, err := json.Marshal(auto)
		if err != nil {
			return fmt.Errorf("failed to encode metrics for %s: %w", id, err)
		}
		res, err := stmt.ExecContext(ctx, string(data), journalID, id)
		if err != nil {
			return fmt.Errorf("failed to update metrics: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NewStoreError("update", "trade", id, apperrors.ErrTradeNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteTrade removes a trade. Its alerts stay in the log.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, journalID, tradeID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE journal_id = ? AND id = ?`, journalID, tradeID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewStoreError("delete", "trade", tradeID, apperrors.ErrTradeNotFound)
	}
	return nil
}

func upsertTrades(ctx context.Context, tx *sql.Tx, journalID string, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (journal_id, id, symbol, strategy, open_time, missing, data, auto, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(journal_id, id) DO UPDATE SET
			symbol = excluded.symbol,
			strategy = excluded.strategy,
			open_time = excluded.open_time,
			missing = excluded.missing,
			data = excluded.data,
			auto = excluded.auto,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		auto, err := json.Marshal(t.Auto)
		if err != nil {
			return fmt.Errorf("failed to encode metrics for %s: %w", t.ID, err)
		}
		body := t
		body.Auto = models.AutoCalculated{}
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode trade %s: %w", t.ID, err)
		}
		missing := 0
		if t.Missing {
			missing = 1
		}
		if _, err := stmt.ExecContext(ctx, journalID, t.ID, t.Symbol, t.StrategyName,
			formatTime(t.OpenTime), missing, string(data), string(auto)); err != nil {
			return fmt.Errorf("failed to save trade %s: %w", t.ID, err)
		}
	}
	return nil
}

func requireJournal(ctx context.Context, tx *sql.Tx, journalID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM journals WHERE id = ?`, journalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewStoreError("get", "journal", journalID, apperrors.ErrJournalNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}
	return nil
}

// ============================================================================
// Alerts
// ============================================================================

// AppendAlerts adds alerts to the log. Alerts whose id is already stored are
// left untouched.
func (s *SQLiteStore) AppendAlerts(ctx context.Context, journalID string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireJournal(ctx, tx, journalID); err != nil {
		return err
	}
	if err := insertAlerts(ctx, tx, journalID, alerts, "INSERT OR IGNORE"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertAlerts(ctx context.Context, tx *sql.Tx, journalID string, alerts []models.Alert, verb string) error {
	if len(alerts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, verb+` INTO alerts (id, journal_id, trade_id, category, severity, timestamp, seen, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode alert %s: %w", a.ID, err)
		}
		seen := 0
		if a.Seen {
			seen = 1
		}
		if _, err := stmt.ExecContext(ctx, a.ID, journalID, a.TradeID, string(a.Category), string(a.Severity),
			formatTime(a.Timestamp), seen, string(data)); err != nil {
			return fmt.Errorf("failed to save alert %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListAlerts returns the alert log of a journal, oldest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context, journalID string, filter AlertFilter) ([]models.Alert, error) {
	query := "SELECT data, seen FROM alerts WHERE journal_id = ?"
	args := []interface{}{journalID}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	if filter.TradeID != "" {
		query += " AND trade_id = ?"
		args = append(args, filter.TradeID)
	}
	if filter.UnseenOnly {
		query += " AND seen = 0"
	}
	query += " ORDER BY timestamp ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var data string
		var seen int
		if err := rows.Scan(&data, &seen); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		var a models.Alert
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("failed to decode alert: %w", err)
		}
		// The seen column is authoritative; MarkSeen does not rewrite the body.
		a.Seen = seen == 1
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// MarkSeen flags alerts as seen. With no ids every alert of the journal is
// flagged. It returns the number of alerts changed.
func (s *SQLiteStore) MarkSeen(ctx context.Context, journalID string, alertIDs ...string) (int, error) {
	query := "UPDATE alerts SET seen = 1 WHERE journal_id = ? AND seen = 0"
	args := []interface{}{journalID}
	if len(alertIDs) > 0 {
		query += " AND id IN (?" + strings.Repeat(",?", len(alertIDs)-1) + ")"
		for _, id := range alertIDs {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated alerts: %w", err)
	}
	return int(n), nil
}

// ============================================================================
// Settings
// ============================================================================

// GetSettings loads the application settings.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewStoreError("get", "settings", "", apperrors.ErrSettingsNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	var settings models.AppSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings replaces the application settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings *models.AppSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, string(data))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func unmarshalNullable(s sql.NullString, v interface{}) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}
