package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// HistoryStatus is the outcome recorded for one generation attempt.
type HistoryStatus string

const (
	HistoryStatusCompleted HistoryStatus = "completed"
	HistoryStatusFailed    HistoryStatus = "failed"
	HistoryStatusSkipped   HistoryStatus = "skipped"
)

// HistoryEntry is one recorded generation attempt.
type HistoryEntry struct {
	ID          uuid.UUID
	ScheduleID  uuid.UUID
	ModuleCode  string
	SheetLabel  string
	OutputPath  string
	Status      HistoryStatus
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// HistoryStore keeps generation history in a local SQLite database.
type HistoryStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewHistoryStore opens (creating if needed) the history database in the
// given config directory.
func NewHistoryStore(configDir string, logger zerolog.Logger) (*HistoryStore, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	dbPath := filepath.Join(configDir, "history.db")

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &HistoryStore{
		db:     db,
		logger: logger.With().Str("component", "history_store").Logger(),
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	store.logger.Info().Str("path", dbPath).Msg("history database initialized")
	return store, nil
}

func (h *HistoryStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS generation_history (
			id TEXT PRIMARY KEY,
			schedule_id TEXT NOT NULL,
			module_code TEXT NOT NULL,
			sheet_label TEXT NOT NULL,
			output_path TEXT,
			status TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_generation_history_schedule_id ON generation_history(schedule_id);
		CREATE INDEX IF NOT EXISTS idx_generation_history_started_at ON generation_history(started_at);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Record stores one generation attempt. The entry id is assigned here.
func (h *HistoryStore) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO generation_history
			(id, schedule_id, module_code, sheet_label, output_path, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.ScheduleID.String(),
		entry.ModuleCode,
		entry.SheetLabel,
		entry.OutputPath,
		string(entry.Status),
		entry.Error,
		entry.StartedAt.UTC().Format(time.RFC3339),
		entry.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (h *HistoryStore) List(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, schedule_id, module_code, sheet_label, output_path, status, error, started_at, completed_at
		FROM generation_history
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// ListBySchedule returns the most recent entries for one schedule, newest
// first.
func (h *HistoryStore) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, schedule_id, module_code, sheet_label, output_path, status, error, started_at, completed_at
		FROM generation_history
		WHERE schedule_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, scheduleID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	for rows.Next() {
		var (
			entry                  HistoryEntry
			id, schedID            string
			outputPath, errMsg     sql.NullString
			startedAt, completedAt string
			status                 string
		)
		if err := rows.Scan(&id, &schedID, &entry.ModuleCode, &entry.SheetLabel, &outputPath, &status, &errMsg, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}

		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse history id: %w", err)
		}
		parsedSchedID, err := uuid.Parse(schedID)
		if err != nil {
			return nil, fmt.Errorf("parse history schedule id: %w", err)
		}
		entry.ID = parsedID
		entry.ScheduleID = parsedSchedID
		entry.OutputPath = outputPath.String
		entry.Status = HistoryStatus(status)
		entry.Error = errMsg.String
		if entry.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parse history started_at: %w", err)
		}
		if entry.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
			return nil, fmt.Errorf("parse history completed_at: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
