// Package repository persists batch processing history in a local SQLite
// database so reruns can be audited and failures revisited.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_history (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id     TEXT,
	source_path     TEXT NOT NULL,
	uc              TEXT,
	reference_month TEXT,
	status          TEXT NOT NULL,
	stage           TEXT,
	error_kind      TEXT,
	error_detail    TEXT,
	processed_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_uc ON document_history (uc);
CREATE INDEX IF NOT EXISTS idx_history_status ON document_history (status);
`

// Outcome is one row of processing history.
type Outcome struct {
	DocumentID     string
	SourcePath     string
	UC             string
	ReferenceMonth string
	Status         constants.DocumentStatus
	Stage          string
	ErrorKind      string
	ErrorDetail    string
	ProcessedAt    time.Time
}

// HistoryStore is a SQLite-backed outcome log. Safe for concurrent writers;
// the database is opened with WAL mode and a busy timeout.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or reopens) the history database at path and bootstraps the
// schema.
func Open(path string, logger *slog.Logger) (*HistoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}

	logger.Info("history.opened", slog.String("path", path))
	return &HistoryStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordOutcome logs one pipeline result. History write failures are not
// batch-fatal; callers log and continue.
func (s *HistoryStore) RecordOutcome(ctx context.Context, res pipeline.Result) error {
	out := Outcome{
		SourcePath:  res.SourcePath,
		Status:      res.Status,
		ProcessedAt: time.Now().UTC(),
	}
	if rec := res.Record; rec != nil {
		out.DocumentID = rec.DocumentID.String()
		out.UC = rec.UC
		out.ReferenceMonth = rec.ReferenceMonth
	}
	if f := res.Failure; f != nil {
		out.DocumentID = f.DocumentID.String()
		out.Stage = f.Stage
		out.ErrorKind = f.Kind
		if f.Err != nil {
			out.ErrorDetail = f.Err.Error()
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_history
			(document_id, source_path, uc, reference_month, status, stage, error_kind, error_detail, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.DocumentID, out.SourcePath, out.UC, out.ReferenceMonth,
		string(out.Status), out.Stage, out.ErrorKind, out.ErrorDetail, out.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	s.logger.Debug("history.recorded",
		slog.String("source", out.SourcePath),
		slog.String("status", string(out.Status)))
	return nil
}

// StatusCounts returns how many documents finished in each status.
func (s *HistoryStore) StatusCounts(ctx context.Context) (map[constants.DocumentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM document_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[constants.DocumentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[constants.DocumentStatus(status)] = n
	}
	return counts, rows.Err()
}

// RecentFailures returns the most recent failed outcomes, newest first.
func (s *HistoryStore) RecentFailures(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, source_path, uc, reference_month, status, stage, error_kind, error_detail, processed_at
		FROM document_history
		WHERE status = ?
		ORDER BY processed_at DESC, id DESC
		LIMIT ?`,
		string(constants.StatusFailed), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var outs []Outcome
	for rows.Next() {
		var o Outcome
		var status string
		if err := rows.Scan(&o.DocumentID, &o.SourcePath, &o.UC, &o.ReferenceMonth,
			&status, &o.Stage, &o.ErrorKind, &o.ErrorDetail, &o.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan failure row: %w", err)
		}
		o.Status = constants.DocumentStatus(status)
		outs = append(outs, o)
	}
	return outs, rows.Err()
}
