// Package sqlitejournal persists engine journal records in an embedded
// SQLite database, so task history survives process restarts.
package sqlitejournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ewe-studios/go-valtron/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_journal (
	id           TEXT PRIMARY KEY,
	label        TEXT NOT NULL DEFAULT '',
	engine       TEXT NOT NULL DEFAULT '',
	strategy     TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL DEFAULT '',
	error_msg    TEXT NOT NULL DEFAULT '',
	polls        INTEGER NOT NULL DEFAULT 0,
	submitted_at DATETIME NOT NULL,
	finished_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_task_journal_outcome ON task_journal(outcome);
CREATE INDEX IF NOT EXISTS idx_task_journal_submitted_at ON task_journal(submitted_at);
`

// recordRow is the data access object mapping task_journal columns.
type recordRow struct {
	ID          string       `db:"id"`
	Label       string       `db:"label"`
	Engine      string       `db:"engine"`
	Strategy    string       `db:"strategy"`
	Outcome     string       `db:"outcome"`
	ErrorMsg    string       `db:"error_msg"`
	Polls       int          `db:"polls"`
	SubmittedAt time.Time    `db:"submitted_at"`
	FinishedAt  sql.NullTime `db:"finished_at"`
}

func (r recordRow) toRecord() core.JournalRecord {
	rec := core.JournalRecord{
		ID:          r.ID,
		Label:       r.Label,
		Engine:      r.Engine,
		Strategy:    r.Strategy,
		Outcome:     r.Outcome,
		Error:       r.ErrorMsg,
		Polls:       r.Polls,
		SubmittedAt: r.SubmittedAt,
	}
	if r.FinishedAt.Valid {
		rec.FinishedAt = r.FinishedAt.Time
	}
	return rec
}

func toRow(rec core.JournalRecord) recordRow {
	row := recordRow{
		ID:          rec.ID,
		Label:       rec.Label,
		Engine:      rec.Engine,
		Strategy:    rec.Strategy,
		Outcome:     rec.Outcome,
		ErrorMsg:    rec.Error,
		Polls:       rec.Polls,
		SubmittedAt: rec.SubmittedAt,
	}
	if !rec.FinishedAt.IsZero() {
		row.FinishedAt = sql.NullTime{Time: rec.FinishedAt, Valid: true}
	}
	return row
}

// Journal is a core.Journal backed by SQLite.
type Journal struct {
	db *sqlx.DB
}

// Open connects to the database at dsn and creates the journal table if it
// does not exist yet. Plain file paths work as DSNs.
func Open(dsn string) (*Journal, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitejournal: open %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitejournal: connect %s: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitejournal: init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordSubmitted stores the trace of a freshly accepted root task.
func (j *Journal) RecordSubmitted(ctx context.Context, rec core.JournalRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sqlitejournal: journal record ID cannot be empty")
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now()
	}

	query := `
	INSERT INTO task_journal
	(id, label, engine, strategy, outcome, error_msg, polls, submitted_at, finished_at)
	VALUES (:id, :label, :engine, :strategy, :outcome, :error_msg, :polls, :submitted_at, :finished_at)
	`
	if _, err := j.db.NamedExecContext(ctx, query, toRow(rec)); err != nil {
		var exists bool
		probe := j.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM task_journal WHERE id = ?)`, rec.ID)
		if probe == nil && exists {
			return core.ErrRecordExists
		}
		return fmt.Errorf("sqlitejournal: record submitted: %w", err)
	}
	return nil
}

// RecordFinished marks a record with its terminal outcome.
func (j *Journal) RecordFinished(ctx context.Context, id, outcome, errText string, polls int, finishedAt time.Time) error {
	query := `
	UPDATE task_journal
	SET outcome = ?, error_msg = ?, polls = ?, finished_at = ?
	WHERE id = ?
	`
	res, err := j.db.ExecContext(ctx, query, outcome, errText, polls, finishedAt, id)
	if err != nil {
		return fmt.Errorf("sqlitejournal: record finished: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitejournal: record finished: %w", err)
	}
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// Get retrieves one record by observation ID.
func (j *Journal) Get(ctx context.Context, id string) (core.JournalRecord, error) {
	var row recordRow
	query := `
	SELECT id, label, engine, strategy, outcome, error_msg, polls, submitted_at, finished_at
	FROM task_journal WHERE id = ?
	`
	if err := j.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.JournalRecord{}, core.ErrRecordNotFound
		}
		return core.JournalRecord{}, fmt.Errorf("sqlitejournal: get %s: %w", id, err)
	}
	return row.toRecord(), nil
}

// List returns records matching the filter, most recent submission first.
func (j *Journal) List(ctx context.Context, filter core.JournalFilter) ([]core.JournalRecord, error) {
	query := `
	SELECT id, label, engine, strategy, outcome, error_msg, polls, submitted_at, finished_at
	FROM task_journal
	`
	args := []any{}
	switch filter.Outcome {
	case "":
	case core.LiveOutcome:
		query += ` WHERE outcome = ''`
	default:
		query += ` WHERE outcome = ?`
		args = append(args, filter.Outcome)
	}
	query += ` ORDER BY submitted_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []recordRow
	if err := j.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlitejournal: list: %w", err)
	}
	records := make([]core.JournalRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}
