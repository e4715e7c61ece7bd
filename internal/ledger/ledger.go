// Package ledger records per-family stage outcomes in a local sqlite
// database, so long runs over thousands of folders can resume where they
// stopped and failures stay queryable after the process exits.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Stage is one step of the family pipeline.
type Stage string

const (
	StageCrawl   Stage = "crawl"
	StageExtract Stage = "extract"
	StageIngest  Stage = "ingest"
)

// Statuses of a recorded stage.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS family_stages (
	folder     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	status     TEXT NOT NULL,
	members    INTEGER NOT NULL DEFAULT 0,
	detail     TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (folder, stage)
);
CREATE INDEX IF NOT EXISTS idx_family_stages_status ON family_stages(status);
`

// Entry is one recorded stage outcome.
type Entry struct {
	Folder    string
	Stage     Stage
	Status    string
	Members   int
	Detail    string
	UpdatedAt string
}

// Ledger wraps the sqlite database.
type Ledger struct {
	db *sql.DB
}

// Open opens (and if needed creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// sqlite allows one writer; the pipeline is sequential per family
	// but stages may interleave goroutines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record upserts a stage outcome for a family.
func (l *Ledger) Record(folder string, stage Stage, status string, members int, detail string) error {
	_, err := l.db.Exec(`
		INSERT INTO family_stages (folder, stage, status, members, detail, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(folder, stage) DO UPDATE SET
			status = excluded.status,
			members = excluded.members,
			detail = excluded.detail,
			updated_at = excluded.updated_at`,
		folder, string(stage), status, members, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record stage: %w", err)
	}
	return nil
}

// Completed reports whether a stage previously finished ok for a family.
func (l *Ledger) Completed(folder string, stage Stage) (bool, error) {
	var status string
	err := l.db.QueryRow(
		`SELECT status FROM family_stages WHERE folder = ? AND stage = ?`,
		folder, string(stage)).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query stage: %w", err)
	}
	return status == StatusOK, nil
}

// Failures lists the families whose given stage last failed.
func (l *Ledger) Failures(stage Stage) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT folder, stage, status, members, detail, updated_at
		FROM family_stages
		WHERE stage = ? AND status = ?
		ORDER BY CAST(folder AS INTEGER)`,
		string(stage), StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var stage string
		if err := rows.Scan(&e.Folder, &stage, &e.Status, &e.Members, &e.Detail, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Stage = Stage(stage)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
