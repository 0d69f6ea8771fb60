package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Index is a queryable mirror of appended records. It is strictly
// best-effort: the NDJSON dossier files are the ledger of record, and a
// lost index put never fails the operation that appended the record.
type Index interface {
	// Put enqueues a record for indexing. Never blocks the caller.
	Put(r Record)
	// Query returns indexed records matching opts, newest first.
	Query(opts QueryOpts) ([]Record, error)
	// Close flushes pending puts and releases resources.
	Close() error
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	audit_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	subject TEXT NOT NULL,
	revision TEXT NOT NULL,
	charter_hash TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor TEXT NOT NULL,
	verdict TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_records_subject ON audit_records(subject);
CREATE INDEX IF NOT EXISTS idx_records_verdict ON audit_records(verdict);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON audit_records(timestamp);
`

// SQLiteIndex indexes records in a local SQLite database with an async
// write loop so ledger appends never wait on it.
type SQLiteIndex struct {
	db     *sql.DB
	writes chan Record
	done   chan struct{}
	logger *slog.Logger
}

// NewSQLiteIndex opens (or creates) the SQLite ledger index.
func NewSQLiteIndex(dbPath string, logger *slog.Logger) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger index: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("setting WAL mode: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("creating schema: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	idx := &SQLiteIndex{
		db:     db,
		writes: make(chan Record, 256),
		done:   make(chan struct{}),
		logger: logger,
	}

	go idx.writeLoop()
	return idx, nil
}

// Put enqueues a record for async indexing, dropping it with a warning
// when the buffer is full.
func (s *SQLiteIndex) Put(r Record) {
	select {
	case s.writes <- r:
	default:
		s.logger.Warn("ledger index buffer full, dropping record", "audit_id", r.AuditID)
	}
}

// Query returns indexed records matching the given filters, newest first.
func (s *SQLiteIndex) Query(opts QueryOpts) ([]Record, error) {
	query := "SELECT audit_id, timestamp, subject, revision, charter_hash, event_type, actor, verdict, duration_ms, error FROM audit_records WHERE 1=1"
	var args []any

	if opts.Subject != "" {
		query += " AND subject = ?"
		args = append(args, opts.Subject)
	}
	if opts.Verdict != "" {
		query += " AND verdict = ?"
		args = append(args, string(opts.Verdict))
	}
	if opts.Since != "" {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += fmt.Sprintf(" LIMIT %d", defaultQueryLimit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var errText sql.NullString
		if err := rows.Scan(&r.AuditID, &r.Timestamp, &r.Subject, &r.Revision, &r.CharterHash,
			&r.EventType, &r.Actor, &r.Verdict, &r.Evidence.DurationMs, &errText); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if errText.Valid {
			r.Evidence.Error = StringPtr(errText.String)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close flushes pending puts and closes the database.
func (s *SQLiteIndex) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func (s *SQLiteIndex) writeLoop() {
	defer close(s.done)
	for r := range s.writes {
		var errText any
		if r.Evidence.Error != nil {
			errText = *r.Evidence.Error
		}
		_, err := s.db.Exec(
			`INSERT INTO audit_records (audit_id, timestamp, subject, revision, charter_hash, event_type, actor, verdict, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.AuditID, r.Timestamp, r.Subject, r.Revision, r.CharterHash,
			r.EventType, r.Actor, string(r.Verdict), r.Evidence.DurationMs, errText,
		)
		if err != nil {
			s.logger.Error("ledger index write failed", "audit_id", r.AuditID, "error", err)
		}
	}
}
