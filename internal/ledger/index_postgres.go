package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	audit_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	subject TEXT NOT NULL,
	revision TEXT NOT NULL,
	charter_hash TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor TEXT NOT NULL,
	verdict TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_records_subject ON audit_records(subject);
CREATE INDEX IF NOT EXISTS idx_records_verdict ON audit_records(verdict);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON audit_records(timestamp);
`

// PostgresIndex indexes records in PostgreSQL for deployments where the
// canon root is shared and a local sqlite file will not do. Same contract
// as SQLiteIndex: best-effort, async, never on the append path.
type PostgresIndex struct {
	pool   *pgxpool.Pool
	writes chan Record
	done   chan struct{}
	logger *slog.Logger
}

// NewPostgresIndex connects to the database and ensures the schema.
func NewPostgresIndex(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting ledger index: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	idx := &PostgresIndex{
		pool:   pool,
		writes: make(chan Record, 256),
		done:   make(chan struct{}),
		logger: logger,
	}

	go idx.writeLoop()
	return idx, nil
}

// Put enqueues a record for async indexing, dropping it with a warning
// when the buffer is full.
func (p *PostgresIndex) Put(r Record) {
	select {
	case p.writes <- r:
	default:
		p.logger.Warn("ledger index buffer full, dropping record", "audit_id", r.AuditID)
	}
}

// Query returns indexed records matching the given filters, newest first.
func (p *PostgresIndex) Query(opts QueryOpts) ([]Record, error) {
	query := "SELECT audit_id, timestamp, subject, revision, charter_hash, event_type, actor, verdict, duration_ms, error FROM audit_records WHERE 1=1"
	var args []any

	if opts.Subject != "" {
		args = append(args, opts.Subject)
		query += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	if opts.Verdict != "" {
		args = append(args, string(opts.Verdict))
		query += fmt.Sprintf(" AND verdict = $%d", len(args))
	}
	if opts.Since != "" {
		args = append(args, opts.Since)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}

	query += " ORDER BY timestamp DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := p.pool.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger index: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var errText *string
		if err := rows.Scan(&r.AuditID, &r.Timestamp, &r.Subject, &r.Revision, &r.CharterHash,
			&r.EventType, &r.Actor, &r.Verdict, &r.Evidence.DurationMs, &errText); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Evidence.Error = errText
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close flushes pending puts and closes the pool.
func (p *PostgresIndex) Close() error {
	close(p.writes)
	<-p.done
	p.pool.Close()
	return nil
}

func (p *PostgresIndex) writeLoop() {
	defer close(p.done)
	ctx := context.Background()
	for r := range p.writes {
		var errText *string
		if r.Evidence.Error != nil {
			errText = r.Evidence.Error
		}
		_, err := p.pool.Exec(ctx,
			`INSERT INTO audit_records (audit_id, timestamp, subject, revision, charter_hash, event_type, actor, verdict, duration_ms, error) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.AuditID, r.Timestamp, r.Subject, r.Revision, r.CharterHash,
			r.EventType, r.Actor, string(r.Verdict), r.Evidence.DurationMs, errText,
		)
		if err != nil {
			p.logger.Error("ledger index write failed", "audit_id", r.AuditID, "error", err)
		}
	}
}
