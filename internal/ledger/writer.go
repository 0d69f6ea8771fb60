package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mirrornode/mirrornode/internal/identity"
	"github.com/mirrornode/mirrornode/internal/safefile"
)

// EmissionError is the fatal error raised when an audit record cannot be
// appended. The invoking operation must not be treated as complete when it
// sees one. It carries enough context to reconstruct what was lost.
type EmissionError struct {
	AuditID string
	Subject string
	Err     error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("audit emission failed, execution halted: audit_id=%s subject=%s: %v",
		e.AuditID, e.Subject, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

// Writer appends records to the monthly-sharded dossier ledger. It is the
// only component allowed to write under <root>/dossiers. A single Writer
// serializes its appends; concurrent writers to different monthly shards
// never contend beyond that mutex.
type Writer struct {
	root     string
	resolver *identity.Resolver
	index    Index     // optional, best-effort
	notices  io.Writer // diagnostic stream for the [AUDIT] notice line
	logger   *slog.Logger
	mu       sync.Mutex
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithIndex attaches a best-effort query index fed after each successful
// append. Index failures never fail the append.
func WithIndex(idx Index) WriterOption {
	return func(w *Writer) { w.index = idx }
}

// WithNotices redirects the one-line success notice (default os.Stdout).
func WithNotices(out io.Writer) WriterOption {
	return func(w *Writer) { w.notices = out }
}

// NewWriter creates a ledger writer rooted at the canon directory.
func NewWriter(canonRoot string, logger *slog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		root:     canonRoot,
		resolver: identity.NewResolver(canonRoot),
		notices:  os.Stdout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Resolver exposes the writer's identity resolver for callers that need
// charter paths or hashes directly.
func (w *Writer) Resolver() *identity.Resolver { return w.resolver }

// Root returns the canon root this writer appends under.
func (w *Writer) Root() string { return w.root }

// Emit builds a record from params and appends it. Returns the audit_id.
func (w *Writer) Emit(p BuildParams) (string, error) {
	return w.Append(Build(p, w.resolver))
}

// Append serializes the record as one NDJSON line and appends it to its
// monthly shard. Any failure returns a *EmissionError; the caller is
// forbidden from proceeding as if the operation completed. On success a
// one-line notice goes to the diagnostic stream, best-effort.
func (w *Writer) Append(r Record) (string, error) {
	line, err := json.Marshal(r)
	if err != nil {
		return "", &EmissionError{AuditID: r.AuditID, Subject: r.Subject, Err: err}
	}

	shardDir := filepath.Join(w.root, "dossiers", shardKey(r.Timestamp))
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		return "", &EmissionError{AuditID: r.AuditID, Subject: r.Subject,
			Err: fmt.Errorf("creating shard: %w", err)}
	}

	path := filepath.Join(shardDir, recordFileName(r.Subject, r.Timestamp))

	w.mu.Lock()
	err = safefile.AppendLine(path, line)
	w.mu.Unlock()
	if err != nil {
		return "", &EmissionError{AuditID: r.AuditID, Subject: r.Subject,
			Err: fmt.Errorf("appending record: %w", err)}
	}

	// Best-effort side channels; neither may mask a successful append.
	fmt.Fprintf(w.notices, "[AUDIT] %s | %s | %s\n", r.AuditID, r.Subject, r.Verdict) //nolint:errcheck
	if w.index != nil {
		w.index.Put(r)
	}

	return r.AuditID, nil
}

// shardKey truncates an RFC-3339 timestamp to its year-month.
func shardKey(timestamp string) string {
	if len(timestamp) >= 7 {
		return timestamp[:7]
	}
	return timestamp
}

// recordFileName builds the per-subject, per-timestamp log name with
// colons replaced so the name stays portable.
func recordFileName(subject, timestamp string) string {
	return "audit-" + subject + "-" + strings.ReplaceAll(timestamp, ":", "-") + ".json"
}
