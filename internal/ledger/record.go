// Package ledger implements the tamper-evident execution audit ledger:
// record construction, the monthly-sharded append-only writer, the
// execution wrapper, and readers over the dossier shards.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirrornode/mirrornode/internal/identity"
)

// Verdict is the terminal classification of an audited operation.
type Verdict string

const (
	VerdictSuccess   Verdict = "SUCCESS"
	VerdictFailure   Verdict = "FAILURE"
	VerdictBlocked   Verdict = "BLOCKED"
	VerdictEscalated Verdict = "ESCALATED"
)

// Valid reports whether v is one of the closed verdict set.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictSuccess, VerdictFailure, VerdictBlocked, VerdictEscalated:
		return true
	}
	return false
}

// Evidence carries the operation's inputs, outputs, timing, and error.
// Error marshals as JSON null when absent. The builder copies evidence
// verbatim; only the execution wrapper maintains the error/verdict
// correlation.
type Evidence struct {
	Inputs     map[string]any `json:"inputs,omitempty"`
	Outputs    map[string]any `json:"outputs,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Error      *string        `json:"error"`
}

// Record is one audit ledger entry. Wire field names are preserved from
// the original canon ledger so existing dossier readers keep working.
// Records are immutable once built.
type Record struct {
	Timestamp   string   `json:"timestamp"`
	Subject     string   `json:"repo"`
	Revision    string   `json:"repo_hash"`
	CharterHash string   `json:"charter_hash"`
	EventType   string   `json:"event_type"`
	Actor       string   `json:"actor"`
	Verdict     Verdict  `json:"verdict"`
	Evidence    Evidence `json:"evidence"`
	AuditID     string   `json:"audit_id"`
}

// BuildParams are the caller-supplied fields of a record.
type BuildParams struct {
	Subject   string
	EventType string
	Actor     string // defaults to "system"
	Verdict   Verdict
	Evidence  Evidence

	// CharterOverride bypasses the charter lookup entirely when set
	// (testing, or bootstrap before a charter exists).
	CharterOverride string
}

// Build assembles a complete record: fresh audit_id, UTC timestamp, and
// identity anchors from the resolver unless overridden. It never fails.
func Build(p BuildParams, res *identity.Resolver) Record {
	actor := p.Actor
	if actor == "" {
		actor = "system"
	}

	charterHash := p.CharterOverride
	if charterHash == "" {
		charterHash = res.CharterHash(p.Subject)
	}

	return Record{
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Subject:     p.Subject,
		Revision:    res.Revision(),
		CharterHash: charterHash,
		EventType:   p.EventType,
		Actor:       actor,
		Verdict:     p.Verdict,
		Evidence:    p.Evidence,
		AuditID:     uuid.New().String(),
	}
}

// StringPtr is a small helper for populating Evidence.Error.
func StringPtr(s string) *string { return &s }
