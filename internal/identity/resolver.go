// Package identity derives the two anchors every audit record carries: the
// source-tree revision and the content hash of a subject's charter. Both
// degrade to sentinel values instead of failing.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mirrornode/mirrornode/internal/safefile"
)

const (
	// SentinelUnknown is returned when the source-tree revision cannot
	// be resolved (not a repository, git unavailable).
	SentinelUnknown = "UNKNOWN"
	// SentinelUnchartered is returned when the subject has no charter
	// document. Absence of a charter is not an error.
	SentinelUnchartered = "UNCHARTERED"

	// maxCharterBytes caps charter reads; charters are short markdown
	// documents, anything larger is suspect.
	maxCharterBytes = 1 << 20
)

// Resolver resolves identity anchors against a canon root.
type Resolver struct {
	CanonRoot string
}

// NewResolver creates a resolver rooted at the given canon directory.
func NewResolver(canonRoot string) *Resolver {
	return &Resolver{CanonRoot: canonRoot}
}

// Revision returns the current source-control head of the working
// directory, or SentinelUnknown on any failure. It never returns an error.
func (r *Resolver) Revision() string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return SentinelUnknown
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return SentinelUnknown
	}
	return rev
}

// CharterPath returns the deterministic charter location for a subject:
// <root>/charters/<SUBJECT_UPPER_WITH_UNDERSCORES>.md.
func (r *Resolver) CharterPath(subject string) string {
	return filepath.Join(r.CanonRoot, "charters", CharterKey(subject)+".md")
}

// CharterHash returns the sha256 hex digest of the subject's charter
// document, or SentinelUnchartered if it cannot be read. It never returns
// an error.
func (r *Resolver) CharterHash(subject string) string {
	content, err := safefile.ReadFileMax(r.CharterPath(subject), maxCharterBytes)
	if err != nil {
		return SentinelUnchartered
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CharterKey normalizes a subject name to its charter file key:
// uppercase with hyphens mapped to underscores.
func CharterKey(subject string) string {
	return strings.ToUpper(strings.ReplaceAll(subject, "-", "_"))
}

// SubjectFromKey reverses CharterKey for display purposes.
func SubjectFromKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}
