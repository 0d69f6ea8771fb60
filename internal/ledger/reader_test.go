package ledger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadShardFileToleratesTornTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit-osiris-2026-08-31T10-00-00Z.json")
	content := `{"timestamp":"2026-08-31T10:00:00Z","repo":"osiris","repo_hash":"UNKNOWN","charter_hash":"UNCHARTERED","event_type":"execution","actor":"system","verdict":"SUCCESS","evidence":{"duration_ms":1,"error":null},"audit_id":"a1"}
{"timestamp":"2026-08-31T10:00:01Z","repo":"osiris","repo_hash":"UNKNOWN","charter_hash":"UNCHARTERED","event_type":"execution","actor":"system","verdict":"FAILURE","evidence":{"duration_ms":2,"error":"boom"},"audit_id":"a2"}
{"timestamp":"2026-08-31T10:00:02Z","repo":"osi`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := ReadShardFile(path)
	require.NoError(t, err, "torn trailing line must be tolerated")
	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].AuditID)
	assert.Equal(t, "a2", records[1].AuditID)
}

func TestReadShardFileRejectsMidFileCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit-osiris-x.json")
	content := `not json at all
{"timestamp":"2026-08-31T10:00:00Z","repo":"osiris","repo_hash":"UNKNOWN","charter_hash":"UNCHARTERED","event_type":"execution","actor":"system","verdict":"SUCCESS","evidence":{"duration_ms":1,"error":null},"audit_id":"a1"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := ReadShardFile(path)
	assert.Error(t, err, "a malformed non-trailing line is real corruption")
}

func TestScanFilters(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	for _, p := range []BuildParams{
		{Subject: "osiris", EventType: "execution", Verdict: VerdictSuccess},
		{Subject: "osiris", EventType: "execution", Verdict: VerdictFailure,
			Evidence: Evidence{Error: StringPtr("boom")}},
		{Subject: "theia-core", EventType: "deployment", Verdict: VerdictSuccess},
	} {
		_, err := w.Emit(p)
		require.NoError(t, err)
	}

	all, err := Scan(root, QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	osiris, err := Scan(root, QueryOpts{Subject: "osiris"})
	require.NoError(t, err)
	assert.Len(t, osiris, 2)

	failures, err := Scan(root, QueryOpts{Verdict: VerdictFailure})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "osiris", failures[0].Subject)

	limited, err := Scan(root, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestScanEmptyRoot(t *testing.T) {
	records, err := Scan(t.TempDir(), QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
