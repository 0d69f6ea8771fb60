package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEmitWritesDecodableShardLine(t *testing.T) {
	root := t.TempDir()
	var notices bytes.Buffer
	w := NewWriter(root, testLogger(), WithNotices(&notices))

	id, err := w.Emit(BuildParams{
		Subject:   "osiris",
		EventType: "execution",
		Verdict:   VerdictFailure,
		Evidence:  Evidence{DurationMs: 42, Error: StringPtr("boom")},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !uuidRe.MatchString(id) {
		t.Errorf("audit id %q is not uuid-shaped", id)
	}

	files := shardFiles(t, root)
	if len(files) != 1 {
		t.Fatalf("got %d shard files, want 1", len(files))
	}
	if !strings.HasPrefix(filepath.Base(files[0]), "audit-osiris-") {
		t.Errorf("unexpected file name %q", files[0])
	}
	if strings.Contains(filepath.Base(files[0]), ":") {
		t.Errorf("file name %q contains a colon", files[0])
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var decoded Record
	if err := json.Unmarshal(bytes.TrimSpace(data), &decoded); err != nil {
		t.Fatalf("decoding ledger line: %v", err)
	}
	if decoded.Verdict != VerdictFailure {
		t.Errorf("verdict = %q, want FAILURE", decoded.Verdict)
	}
	if decoded.Evidence.Error == nil || *decoded.Evidence.Error != "boom" {
		t.Errorf("evidence.error = %v, want boom", decoded.Evidence.Error)
	}
	if decoded.AuditID != id {
		t.Errorf("audit_id = %q, want %q", decoded.AuditID, id)
	}

	notice := notices.String()
	for _, part := range []string{"[AUDIT]", id, "osiris", "FAILURE"} {
		if !strings.Contains(notice, part) {
			t.Errorf("notice %q missing %q", notice, part)
		}
	}
}

func TestEmitNoDeduplication(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	p := BuildParams{Subject: "osiris", EventType: "execution", Verdict: VerdictSuccess}
	id1, err := w.Emit(p)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := w.Emit(p)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Errorf("expected distinct audit ids, both %q", id1)
	}

	total := 0
	for _, f := range shardFiles(t, root) {
		records, err := ReadShardFile(f)
		if err != nil {
			t.Fatal(err)
		}
		total += len(records)
	}
	if total != 2 {
		t.Errorf("got %d ledger lines, want 2", total)
	}
}

func TestAppendFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	// Make the root read-only so the shard directory cannot be created.
	if err := os.Chmod(root, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o700) })

	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))
	_, err := w.Emit(BuildParams{Subject: "osiris", EventType: "execution", Verdict: VerdictSuccess})
	if err == nil {
		t.Fatal("expected emission error on unwritable root")
	}

	var emissionErr *EmissionError
	if !errors.As(err, &emissionErr) {
		t.Fatalf("error %T is not *EmissionError", err)
	}
	if emissionErr.Subject != "osiris" {
		t.Errorf("Subject = %q", emissionErr.Subject)
	}
	if emissionErr.AuditID == "" {
		t.Error("AuditID missing from emission error")
	}
	if emissionErr.Unwrap() == nil {
		t.Error("emission error has no underlying cause")
	}
}

func TestConcurrentAppendsDoNotCorruptShard(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := w.Emit(BuildParams{
				Subject:   "osiris",
				EventType: "execution",
				Verdict:   VerdictSuccess,
				Evidence:  Evidence{Inputs: map[string]any{"n": fmt.Sprint(i)}},
			})
			if err != nil {
				t.Errorf("Emit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, f := range shardFiles(t, root) {
		records, err := ReadShardFile(f)
		if err != nil {
			t.Fatalf("shard %s corrupted: %v", f, err)
		}
		total += len(records)
	}
	if total != n {
		t.Errorf("got %d ledger lines, want %d", total, n)
	}
}

func TestShardKeyIsYearMonth(t *testing.T) {
	if got := shardKey("2026-08-31T10:02:03Z"); got != "2026-08" {
		t.Errorf("shardKey = %q, want 2026-08", got)
	}
}

// shardFiles returns every dossier file under root.
func shardFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(filepath.Join(root, "dossiers"), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking dossiers: %v", err)
	}
	return files
}
