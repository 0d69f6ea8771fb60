package ledger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

func TestRunSuccessEmitsOneRecord(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	got, err := Run(context.Background(), w, "osiris", "agent", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 7 {
		t.Errorf("result = %d, want 7", got)
	}

	records := allRecords(t, root)
	if len(records) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(records))
	}
	r := records[0]
	if r.Verdict != VerdictSuccess {
		t.Errorf("verdict = %q, want SUCCESS", r.Verdict)
	}
	if r.Evidence.Error != nil {
		t.Errorf("evidence.error = %v, want nil", r.Evidence.Error)
	}
	if r.Evidence.DurationMs < 0 {
		t.Errorf("duration_ms = %d, want non-negative", r.Evidence.DurationMs)
	}
	if r.Actor != "agent" || r.EventType != "execution" {
		t.Errorf("actor/event_type = %q/%q", r.Actor, r.EventType)
	}
}

func TestRunFailureEmitsOneRecordAndReRaises(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	boom := errors.New("boom")
	_, err := Run(context.Background(), w, "osiris", "agent", func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want the original failure unchanged", err)
	}

	records := allRecords(t, root)
	if len(records) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(records))
	}
	r := records[0]
	if r.Verdict != VerdictFailure {
		t.Errorf("verdict = %q, want FAILURE", r.Verdict)
	}
	if r.Evidence.Error == nil || *r.Evidence.Error != "boom" {
		t.Errorf("evidence.error = %v, want boom", r.Evidence.Error)
	}
}

func TestRunEmissionFailureBeatsSuccess(t *testing.T) {
	root := t.TempDir()
	if err := os.Chmod(root, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o700) })

	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	ran := false
	got, err := Run(context.Background(), w, "osiris", "agent", func(ctx context.Context) (int, error) {
		ran = true
		return 42, nil
	})
	if !ran {
		t.Fatal("wrapped operation did not run")
	}

	var emissionErr *EmissionError
	if !errors.As(err, &emissionErr) {
		t.Fatalf("Run error = %v, want *EmissionError", err)
	}
	// The wrapped result is discarded entirely (lossy by design).
	if got != 0 {
		t.Errorf("result = %d, want zero value alongside the fatal audit error", got)
	}
}

func TestRunCancelledOperationStillAudited(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger(), WithNotices(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, w, "osiris", "agent", func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	records := allRecords(t, root)
	if len(records) != 1 || records[0].Verdict != VerdictFailure {
		t.Fatalf("cancellation left %d records (want 1 FAILURE)", len(records))
	}
}

func allRecords(t *testing.T, root string) []Record {
	t.Helper()
	var out []Record
	for _, f := range shardFiles(t, root) {
		records, err := ReadShardFile(f)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, records...)
	}
	return out
}
