// Package watch observes the charter directory and turns charter changes
// into audit records. A removed or renamed charter is escalated: subjects
// governed by it would silently degrade to UNCHARTERED otherwise.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mirrornode/mirrornode/internal/identity"
	"github.com/mirrornode/mirrornode/internal/ledger"
)

const (
	eventTypeCharterChange = "charter_change"
	debounceWindow         = 500 * time.Millisecond
)

// Watcher audits charter file changes.
type Watcher struct {
	writer *ledger.Writer
	fs     *fsnotify.Watcher
	logger *slog.Logger
	actor  string

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a watcher over <canon_root>/charters. The directory is
// created if missing so a fresh canon can be watched immediately.
func New(writer *ledger.Writer, actor string, logger *slog.Logger) (*Watcher, error) {
	dir := filepath.Join(writer.Root(), "charters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating charter dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	if actor == "" {
		actor = "watcher"
	}
	return &Watcher{
		writer:   writer,
		fs:       fsw,
		logger:   logger,
		actor:    actor,
		lastSeen: make(map[string]time.Time),
	}, nil
}

// Run blocks processing filesystem events until ctx is cancelled or an
// audit append fails. An append failure is fatal: a watcher that cannot
// record what it saw must not keep watching.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching charters", "dir", filepath.Join(w.writer.Root(), "charters"))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if err := w.handle(ev); err != nil {
				return err
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// Close releases the filesystem watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

func (w *Watcher) handle(ev fsnotify.Event) error {
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, ".md") {
		return nil
	}
	if w.debounced(ev.Name) {
		return nil
	}

	subject := identity.SubjectFromKey(strings.TrimSuffix(base, ".md"))

	var verdict ledger.Verdict
	var errText *string
	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		verdict = ledger.VerdictEscalated
		errText = ledger.StringPtr("charter removed or renamed")
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		verdict = ledger.VerdictSuccess
	default:
		return nil
	}

	w.logger.Info("charter change", "charter", base, "op", ev.Op.String(), "verdict", verdict)

	_, err := w.writer.Emit(ledger.BuildParams{
		Subject:   subject,
		EventType: eventTypeCharterChange,
		Actor:     w.actor,
		Verdict:   verdict,
		Evidence: ledger.Evidence{
			Inputs: map[string]any{
				"charter": base,
				"op":      ev.Op.String(),
			},
			Error: errText,
		},
	})
	return err
}

// debounced reports whether this path fired within the coalescing window.
// Editors commonly emit several Write events for one save.
func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if last, ok := w.lastSeen[path]; ok && now.Sub(last) < debounceWindow {
		return true
	}
	w.lastSeen[path] = now
	return false
}
