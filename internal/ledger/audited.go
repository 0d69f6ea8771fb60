package ledger

import (
	"context"
	"time"
)

// Run executes fn and guarantees exactly one audit record is appended
// around it: SUCCESS on normal return, FAILURE on error, both carrying the
// wall-clock duration. The original result and error pass through
// untouched, with one exception: if the append itself fails, the
// *EmissionError replaces the outcome entirely and the wrapped result is
// discarded. Run never cancels fn once started; a cancellation surfacing
// as fn's error still produces its FAILURE record before propagating.
func Run[T any](ctx context.Context, w *Writer, subject, actor string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	durationMs := time.Since(start).Milliseconds()

	var zero T

	if err != nil {
		_, emitErr := w.Emit(BuildParams{
			Subject:   subject,
			EventType: "execution",
			Actor:     actor,
			Verdict:   VerdictFailure,
			Evidence: Evidence{
				DurationMs: durationMs,
				Error:      StringPtr(err.Error()),
			},
		})
		if emitErr != nil {
			return zero, emitErr
		}
		return result, err
	}

	_, emitErr := w.Emit(BuildParams{
		Subject:   subject,
		EventType: "execution",
		Actor:     actor,
		Verdict:   VerdictSuccess,
		Evidence: Evidence{
			DurationMs: durationMs,
			Error:      nil,
		},
	})
	if emitErr != nil {
		return zero, emitErr
	}
	return result, nil
}
