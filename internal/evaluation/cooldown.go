package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ai-agentic-browser/internal/kv"
)

// readLastSentAt returns the epoch-ms of the last notification for inst, or
// 0 if none has been sent.
func readLastSentAt(ctx context.Context, store kv.Store, inst string) (int64, error) {
	raw, ok, err := store.Get(ctx, kv.LastSentAtKey(inst))
	if err != nil {
		return 0, fmt.Errorf("read last sent at: %w", err)
	}
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last sent at: %w", err)
	}
	return v, nil
}

// cooldownGate denies if now-lastSentAt < cooldown. force bypasses it.
func cooldownGate(now time.Time, lastSentAtMs int64, cooldownMinutes int, force bool) bool {
	if force {
		return true
	}
	if lastSentAtMs == 0 {
		return true
	}
	elapsed := now.UnixMilli() - lastSentAtMs
	return elapsed >= int64(cooldownMinutes)*60_000
}

func writeLastSentAt(ctx context.Context, w *Writer, inst string, now time.Time) error {
	return w.Set(ctx, kv.LastSentAtKey(inst), []byte(strconv.FormatInt(now.UnixMilli(), 10)), 0)
}
