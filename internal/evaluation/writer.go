package evaluation

import (
	"context"
	"time"

	"github.com/ai-agentic-browser/internal/kv"
)

// Writer is the explicit write-capability handle named in §9's design
// note: writes are no-ops when dry is set, with the flag read once at
// construction and threaded through rather than relying on a try/finally
// safety net. There is deliberately no way to flip dry after construction.
type Writer struct {
	store kv.Store
	dry   bool
}

func NewWriter(store kv.Store, dry bool) *Writer {
	return &Writer{store: store, dry: dry}
}

func (w *Writer) Dry() bool { return w.dry }

func (w *Writer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if w.dry {
		return nil
	}
	return w.store.Set(ctx, key, value, ttl)
}

func (w *Writer) LPushCapped(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) error {
	if w.dry {
		return nil
	}
	return w.store.LPushCapped(ctx, key, value, maxLen, ttl)
}
