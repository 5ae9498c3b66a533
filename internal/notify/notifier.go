// Package notify renders the §6.3 notification message and delivers it
// through a pluggable Notifier transport.
package notify

import "context"

// Notifier is the pluggable notification transport (bot channel) named in
// §1. The evaluation engine is the sole caller.
type Notifier interface {
	Send(ctx context.Context, message string) error
	Name() string
}
