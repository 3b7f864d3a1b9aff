// File: internal/browser/context.go
package browser

import (
	"context"
	"errors"
	"time"
)

// CombineContext returns a context carrying the values of primary (the tab
// context, which holds the CDP target) that ends when either primary or op
// ends. The deadline of op, if any, is carried over so chromedp sees it.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	var (
		combined context.Context
		cancel   context.CancelFunc
	)
	deadline, hasDeadline := op.Deadline()
	if hasDeadline {
		combined, cancel = context.WithDeadline(primary, deadline)
	} else {
		combined, cancel = context.WithCancel(primary)
	}

	stop := context.AfterFunc(op, func() {
		// An expired op deadline is reported by combined's own timer.
		if hasDeadline && errors.Is(op.Err(), context.DeadlineExceeded) {
			return
		}
		cancel()
	})
	return combined, func() {
		stop()
		cancel()
	}
}

// valueOnlyContext keeps the values of its parent but never ends.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with the values of ctx that is not canceled with
// it. Browser teardown runs on detached contexts so a canceled run still
// closes its tab.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
