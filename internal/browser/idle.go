package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// networkIdleTracker counts in-flight requests so navigation can wait until
// the page has stopped loading resources.
type networkIdleTracker struct {
	quiet time.Duration

	mu       sync.Mutex
	inflight int
	idleCh   chan struct{}
}

func newNetworkIdleTracker(quiet time.Duration) *networkIdleTracker {
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	return &networkIdleTracker{quiet: quiet, idleCh: make(chan struct{}, 1)}
}

func (t *networkIdleTracker) started() {
	t.mu.Lock()
	t.inflight++
	t.mu.Unlock()
}

func (t *networkIdleTracker) finished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight > 0 {
		t.inflight--
	}
	if t.inflight == 0 {
		select {
		case t.idleCh <- struct{}{}:
		default:
		}
	}
}

func (t *networkIdleTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight == 0
}

func (t *networkIdleTracker) actionAttach() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev any) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				t.started()
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				t.finished()
			}
		})
		return nil
	})
}

// waitAction returns once no request has been in flight for the quiet
// period, or when timeout elapses. Hitting the timeout is not an error.
func (t *networkIdleTracker) waitAction(timeout time.Duration) chromedp.Action {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	return chromedp.ActionFunc(func(ctx context.Context) error {
		return t.wait(ctx, timeout)
	})
}

func (t *networkIdleTracker) wait(ctx context.Context, timeout time.Duration) error {
	quietTimer := time.NewTimer(t.quiet)
	defer quietTimer.Stop()

	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutTimer.C:
			return nil
		case <-t.idleCh:
			quietTimer.Reset(t.quiet)
		case <-quietTimer.C:
			if t.idle() {
				return nil
			}
			quietTimer.Reset(t.quiet)
		}
	}
}
