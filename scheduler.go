package enroll

import (
	"context"
	"time"
)

// NavigationFunc performs the navigation the page scheduled.
type NavigationFunc func(target string)

// ScheduledNavigation is a pending delayed redirect. It is tied to the
// lifetime of the context it was scheduled under: navigating away cancels
// the context and the redirect never fires.
type ScheduledNavigation struct {
	timer  *time.Timer
	done   chan struct{}
	cancel context.CancelFunc
}

// ScheduleNavigation fires navigate(target) after delay unless the context is
// cancelled first. A zero or negative delay navigates on the next tick.
func ScheduleNavigation(ctx context.Context, delay time.Duration, target string, navigate NavigationFunc) *ScheduledNavigation {
	ctx, cancel := context.WithCancel(ctx)

	if delay < 0 {
		delay = 0
	}

	nav := &ScheduledNavigation{
		timer:  time.NewTimer(delay),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(nav.done)
		select {
		case <-ctx.Done():
			nav.timer.Stop()
		case <-nav.timer.C:
			if navigate != nil {
				navigate(target)
			}
		}
	}()

	return nav
}

// Cancel stops the pending navigation. Safe to call after it fired.
func (n *ScheduledNavigation) Cancel() {
	n.cancel()
}

// Wait blocks until the navigation fired or was cancelled. Used by tests and
// by callers that need the redirect resolved before tearing the page down.
func (n *ScheduledNavigation) Wait() {
	<-n.done
}
