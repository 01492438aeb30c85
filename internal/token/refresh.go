package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"msauth/pkg/oauth"
)

// RefreshAbandonedError is reported by Err when the refresh loop stopped
// trying. The current tokens remain usable until they expire.
type RefreshAbandonedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RefreshAbandonedError) Error() string {
	return fmt.Sprintf("token refresh abandoned after %d failed attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap returns the last refresh error.
func (e *RefreshAbandonedError) Unwrap() error {
	return e.Err
}

// StartAutoRefresh starts the background refresh loop. It returns false if a
// loop is already running. The loop ends when ctx is cancelled, when
// StopAutoRefresh is called, or when it gives up (see Err).
func (l *Lifecycle) StartAutoRefresh(ctx context.Context) bool {
	l.loopMu.Lock()
	defer l.loopMu.Unlock()

	if l.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.running = true
	l.cancel = cancel
	l.done = done
	l.loopErr = nil
	l.failures = 0

	go l.refreshLoop(loopCtx, cancel, done)
	return true
}

// StopAutoRefresh cancels the refresh loop and waits for it to exit. It is
// safe to call when no loop runs and more than once.
func (l *Lifecycle) StopAutoRefresh() {
	l.loopMu.Lock()
	cancel, done := l.cancel, l.done
	l.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the refresh loop is active.
func (l *Lifecycle) Running() bool {
	l.loopMu.Lock()
	defer l.loopMu.Unlock()
	return l.running
}

// Done returns a channel closed when the current refresh loop exits. It is
// nil if the loop was never started.
func (l *Lifecycle) Done() <-chan struct{} {
	l.loopMu.Lock()
	defer l.loopMu.Unlock()
	return l.done
}

// Err returns a *RefreshAbandonedError once the loop has given up, and nil
// while it runs or after a regular stop.
func (l *Lifecycle) Err() error {
	l.loopMu.Lock()
	defer l.loopMu.Unlock()
	return l.loopErr
}

// ConsecutiveFailures returns the number of failed attempts since the last
// successful refresh.
func (l *Lifecycle) ConsecutiveFailures() int {
	l.loopMu.Lock()
	defer l.loopMu.Unlock()
	return l.failures
}

func (l *Lifecycle) refreshLoop(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		cancel()
		l.loopMu.Lock()
		l.running = false
		l.loopMu.Unlock()
		close(done)
	}()

	schedule := l.newBackoff()
	failures := 0
	refreshed := false

	for {
		if ctx.Err() != nil {
			l.logger.Debug("Refresh loop stopped")
			return
		}

		var wait time.Duration
		if failures == 0 {
			wait = l.nextRefreshIn(refreshed)
			l.logger.Debug("Next token refresh scheduled", "in", wait.Round(time.Second))
		} else {
			wait = schedule.NextBackOff()
			l.logger.Debug("Retrying token refresh", "in", wait.Round(time.Millisecond), "failures", failures)
		}

		if !l.sleep(ctx, wait) {
			l.logger.Debug("Refresh loop stopped")
			return
		}

		attemptCtx, attemptCancel := context.WithTimeout(ctx, l.attemptTimeout)
		err := l.Refresh(attemptCtx)
		attemptCancel()

		if ctx.Err() != nil {
			l.logger.Debug("Refresh loop stopped")
			return
		}

		if err == nil {
			refreshed = true
			failures = 0
			schedule.Reset()
			l.setFailures(0)
			l.observe(nil)
			continue
		}

		failures++
		l.setFailures(failures)
		l.observe(err)

		if giveUp(err) || failures >= l.maxFailures {
			l.logger.Error("Giving up on token refresh",
				"attempts", failures,
				"error", err)
			l.loopMu.Lock()
			l.loopErr = &RefreshAbandonedError{Attempts: failures, Err: err}
			l.loopMu.Unlock()
			return
		}

		l.logger.Warn("Token refresh failed", "attempt", failures, "error", err)
	}
}

// nextRefreshIn returns the wait before the next scheduled refresh. A token
// already inside the margin is renewed at once, unless the loop itself just
// obtained it: then the wait is half its lifetime and at least
// MinRefreshInterval, so short-lived tokens cannot drive the loop without pause.
func (l *Lifecycle) nextRefreshIn(afterRefresh bool) time.Duration {
	wait := l.ExpiresIn() - l.margin
	if afterRefresh {
		floor := max(l.lifetime()/2, MinRefreshInterval)
		if wait < floor {
			wait = floor
		}
	}
	return max(wait, 0)
}

// giveUp reports errors a retry cannot fix.
func giveUp(err error) bool {
	if errors.Is(err, oauth.ErrMissingRefreshToken) {
		return true
	}
	var refreshErr *oauth.TokenRefreshError
	return errors.As(err, &refreshErr) && refreshErr.IsInvalidGrant()
}

// sleep waits for d or until ctx ends. It reports whether the wait completed.
func (l *Lifecycle) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-l.clock.After(d):
		return ctx.Err() == nil
	}
}

func (l *Lifecycle) setFailures(n int) {
	l.loopMu.Lock()
	l.failures = n
	l.loopMu.Unlock()
}

func (l *Lifecycle) observe(err error) {
	if l.observer != nil {
		l.observer.ObserveRefresh(err, l.ExpiresIn())
	}
}
