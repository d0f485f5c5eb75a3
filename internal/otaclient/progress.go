package otaclient

import "sync"

// progressTracker implements spec §4.4: a monotonic percentage counter with
// a wait-for-threshold primitive. Multiple waiters may register for the
// same threshold; all of them resolve on the update that first meets it.
type progressTracker struct {
	mu       sync.Mutex
	current  uint8
	waiters  []progressWaiter
	rejected error
}

type progressWaiter struct {
	threshold uint8
	done      chan error
}

func newProgressTracker() *progressTracker {
	return &progressTracker{}
}

// update records a new device-reported percentage. Updates that do not
// advance the current value are ignored, preserving monotonicity.
func (t *progressTracker) update(p uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rejected != nil {
		return
	}
	if p <= t.current {
		return
	}
	t.current = p

	remaining := t.waiters[:0]
	for _, w := range t.waiters {
		if w.threshold <= t.current {
			close(w.done)
		} else {
			remaining = append(remaining, w)
		}
	}
	t.waiters = remaining
}

// waitFor returns a channel that is closed when the current percentage
// reaches threshold, or sent an error if the tracker is rejected first. It
// resolves immediately if the threshold is already met.
func (t *progressTracker) waitFor(threshold uint8) <-chan error {
	t.mu.Lock()
	defer t.mu.Unlock()

	done := make(chan error, 1)
	if t.rejected != nil {
		done <- t.rejected
		close(done)
		return done
	}
	if t.current >= threshold {
		close(done)
		return done
	}
	t.waiters = append(t.waiters, progressWaiter{threshold: threshold, done: done})
	return done
}

// rejectAll fails every outstanding waiter with err and marks the tracker
// unusable for any future waitFor call. Calling rejectAll more than once
// has no additional effect (cleanup idempotence, spec §8).
func (t *progressTracker) rejectAll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rejected != nil {
		return
	}
	t.rejected = err
	for _, w := range t.waiters {
		w.done <- err
		close(w.done)
	}
	t.waiters = nil
}

func (t *progressTracker) value() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
