package xrdcl

import (
	"sync"
	"time"
)

// touchActivity records byte-transfer progress. last-activity is
// monotonically non-decreasing (I5/P3): callers only ever advance it to
// "now", and "now" only moves forward.
func (c *Connection) touchActivity() {
	c.lastActivity = time.Now()
}

// GetLastActivity is a pure accessor (spec.md §4.1).
func (c *Connection) GetLastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// checkInactivityTimeouts implements spec.md §4.5 points 2 and 3: S5-only
// read/write inactivity timers, reported to the Stream but not
// automatically fatal. Each fires at most once until driveMsgReader/
// driveMsgWriter clear the corresponding flag, which they do when a
// full message has been read or a write step completes (StepUnit);
// partial progress updates lastRead/lastWrite but leaves the flag set.
func (c *Connection) checkInactivityTimeouts() {
	now := time.Now()
	if c.readTimeout > 0 && !c.readTimeoutFired && !c.lastRead.IsZero() && now.Sub(c.lastRead) >= c.readTimeout {
		c.readTimeoutFired = true
		c.stream.OnReadTimeout()
	}
	if c.writeTimeout > 0 && !c.writeTimeoutFired && !c.lastWrite.IsZero() && now.Sub(c.lastWrite) >= c.writeTimeout {
		c.writeTimeoutFired = true
		c.stream.OnWriteTimeout()
	}
}

// Ticker drives EventTick at a fixed resolution on behalf of a Poller
// that doesn't generate its own tick events (spec.md's "tick resolution
// bounds the worst-case detection latency for every timer"). It is a
// small helper, not part of the Poller contract itself: a Poller
// implementation is free to deliver EventTick however it likes (e.g.
// netpoller.EPoller runs one ticker per poller instance and fans it out
// to every registered handler).
type Ticker struct {
	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	stopped bool
}

// NewTicker starts delivering EventTick to h every resolution until
// Stop is called.
func NewTicker(resolution time.Duration, h Handler) *Ticker {
	t := &Ticker{
		ticker: time.NewTicker(resolution),
		stop:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				h.Event(EventTick)
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

// Stop cancels the ticker. Idempotent.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.ticker.Stop()
	close(t.stop)
}
