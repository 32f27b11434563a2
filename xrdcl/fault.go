package xrdcl

import "go.uber.org/zap"

// onFaultLocked is the single path every fatal status funnels through
// (spec.md §7: "any fatal kind routes through OnFault ... records the
// status, triggers resource release, and notifies the Stream exactly
// once"). It is a no-op if a fault has already been recorded for this
// connection (P1: OnFault delivered at most once, nothing follows it).
// Must be called with c.mu held.
func (c *Connection) onFaultLocked(st Status) {
	if c.faulted {
		return
	}
	c.faulted = true
	c.phase = PhaseClosing

	c.log.Error("connection fault",
		zap.String("status", st.Code.String()),
		zap.Error(st))
	c.metricsRecordFault(st.Code)

	c.stream.OnFault(st)
	c.releaseResourcesLocked()

	c.phase = PhaseClosed
	c.metricsSetPhase()
}

// onFaultWhileHandshakingLocked is the S1-S4 counterpart named separately
// in spec.md §4.1/§7 for symmetry with the source's
// OnFaultWhileHandshaking; its behavior is identical to onFaultLocked.
func (c *Connection) onFaultWhileHandshakingLocked(st Status) {
	c.onFaultLocked(st)
}
