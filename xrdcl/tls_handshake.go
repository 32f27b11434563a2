package xrdcl

import "go.uber.org/zap"

// handleTLS dispatches readiness events while a TLS handshake (initial or
// mid-stream renegotiation) is in progress. Per spec.md §4.3, the
// direction of the event that unblocks the next step of a TLS handshake
// doesn't have to match the direction the caller asked for, since the
// socket's MapEvent/TLSHandshake combination handles that internally, so
// both EventReadyToRead and EventReadyToWrite simply re-drive the
// handshake.
func (c *Connection) handleTLS(kind EventKind) {
	switch kind {
	case EventReadyToRead, EventReadyToWrite:
		c.driveTLSHandshake()
	case EventTick:
		if c.tlsResumePhase == PhaseHandshaking && c.connectTimedOut() {
			c.onFaultWhileHandshakingLocked(newStatusf(StatusConnectTimeout, nil,
				"TLS handshake exceeded connection timeout %s", c.connectionTimeout))
		}
	default:
		c.onFaultWhileHandshakingLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}

// driveTLSHandshake runs one non-blocking step of the TLS handshake via
// the Socket, and acts on the result per spec.md §4.3.
func (c *Connection) driveTLSHandshake() {
	result := c.socket.TLSHandshake()
	switch result {
	case TLSOk:
		c.onTLSUp()
	case TLSRetryRead:
		if !c.poller.EnableReadNotification(c.socket, true, c.tickResolution) {
			c.faultFromTLSPhase(newStatusf(StatusPollerError, nil, "enabling TLS read retry"))
		}
	case TLSRetryWrite:
		if !c.poller.EnableWriteNotification(c.socket, true, c.tickResolution) {
			c.faultFromTLSPhase(newStatusf(StatusPollerError, nil, "enabling TLS write retry"))
		}
	case TLSFatal:
		c.faultFromTLSPhase(newStatusf(StatusTLSError, nil, "TLS handshake failed"))
	}
}

func (c *Connection) faultFromTLSPhase(st Status) {
	if c.tlsResumePhase == PhaseHandshaking {
		c.onFaultWhileHandshakingLocked(st)
		return
	}
	c.onFaultLocked(st)
}

// onTLSUp handles TLSOk. From the initial handshake-time upgrade
// (tlsResumePhase == PhaseHandshaking) this finishes the handshake and
// notifies the Stream exactly as the no-TLS path would. From a mid-stream
// renegotiation (tlsResumePhase == PhaseReady) it is completely
// transparent: no callback, and the MsgReader/MsgWriter that were
// preserved across the dip into S3' simply resume (spec.md §4.3/§9, P7).
func (c *Connection) onTLSUp() {
	c.log.Debug("tls handshake complete", zap.Stringer("resume_phase", c.tlsResumePhase))

	if c.tlsResumePhase == PhaseHandshaking {
		c.finishHandshakeLocked()
		return
	}
	c.phase = PhaseReady
	c.metricsSetPhase()
}
