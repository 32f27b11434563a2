package xrdcl

import "time"

// handleReady is S5: both the message reader and writer slots are
// populated (P2), and readiness events drive whichever side fired. A
// socket that signals (via MapEvent) that it actually needs the opposite
// direction for an in-progress TLS renegotiation transparently dips the
// connection into S3' without any Stream callback (spec.md §4.3, E4, P7).
func (c *Connection) handleReady(kind EventKind) {
	switch kind {
	case EventReadyToRead:
		if mapped := c.socket.MapEvent(EventReadyToRead); mapped != EventReadyToRead {
			c.enterMidStreamTLS()
			return
		}
		c.driveMsgReader()
	case EventReadyToWrite:
		if mapped := c.socket.MapEvent(EventReadyToWrite); mapped != EventReadyToWrite {
			c.enterMidStreamTLS()
			return
		}
		c.driveMsgWriter()
	case EventReadTimeout:
		c.readTimeoutFired = true
		c.stream.OnReadTimeout()
	case EventWriteTimeout:
		c.writeTimeoutFired = true
		c.stream.OnWriteTimeout()
	case EventTick:
		c.checkInactivityTimeouts()
	default:
		c.onFaultLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}

// enterMidStreamTLS dips into S3' (TLS renegotiation while the connection
// is otherwise steady-state). The MsgReader and MsgWriter slots are left
// exactly as they are; handleTLS/onTLSUp resumes S5 without touching them.
func (c *Connection) enterMidStreamTLS() {
	c.tlsResumePhase = PhaseReady
	c.phase = PhaseTLSHandshaking
	c.metricsSetPhase()
	c.driveTLSHandshake()
}

func (c *Connection) driveMsgReader() {
	for {
		res := c.msgReader.Step()
		switch res.Outcome {
		case StepWouldBlock:
			return
		case StepFailed:
			c.onFaultLocked(res.Status)
			return
		case StepUnit:
			c.touchActivity()
			c.lastRead = time.Now()
			c.readTimeoutFired = false
			msg := c.msgReader.Take()
			c.stream.OnIncomingMessage(msg)
			continue
		case StepProgress:
			c.touchActivity()
			c.lastRead = time.Now()
			continue
		}
	}
}

func (c *Connection) driveMsgWriter() {
	for {
		res := c.msgWriter.Step()
		switch res.Outcome {
		case StepWouldBlock:
			return
		case StepFailed:
			c.onFaultLocked(res.Status)
			return
		case StepUnit:
			c.touchActivity()
			c.lastWrite = time.Now()
			c.writeTimeoutFired = false
			if c.msgWriter.Idle() {
				c.poller.EnableWriteNotification(c.socket, false, c.tickResolution)
				return
			}
			continue
		case StepProgress:
			c.touchActivity()
			c.lastWrite = time.Now()
			continue
		}
	}
}
