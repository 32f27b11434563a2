package xrdcl

import (
	"time"

	"go.uber.org/zap"
)

func (c *Connection) handleHandshaking(kind EventKind) {
	switch kind {
	case EventReadyToRead:
		c.driveHSReader()
	case EventReadyToWrite:
		c.driveHSWriter()
	case EventTick:
		if c.connectTimedOut() {
			c.onFaultWhileHandshakingLocked(newStatusf(StatusConnectTimeout, nil,
				"handshake exceeded connection timeout %s", c.connectionTimeout))
		}
	default:
		c.onFaultWhileHandshakingLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}

func (c *Connection) driveHSReader() {
	if c.hsReader == nil {
		framer := c.transport.HandshakeFramer()
		c.hsReader = NewHSReader(c.socket, framer.HeaderLen(), framer.ParseHeader)
	}
	for {
		res := c.hsReader.Step()
		switch res.Outcome {
		case StepWouldBlock:
			return
		case StepFailed:
			c.onFaultWhileHandshakingLocked(res.Status)
			return
		case StepUnit:
			c.touchActivity()
			msg := c.hsReader.Take()
			c.handleHandShake(msg)
			return
		case StepProgress:
			c.touchActivity()
			continue
		}
	}
}

func (c *Connection) driveHSWriter() {
	if c.hsWriter == nil {
		return
	}
	for {
		res := c.hsWriter.Step()
		switch res.Outcome {
		case StepWouldBlock:
			return
		case StepFailed:
			c.onFaultWhileHandshakingLocked(res.Status)
			return
		case StepUnit:
			c.touchActivity()
			return
		case StepProgress:
			c.touchActivity()
			continue
		}
	}
}

// handleHandShake processes one fully-assembled inbound handshake frame:
// it first checks whether it's a wait-response (S2->S4), then otherwise
// hands it to the transport for the next step.
func (c *Connection) handleHandShake(msg *Message) {
	if seconds, isWait := c.transport.IsWaitResponse(msg); isWait {
		c.hsWaitStart = time.Now()
		c.hsWaitSeconds = seconds
		c.phase = PhaseHandshakeWait
		c.metricsSetPhase()
		c.log.Debug("handshake wait response", zap.Int("seconds", seconds))
		return
	}

	c.hsdata.In = msg
	step, err := c.transport.HandshakeNext(c.hsdata)
	if err != nil || step == HSFatal {
		c.onFaultWhileHandshakingLocked(newStatusf(StatusHandshakeError, err, "handshake step %d", c.hsdata.Step))
		return
	}
	c.hsdata.Step++

	switch step {
	case HSContinue:
		c.sendHSMsgLocked()
	case HSDone:
		c.handShakeComplete()
	}
}

// sendHSMsgLocked prepares an HSWriter for the outbound frame the
// transport just populated and enables uplink so it gets written out.
func (c *Connection) sendHSMsgLocked() {
	c.hsWriter = NewHSWriter(c.socket, c.hsdata.Out)
	if !c.poller.EnableWriteNotification(c.socket, true, c.tickResolution) {
		c.onFaultWhileHandshakingLocked(newStatusf(StatusPollerError, nil, "enabling handshake write notification"))
	}
}

// handShakeComplete is HandShakeNextStep(done=true): the transport has
// finished the application handshake. It now gets to decide whether TLS
// is required before the connection can move to steady state.
func (c *Connection) handShakeComplete() {
	if c.hsdata.RequiresTLS {
		c.tlsResumePhase = PhaseHandshaking
		c.phase = PhaseTLSHandshaking
		c.metricsSetPhase()
		c.driveTLSHandshake()
		return
	}
	c.finishHandshakeLocked()
}

func (c *Connection) finishHandshakeLocked() {
	c.handshakeDone = true
	hsdata := c.hsdata
	c.hsdata = nil // I3: once done, no handshake context remains referenced

	c.installMessageDriversLocked()
	c.phase = PhaseReady
	c.metricsSetPhase()
	c.metricsRecordHandshakeDone()

	c.log.Info("handshake complete")
	c.stream.OnHandshakeDone(hsdata)
}

func (c *Connection) installMessageDriversLocked() {
	c.msgReader = NewMsgReader(c.socket, c.transport.Framer())
	c.msgWriter = NewMsgWriter(c.socket, c.nextOutboundLocked)
}

// nextOutboundLocked is what MsgWriter calls when it needs the next
// message to send: it first drains the lock-free SPSC queue, then falls
// back to asking the Stream directly.
func (c *Connection) nextOutboundLocked() (*Message, bool) {
	if msg, ok := c.outbound.Pop(); ok {
		return msg, true
	}
	return c.stream.OnReadyToWrite()
}

func (c *Connection) handleWait(kind EventKind) {
	switch kind {
	case EventTick:
		c.checkHSWait()
	case EventReadyToRead, EventReadyToWrite:
		// No I/O is scheduled while waiting; spurious readiness (e.g.
		// from a socket that was already registered) is ignored.
	default:
		c.onFaultWhileHandshakingLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}

// checkHSWait reissues the last outbound handshake frame once the
// server-requested wait has elapsed (B1: a wait of 0 seconds re-issues
// immediately on the next tick).
func (c *Connection) checkHSWait() {
	elapsed := time.Since(c.hsWaitStart)
	if elapsed < time.Duration(c.hsWaitSeconds)*time.Second {
		return
	}
	c.phase = PhaseHandshaking
	c.metricsSetPhase()
	c.sendHSMsgLocked()
}
