package xrdcl

import (
	"time"

	"go.uber.org/zap"
)

// Connect initiates a non-blocking connect and registers the socket with
// the poller (S0->S1). It returns Ok if the connect was successfully
// initiated. TCP-level success is reported asynchronously via
// Stream.OnConnect once the first write readiness arrives; a connect
// error or connect timeout is reported via Stream.OnFault instead.
func (c *Connection) Connect(socket Socket, timeout time.Duration) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		st := newStatusf(StatusIllegalTransition, nil, "Connect called in phase %s", c.phase)
		c.onFaultLocked(st)
		return st
	}

	c.socket = socket
	c.connectionStarted = time.Now()
	c.connectionTimeout = timeout
	c.lastActivity = c.connectionStarted

	if err := c.socket.Open(c.endpoint.Address()); err != nil && err != ErrWouldBlock {
		st := newStatusf(StatusConnectError, err, "opening socket to %s", c.endpoint)
		c.onFaultLocked(st)
		return st
	}

	if !c.poller.AddSocket(c.socket, c) {
		st := newStatusf(StatusPollerError, nil, "poller refused to register %s", c.endpoint)
		c.onFaultLocked(st)
		return st
	}

	if !c.poller.EnableWriteNotification(c.socket, true, c.tickResolution) {
		st := newStatusf(StatusPollerError, nil, "poller refused write notification for %s", c.endpoint)
		c.onFaultLocked(st)
		return st
	}

	c.phase = PhaseConnecting
	c.log.Debug("connecting", zap.Stringer("endpoint", c.endpoint))
	c.metricsSetPhase()
	return OKStatus
}

func (c *Connection) handleConnecting(kind EventKind) {
	switch kind {
	case EventReadyToWrite:
		if err := c.socket.ConnectError(); err != nil {
			c.onFaultLocked(newStatusf(StatusConnectError, err, "connecting to %s", c.endpoint))
			return
		}

		c.phase = PhaseHandshaking
		c.hsdata = &HandShakeData{}
		c.transport.HandshakeInit(c.channelData, c.hsdata)
		c.touchActivity()
		c.metricsSetPhase()

		c.stream.OnConnect(OKStatus)

		c.sendHSMsgLocked()
		if !c.poller.EnableReadNotification(c.socket, true, c.tickResolution) {
			c.onFaultWhileHandshakingLocked(newStatusf(StatusPollerError, nil, "enabling read notification"))
			return
		}

	case EventTick:
		if c.connectTimedOut() {
			c.onFaultLocked(newStatusf(StatusConnectTimeout, nil,
				"no connect readiness within %s", c.connectionTimeout))
		}

	default:
		c.onFaultLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}

func (c *Connection) connectTimedOut() bool {
	if c.connectionTimeout <= 0 {
		return false
	}
	return time.Since(c.connectionStarted) > c.connectionTimeout
}

// Close is idempotent: it cancels outstanding timers, deregisters from
// the poller, closes the socket, and transitions to PhaseClosed. After
// Close returns, no further callbacks are delivered (B4). Close never
// itself triggers OnFault; an explicit close is not a fault.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.phase == PhaseClosed || c.phase == PhaseClosing {
		return
	}
	c.phase = PhaseClosing
	c.releaseResourcesLocked()
	c.phase = PhaseClosed
	c.metricsSetPhase()
}

func (c *Connection) releaseResourcesLocked() {
	if c.socket != nil {
		c.poller.RemoveSocket(c.socket)
		_ = c.socket.Close()
	}
	c.hsReader = nil
	c.hsWriter = nil
	c.msgReader = nil
	c.msgWriter = nil
	c.hsdata = nil
}

// EnableUplink asks the poller to deliver write-readiness events for this
// connection's socket.
func (c *Connection) EnableUplink() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poller.EnableWriteNotification(c.socket, true, c.tickResolution) {
		return newStatusf(StatusPollerError, nil, "enabling uplink")
	}
	return OKStatus
}

// DisableUplink asks the poller to stop delivering write-readiness events.
func (c *Connection) DisableUplink() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poller.EnableWriteNotification(c.socket, false, c.tickResolution) {
		return newStatusf(StatusPollerError, nil, "disabling uplink")
	}
	return OKStatus
}
