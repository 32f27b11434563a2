package xrdcl

import "time"

// EventKind is the single variant event type dispatched to a Connection by
// its Poller. This replaces the virtual-event-class hierarchy of the
// source implementation: there is one concrete type, and the handler
// switches on it against the current phase instead of relying on
// subclassing.
type EventKind uint8

const (
	EventReadyToRead EventKind = iota
	EventReadyToWrite
	EventReadTimeout
	EventWriteTimeout
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventReadyToRead:
		return "ready-to-read"
	case EventReadyToWrite:
		return "ready-to-write"
	case EventReadTimeout:
		return "read-timeout"
	case EventWriteTimeout:
		return "write-timeout"
	case EventTick:
		return "tick"
	default:
		return "unknown-event"
	}
}

// Handler is what a Poller delivers events to. Connection implements it.
type Handler interface {
	Event(kind EventKind)
}

// Poller is a readiness reactor: per-socket enable/disable of read and
// write notifications with a tick resolution. It is an external
// collaborator, per spec.md §1 its implementation is out of scope for
// the core; xrdcl/netpoller provides a concrete epoll-backed one.
type Poller interface {
	AddSocket(sock Socket, h Handler) bool
	RemoveSocket(sock Socket)
	EnableReadNotification(sock Socket, on bool, tick time.Duration) bool
	EnableWriteNotification(sock Socket, on bool, tick time.Duration) bool
}

// TLSResult is the outcome of one step of a TLS handshake.
type TLSResult uint8

const (
	TLSOk TLSResult = iota
	TLSRetryRead
	TLSRetryWrite
	TLSFatal
)

// Socket is a non-blocking socket: reads and writes never block, instead
// returning ErrWouldBlock. It is an external collaborator (spec.md §6);
// xrdcl/netpoller provides a concrete implementation over a raw fd.
type Socket interface {
	Open(address string) error
	Close() error

	// ConnectError returns nil once a non-blocking connect issued by
	// Open has succeeded, or the connect error (equivalent to
	// inspecting SO_ERROR) once the first write readiness fires.
	ConnectError() error

	// Read attempts to fill buf. It returns the number of bytes read,
	// or ErrWouldBlock if the socket has no data right now, or
	// ErrSocketClosed if the peer closed the connection.
	Read(buf []byte) (int, error)

	// Write attempts to drain buf starting at offset 0. It returns the
	// number of bytes actually written (which may be less than
	// len(buf)), or ErrWouldBlock if nothing could be written.
	Write(buf []byte) (int, error)

	// TLSHandshake drives one non-blocking step of the TLS handshake.
	TLSHandshake() TLSResult

	// MapEvent lets a socket mid-TLS-renegotiation rewrite a read
	// readiness into the write readiness it actually needs, or vice
	// versa, transparently to the caller.
	MapEvent(kind EventKind) EventKind
}

// HandshakeStep is the outcome of TransportHandler.HandshakeNext.
type HandshakeStep uint8

const (
	HSContinue HandshakeStep = iota
	HSDone
	HSFatal
)

// MessageFramer decodes the wire format of application (post-handshake)
// messages for MsgReader, and detects structural header corruption.
type MessageFramer interface {
	// HeaderLen is the number of bytes that make up a message header;
	// ParseHeader is only ever called once that many bytes are buffered.
	HeaderLen() int

	// ParseHeader inspects a full header and returns the number of
	// additional body bytes to wait for, or an error if the header is
	// structurally invalid (always surfaced as HeaderCorrupted).
	ParseHeader(header []byte) (bodyLen int, err error)
}

// TransportHandler is protocol-specific policy: it knows the handshake
// frames and the message framing. It is an external collaborator
// (spec.md §6); xrdcl/xrdproto provides a concrete XRootD-flavored one.
type TransportHandler interface {
	// HandshakeInit populates the first outbound frame into hsdata.Out.
	// channelData is the opaque, transport-owned object associated with
	// the logical channel this connection belongs to (stateless across
	// connections except through this object), mirroring spec.md §3's
	// "transport-provided opaque object."
	HandshakeInit(channelData any, hsdata *HandShakeData)

	// HandshakeNext is invoked after each inbound handshake frame is
	// parsed. hsdata.In holds the frame just received. On Continue,
	// hsdata.Out must hold the next outbound frame. On Done, hsdata
	// holds the final negotiated state (notably RequiresTLS).
	HandshakeNext(hsdata *HandShakeData) (HandshakeStep, error)

	// IsWaitResponse reports whether msg is a handshake "wait N
	// seconds" response, and if so, N.
	IsWaitResponse(msg *Message) (seconds int, isWait bool)

	// HandshakeFramer describes how to size a handshake frame: a fixed
	// header followed by a body whose length the header encodes.
	HandshakeFramer() MessageFramer

	// Framer returns the message framer used once the handshake is
	// done and the connection has moved to steady-state messaging.
	Framer() MessageFramer
}

// Stream is the out-of-scope owner of a Connection: it receives
// connection/message/fault callbacks and supplies outgoing messages.
type Stream interface {
	OnConnect(status Status)
	OnHandshakeDone(hsdata *HandShakeData)
	OnIncomingMessage(msg *Message)

	// OnReadyToWrite is a pull: the Stream hands back the next outbound
	// message, or (nil, false) if it has none right now, in which case
	// the connection disables uplink.
	OnReadyToWrite() (msg *Message, ok bool)

	// OnFault is terminal for this connection instance: it is called at
	// most once, and no other callback follows it.
	OnFault(status Status)

	// OnReadTimeout/OnWriteTimeout are informational; the Stream decides
	// whether and how to react. Neither is automatically fatal.
	OnReadTimeout()
	OnWriteTimeout()
}
