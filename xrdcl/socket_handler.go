package xrdcl

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a new Connection.
type Options struct {
	URL          string
	SubStreamNum uint16
	Endpoint     Endpoint

	Poller      Poller
	Transport   TransportHandler
	ChannelData any
	Stream      Stream

	// ConnectionTimeout bounds S1/S2/S3 per spec.md §4.5 point 1.
	ConnectionTimeout time.Duration
	// TickResolution bounds worst-case timeout/wait detection latency.
	TickResolution time.Duration
	// ReadTimeout/WriteTimeout are the S5-only inactivity timers; zero
	// disables the corresponding timer.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// OutboundQueueSize sizes the SPSC queue backing EnqueueOutbound.
	OutboundQueueSize int

	Logger  *zap.Logger
	Metrics *Metrics
}

// Connection is the Socket Handler of spec.md §4.1: it owns one physical
// connection's socket, drives its handshake, and once ready multiplexes
// application messages with its Stream. It implements Handler, so a
// Poller can deliver events to it directly.
type Connection struct {
	mu sync.Mutex

	// id is a stable per-Connection identifier minted once at
	// construction, used as a log correlation field (conn_id)
	// so a single connection's lifecycle can be traced across restarts
	// of its streamName (e.g. after a reconnect reuses the same URL).
	id uuid.UUID

	poller      Poller
	transport   TransportHandler
	channelData any
	stream      Stream
	socket      Socket

	url          string
	subStreamNum uint16
	streamName   string
	endpoint     Endpoint

	phase Phase

	hsdata        *HandShakeData
	handshakeDone bool

	hsReader  *HSReader
	hsWriter  *HSWriter
	msgReader *MsgReader
	msgWriter *MsgWriter

	outbound *OutboundQueue

	tickResolution    time.Duration
	connectionStarted time.Time
	connectionTimeout time.Duration
	lastActivity      time.Time

	hsWaitStart   time.Time
	hsWaitSeconds int

	readTimeout       time.Duration
	writeTimeout      time.Duration
	lastRead          time.Time
	lastWrite         time.Time
	readTimeoutFired  bool
	writeTimeoutFired bool

	// tlsResumePhase records where to resume once DoTlsHandShake
	// reports Ok: PhaseHandshaking for the initial handshake-time TLS
	// upgrade (S2->S3->S5), PhaseReady for a transparent mid-stream
	// renegotiation (S5->S3'->S5).
	tlsResumePhase Phase

	faulted bool

	log     *zap.Logger
	metrics *Metrics
}

// NewConnection builds a Connection in PhaseIdle. It does not dial;
// call Connect to do that.
func NewConnection(opts Options) *Connection {
	tick := opts.TickResolution
	if tick <= 0 {
		tick = time.Second
	}
	qsize := opts.OutboundQueueSize
	if qsize <= 0 {
		qsize = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = Log()
	}

	c := &Connection{
		id:                uuid.New(),
		poller:            opts.Poller,
		transport:         opts.Transport,
		channelData:       opts.ChannelData,
		stream:            opts.Stream,
		url:               opts.URL,
		subStreamNum:      opts.SubStreamNum,
		endpoint:          opts.Endpoint,
		phase:             PhaseIdle,
		tickResolution:    tick,
		connectionTimeout: opts.ConnectionTimeout,
		readTimeout:       opts.ReadTimeout,
		writeTimeout:      opts.WriteTimeout,
		outbound:          NewOutboundQueue(qsize),
		log:               logger,
		metrics:           opts.Metrics,
	}
	c.streamName = toStreamName(opts.URL, opts.SubStreamNum)
	c.log = c.log.With(zap.String("conn_id", c.id.String()), zap.String("stream", c.streamName))
	return c
}

func toStreamName(url string, subStreamNum uint16) string {
	return fmt.Sprintf("%s#%d", url, subStreamNum)
}

// EnqueueOutbound hands msg to the Stream-side of the SPSC outbound queue.
// It is safe to call from a goroutine other than the one driving Event,
// which is precisely the boundary spec.md §9 describes. It returns false
// if the queue is full (backpressure).
func (c *Connection) EnqueueOutbound(msg *Message) bool {
	return c.outbound.Push(msg)
}

// Event is called by the Poller, possibly from more than one goroutine
// (netpoller.EPoller delivers readiness and ticks from separate ones);
// c.mu serializes the calls so the handler sees exactly one event at a
// time. It dispatches by (phase, event) instead of virtual subclass
// methods.
func (c *Connection) Event(kind EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return
	}

	switch c.phase {
	case PhaseConnecting:
		c.handleConnecting(kind)
	case PhaseHandshaking:
		c.handleHandshaking(kind)
	case PhaseTLSHandshaking:
		c.handleTLS(kind)
	case PhaseHandshakeWait:
		c.handleWait(kind)
	case PhaseReady:
		c.handleReady(kind)
	default:
		c.onFaultLocked(newStatusf(StatusIllegalTransition, nil,
			"event %s in phase %s", kind, c.phase))
	}
}
