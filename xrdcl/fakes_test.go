package xrdcl

import (
	"encoding/binary"
	"time"
)

// fakeIOStep scripts one Write call's outcome.
type fakeIOStep struct {
	n   int
	err error
}

// fakeArrival scripts one "packet" landing on the wire: either some bytes
// to make available to the next Read calls, or an error (typically
// ErrWouldBlock) to return once prior arrivals are drained.
type fakeArrival struct {
	data []byte
	err  error
}

// fakeSocket is a fully scripted Socket used to drive the state machine
// deterministically, rather than opening real sockets. Read serves
// bytes out of an internal unread buffer fed by arrivals, so a single
// scripted chunk can be drained across several short Read calls
// exactly like a real socket.
type fakeSocket struct {
	openErr    error
	connectErr error

	readSteps  []fakeArrival
	readIdx    int
	unread     []byte

	writeSteps []fakeIOStep // optional; default is "accept it all"
	writeIdx   int

	tlsSteps []TLSResult
	tlsIdx   int

	mapEventFn func(EventKind) EventKind

	closed   bool
	opened   bool
	writeLog [][]byte
}

func (s *fakeSocket) Open(address string) error {
	s.opened = true
	return s.openErr
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSocket) ConnectError() error { return s.connectErr }

func (s *fakeSocket) Read(buf []byte) (int, error) {
	for len(s.unread) == 0 {
		if s.readIdx >= len(s.readSteps) {
			return 0, ErrWouldBlock
		}
		step := s.readSteps[s.readIdx]
		s.readIdx++
		if len(step.data) > 0 {
			s.unread = step.data
			continue
		}
		if step.err != nil {
			return 0, step.err
		}
		return 0, ErrWouldBlock
	}
	n := copy(buf, s.unread)
	s.unread = s.unread[n:]
	return n, nil
}

func (s *fakeSocket) Write(buf []byte) (int, error) {
	s.writeLog = append(s.writeLog, append([]byte(nil), buf...))
	if s.writeIdx < len(s.writeSteps) {
		step := s.writeSteps[s.writeIdx]
		s.writeIdx++
		return step.n, step.err
	}
	return len(buf), nil
}

func (s *fakeSocket) TLSHandshake() TLSResult {
	if s.tlsIdx >= len(s.tlsSteps) {
		return TLSOk
	}
	r := s.tlsSteps[s.tlsIdx]
	s.tlsIdx++
	return r
}

func (s *fakeSocket) MapEvent(kind EventKind) EventKind {
	if s.mapEventFn != nil {
		return s.mapEventFn(kind)
	}
	return kind
}

// fakePoller records registration/notification calls; tests drive events
// directly via Connection.Event rather than through a real reactor loop.
type fakePoller struct {
	added       bool
	removed     bool
	readEnabled bool
	wrEnabled   bool
	failAdd     bool
	failEnable  bool
}

func (p *fakePoller) AddSocket(sock Socket, h Handler) bool {
	if p.failAdd {
		return false
	}
	p.added = true
	return true
}

func (p *fakePoller) RemoveSocket(sock Socket) { p.removed = true }

func (p *fakePoller) EnableReadNotification(sock Socket, on bool, tick time.Duration) bool {
	if p.failEnable {
		return false
	}
	p.readEnabled = on
	return true
}

func (p *fakePoller) EnableWriteNotification(sock Socket, on bool, tick time.Duration) bool {
	if p.failEnable {
		return false
	}
	p.wrEnabled = on
	return true
}

// hsStep scripts one HandshakeNext call.
type hsStep struct {
	step        HandshakeStep
	out         []byte
	requiresTLS bool
	err         error
}

// fakeTransport is a scripted TransportHandler: frames are 4-byte
// big-endian-length-prefixed, and a handshake frame whose first body byte
// is 0xAA is a wait-response encoding seconds in the next 4 bytes.
type fakeTransport struct {
	initOut []byte
	steps   []hsStep
	framer  lenPrefixFramer
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{framer: lenPrefixFramer{}}
}

func (t *fakeTransport) HandshakeInit(channelData any, hsdata *HandShakeData) {
	hsdata.Out = t.initOut
}

func (t *fakeTransport) HandshakeNext(hsdata *HandShakeData) (HandshakeStep, error) {
	if hsdata.Step >= len(t.steps) {
		return HSDone, nil
	}
	s := t.steps[hsdata.Step]
	if s.err != nil {
		return HSFatal, s.err
	}
	if s.step == HSContinue {
		hsdata.Out = s.out
	}
	hsdata.RequiresTLS = s.requiresTLS
	return s.step, nil
}

func (t *fakeTransport) IsWaitResponse(msg *Message) (int, bool) {
	body := msg.Raw[4:]
	if len(body) >= 5 && body[0] == 0xAA {
		return int(binary.BigEndian.Uint32(body[1:5])), true
	}
	return 0, false
}

func (t *fakeTransport) HandshakeFramer() MessageFramer { return t.framer }
func (t *fakeTransport) Framer() MessageFramer          { return t.framer }

// lenPrefixFramer is a trivial 4-byte-big-endian-length-prefix framer
// shared by handshake and message framing in tests.
type lenPrefixFramer struct{}

func (lenPrefixFramer) HeaderLen() int { return 4 }

func (lenPrefixFramer) ParseHeader(header []byte) (int, error) {
	if len(header) != 4 {
		return 0, errShortHeader
	}
	n := binary.BigEndian.Uint32(header)
	if n > 1<<20 {
		return 0, errShortHeader
	}
	return int(n), nil
}

var errShortHeader = &headerErr{"short or oversized header"}

type headerErr struct{ msg string }

func (e *headerErr) Error() string { return e.msg }

func frame(body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

func waitFrame(seconds int) []byte {
	body := make([]byte, 5)
	body[0] = 0xAA
	binary.BigEndian.PutUint32(body[1:], uint32(seconds))
	return frame(body)
}

// fakeStream records every callback it receives, in order.
type fakeStream struct {
	events      []string
	faults      []Status
	connects    []Status
	hsdata      []*HandShakeData
	incoming    []*Message
	outbound    []*Message
	readTimeouts  int
	writeTimeouts int
}

func (s *fakeStream) OnConnect(status Status) {
	s.events = append(s.events, "connect")
	s.connects = append(s.connects, status)
}

func (s *fakeStream) OnHandshakeDone(hsdata *HandShakeData) {
	s.events = append(s.events, "handshake-done")
	s.hsdata = append(s.hsdata, hsdata)
}

func (s *fakeStream) OnIncomingMessage(msg *Message) {
	s.events = append(s.events, "incoming")
	s.incoming = append(s.incoming, msg)
}

func (s *fakeStream) OnReadyToWrite() (*Message, bool) {
	if len(s.outbound) == 0 {
		return nil, false
	}
	msg := s.outbound[0]
	s.outbound = s.outbound[1:]
	return msg, true
}

func (s *fakeStream) OnFault(status Status) {
	s.events = append(s.events, "fault")
	s.faults = append(s.faults, status)
}

func (s *fakeStream) OnReadTimeout()  { s.readTimeouts++ }
func (s *fakeStream) OnWriteTimeout() { s.writeTimeouts++ }
