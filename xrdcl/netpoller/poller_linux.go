//go:build linux

package netpoller

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/chilikink/xrootd/xrdcl"
)

// EPoller is a single epoll instance shared by every Connection it
// registers. NewEPoller starts two goroutines: run delivers readiness
// events and tick delivers EventTick, so a Connection's Event method is
// called from both; xrdcl.Connection serializes them with its own mutex.
type EPoller struct {
	epfd int
	log  *zap.Logger

	mu       sync.Mutex
	handlers map[int]registration
	closed   bool

	tickResolution time.Duration
	stop           chan struct{}
	stopped        sync.Once
}

type registration struct {
	sock *Socket
	h    xrdcl.Handler
}

// NewEPoller creates an epoll instance and starts its event loop in a new
// goroutine. tickResolution bounds how often EventTick is delivered to
// every registered handler; it should match the Connection's own
// TickResolution.
func NewEPoller(tickResolution time.Duration, log *zap.Logger) (*EPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if tickResolution <= 0 {
		tickResolution = time.Second
	}
	p := &EPoller{
		epfd:           epfd,
		log:            log,
		handlers:       make(map[int]registration),
		tickResolution: tickResolution,
		stop:           make(chan struct{}),
	}
	go p.run()
	go p.tick()
	return p, nil
}

// AddSocket implements xrdcl.Poller.
func (p *EPoller) AddSocket(sock xrdcl.Socket, h xrdcl.Handler) bool {
	s, ok := sock.(*Socket)
	if !ok {
		p.log.Error("netpoller: AddSocket given a socket it did not create")
		return false
	}
	ev := unix.EpollEvent{Events: 0, Fd: int32(s.fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, s.fd, &ev); err != nil {
		p.log.Error("epoll_ctl add", zap.Int("fd", s.fd), zap.Error(err))
		return false
	}
	p.mu.Lock()
	p.handlers[s.fd] = registration{sock: s, h: h}
	p.mu.Unlock()
	return true
}

// RemoveSocket implements xrdcl.Poller.
func (p *EPoller) RemoveSocket(sock xrdcl.Socket) {
	s, ok := sock.(*Socket)
	if !ok {
		return
	}
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, s.fd, nil)
	p.mu.Lock()
	delete(p.handlers, s.fd)
	p.mu.Unlock()
}

// EnableReadNotification implements xrdcl.Poller.
func (p *EPoller) EnableReadNotification(sock xrdcl.Socket, on bool, _ time.Duration) bool {
	s, ok := sock.(*Socket)
	if !ok {
		return false
	}
	return p.modify(s, func(mask *uint32) {
		setBit(mask, unix.EPOLLIN, on)
	})
}

// EnableWriteNotification implements xrdcl.Poller.
func (p *EPoller) EnableWriteNotification(sock xrdcl.Socket, on bool, _ time.Duration) bool {
	s, ok := sock.(*Socket)
	if !ok {
		return false
	}
	return p.modify(s, func(mask *uint32) {
		setBit(mask, unix.EPOLLOUT, on)
	})
}

func setBit(mask *uint32, bit uint32, on bool) {
	if on {
		*mask |= bit
	} else {
		*mask &^= bit
	}
}

func (p *EPoller) modify(s *Socket, mutate func(mask *uint32)) bool {
	s.mu.Lock()
	mutate(&s.interestMask)
	ev := unix.EpollEvent{Events: s.interestMask, Fd: int32(s.fd)}
	s.mu.Unlock()

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, s.fd, &ev); err != nil {
		p.log.Error("epoll_ctl mod", zap.Int("fd", s.fd), zap.Error(err))
		return false
	}
	return true
}

func (p *EPoller) run() {
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(p.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			p.mu.Lock()
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			p.log.Error("epoll_wait", zap.Error(err))
			continue
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			p.mu.Lock()
			reg, ok := p.handlers[int(ev.Fd)]
			p.mu.Unlock()
			if !ok {
				continue
			}
			readReady, writeReady := eventsToKinds(ev.Events)
			if readReady {
				reg.h.Event(xrdcl.EventReadyToRead)
			}
			if writeReady {
				reg.h.Event(xrdcl.EventReadyToWrite)
			}
		}
	}
}

// eventsToKinds maps a raw epoll event mask to the EventKinds it implies.
// EPOLLHUP/EPOLLERR report as both directions ready, the same way a
// closed or errored socket unblocks both a pending read and a pending
// write: whichever side the Connection is actually waiting on will
// discover the error via Read/Write returning it.
func eventsToKinds(events uint32) (readReady, writeReady bool) {
	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		return true, true
	}
	return events&unix.EPOLLIN != 0, events&unix.EPOLLOUT != 0
}

func (p *EPoller) tick() {
	t := time.NewTicker(p.tickResolution)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.mu.Lock()
			handlers := make([]xrdcl.Handler, 0, len(p.handlers))
			for _, reg := range p.handlers {
				handlers = append(handlers, reg.h)
			}
			p.mu.Unlock()
			for _, h := range handlers {
				h.Event(xrdcl.EventTick)
			}
		case <-p.stop:
			return
		}
	}
}

// Close shuts the epoll instance down. Registered sockets are not closed;
// the owning Connections are responsible for that via Close.
func (p *EPoller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.stopped.Do(func() { close(p.stop) })
	return unix.Close(p.epfd)
}
