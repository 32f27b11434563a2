package xrdcl

// MsgWriter drains the currently pending outbound message. When drained it
// asks nextFn (which the Connection wires to its outbound queue, falling
// back to Stream.OnReadyToWrite) for the next one; if none is available, Step reports StepUnit and Idle reports
// true, telling the Connection to disable uplink.
type MsgWriter struct {
	sock   Socket
	nextFn func() (*Message, bool)

	buf     []byte
	off     int
	pending bool
	idle    bool
}

// NewMsgWriter builds a writer. nextFn is called whenever the writer has
// fully drained its current buffer and needs another message.
func NewMsgWriter(sock Socket, nextFn func() (*Message, bool)) *MsgWriter {
	return &MsgWriter{sock: sock, nextFn: nextFn}
}

// Idle reports whether the most recent Step found nothing to send at all
// (as opposed to having just finished draining a message, which also
// reports StepUnit but leaves Idle false so the caller knows to try
// pulling the next message right away).
func (w *MsgWriter) Idle() bool { return w.idle }

func (w *MsgWriter) Step() StepResult {
	if !w.pending {
		msg, ok := w.nextFn()
		if !ok {
			w.idle = true
			return unitResult()
		}
		w.idle = false
		w.buf = msg.Raw
		w.off = 0
		w.pending = true
	}

	if w.off >= len(w.buf) {
		w.pending = false
		return unitResult()
	}

	n, err := w.sock.Write(w.buf[w.off:])
	if n > 0 {
		w.off += n
	}
	if err != nil {
		if err == ErrWouldBlock {
			if n > 0 {
				return progressResult()
			}
			return wouldBlockResult()
		}
		return failedResult(newStatusf(StatusSocketError, err, "message write"))
	}

	if w.off >= len(w.buf) {
		w.pending = false
		return unitResult()
	}
	return progressResult()
}
