package xrdcl

// HSReader consumes bytes off the socket until one complete handshake
// frame is assembled, then emits it as a StepUnit. Framing is delegated
// to the TransportHandler indirectly: the handler tells us how many bytes
// a handshake frame's header occupies and how to size the body, via the
// headerLen and bodyLen constructor arguments, so that HSReader stays generic across handshake
// variants without parsing protocol bytes itself.
//
// HSReader is single-owner and not safe for concurrent use; it is driven
// exclusively by the Connection that created it.
type HSReader struct {
	sock Socket

	headerLen int
	bodyLen   func(header []byte) (int, error)

	buf      []byte
	haveHdr  bool
	bodySize int
}

// NewHSReader constructs a reader that expects a fixed-size header,
// followed by a body whose length bodyLen computes from that header.
func NewHSReader(sock Socket, headerLen int, bodyLen func(header []byte) (int, error)) *HSReader {
	return &HSReader{
		sock:      sock,
		headerLen: headerLen,
		bodyLen:   bodyLen,
		buf:       make([]byte, 0, headerLen),
	}
}

// Step attempts to make progress assembling the current frame. On
// StepUnit, Take must be called before the next Step to retrieve the
// frame and reset internal state.
func (r *HSReader) Step() StepResult {
	want := r.headerLen
	if r.haveHdr {
		want = r.headerLen + r.bodySize
	}

	if len(r.buf) < want {
		tmp := make([]byte, want-len(r.buf))
		n, err := r.sock.Read(tmp)
		if n > 0 {
			r.buf = append(r.buf, tmp[:n]...)
		}
		if err != nil {
			if err == ErrWouldBlock {
				if n > 0 {
					return progressResult()
				}
				return wouldBlockResult()
			}
			return failedResult(newStatusf(StatusSocketError, err, "handshake read"))
		}
		if n == 0 {
			return wouldBlockResult()
		}
	}

	if !r.haveHdr && len(r.buf) >= r.headerLen {
		bodyLen, err := r.bodyLen(r.buf[:r.headerLen])
		if err != nil {
			return failedResult(newStatusf(StatusHandshakeError, err, "parsing handshake header"))
		}
		r.haveHdr = true
		r.bodySize = bodyLen
		if bodyLen == 0 {
			return unitResult()
		}
		return progressResult()
	}

	if r.haveHdr && len(r.buf) >= r.headerLen+r.bodySize {
		return unitResult()
	}

	return progressResult()
}

// Take returns the completed frame and resets the reader for the next
// one. Only valid to call right after Step returned StepUnit.
func (r *HSReader) Take() *Message {
	msg := &Message{Raw: r.buf}
	r.buf = make([]byte, 0, r.headerLen)
	r.haveHdr = false
	r.bodySize = 0
	return msg
}
