package xrdcl

// MsgReader assembles incoming protocol messages once the connection has
// reached steady state (S5). It reports corrupted headers distinctly (via
// StepFailed with Status.Code == StatusHeaderCorrupted) so the handler can
// fault instead of attempting any partial recovery, per spec.md §4.2.
type MsgReader struct {
	sock   Socket
	framer MessageFramer

	buf      []byte
	haveHdr  bool
	bodyLen  int
	hdrLen   int
}

// NewMsgReader builds a reader driven by framer's header/body sizing.
func NewMsgReader(sock Socket, framer MessageFramer) *MsgReader {
	hdrLen := framer.HeaderLen()
	return &MsgReader{
		sock:   sock,
		framer: framer,
		hdrLen: hdrLen,
		buf:    make([]byte, 0, hdrLen),
	}
}

func (r *MsgReader) Step() StepResult {
	want := r.hdrLen
	if r.haveHdr {
		want = r.hdrLen + r.bodyLen
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
			if err == ErrSocketClosed {
				return failedResult(newStatusf(StatusSocketError, err, "peer closed connection"))
			}
			return failedResult(newStatusf(StatusSocketError, err, "message read"))
		}
		if n == 0 {
			return wouldBlockResult()
		}
	}

	if !r.haveHdr && len(r.buf) >= r.hdrLen {
		bodyLen, err := r.framer.ParseHeader(r.buf[:r.hdrLen])
		if err != nil {
			return failedResult(newStatusf(StatusHeaderCorrupted, err, "corrupted message header"))
		}
		r.haveHdr = true
		r.bodyLen = bodyLen
		if bodyLen == 0 {
			return unitResult()
		}
		return progressResult()
	}

	if r.haveHdr && len(r.buf) >= r.hdrLen+r.bodyLen {
		return unitResult()
	}

	return progressResult()
}

// Take returns the completed message and resets the reader for the next
// one. Only valid right after Step returned StepUnit.
func (r *MsgReader) Take() *Message {
	msg := &Message{Raw: r.buf}
	r.buf = make([]byte, 0, r.hdrLen)
	r.haveHdr = false
	r.bodyLen = 0
	return msg
}
