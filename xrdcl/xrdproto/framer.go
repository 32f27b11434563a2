package xrdproto

import (
	"encoding/binary"
	"fmt"
)

// messageFramer implements xrdcl.MessageFramer for steady-state (S5)
// application messages: the same status+dlen prefix as the handshake
// frames, since XRootD uses one uniform response header for every kind of
// server reply once the session is logged in.
type messageFramer struct{}

func (messageFramer) HeaderLen() int { return handshakeHeaderLen }

func (messageFramer) ParseHeader(header []byte) (int, error) {
	if len(header) != handshakeHeaderLen {
		return 0, fmt.Errorf("xrdproto: short message header (%d bytes)", len(header))
	}
	dlen := binary.BigEndian.Uint32(header[4:8])
	if dlen > maxBodyLen {
		return 0, fmt.Errorf("xrdproto: message body length %d exceeds limit", dlen)
	}
	return int(dlen), nil
}

// EncodeRequest builds a request frame for request code reqID with the
// given body, the way a Stream would construct an outbound Message before
// handing it to Connection.EnqueueOutbound.
func EncodeRequest(reqID uint32, body []byte) []byte {
	return encodeFrame(reqID, body)
}
