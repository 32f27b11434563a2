package xrdproto

import (
	"encoding/binary"
	"fmt"
)

// handshakeHeaderLen is the fixed header every handshake-phase frame
// starts with: a 4-byte status/request code followed by a 4-byte body
// length, mirroring the status+dlen prefix every XRootD response carries.
const handshakeHeaderLen = 8

// handshakeFramer implements xrdcl.MessageFramer for handshake-phase
// frames.
type handshakeFramer struct{}

func (handshakeFramer) HeaderLen() int { return handshakeHeaderLen }

func (handshakeFramer) ParseHeader(header []byte) (int, error) {
	if len(header) != handshakeHeaderLen {
		return 0, fmt.Errorf("xrdproto: short handshake header (%d bytes)", len(header))
	}
	dlen := binary.BigEndian.Uint32(header[4:8])
	if dlen > maxBodyLen {
		return 0, fmt.Errorf("xrdproto: handshake body length %d exceeds limit", dlen)
	}
	return int(dlen), nil
}

// maxBodyLen bounds a single frame's body so a corrupted length field
// faults immediately instead of stalling the reader on an enormous read.
const maxBodyLen = 16 << 20

func encodeFrame(status uint32, body []byte) []byte {
	out := make([]byte, handshakeHeaderLen+len(body))
	binary.BigEndian.PutUint32(out[0:4], status)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(body)))
	copy(out[handshakeHeaderLen:], body)
	return out
}

func encodeHandshakeRequest() []byte {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body[0:4], 1) // requested protocol version
	binary.BigEndian.PutUint32(body[4:8], 0) // mode flags
	return encodeFrame(kXR_handshake, body)
}

func decodeHandshakeResponse(raw []byte) (serverProto uint32, serverType uint32, err error) {
	if len(raw) < handshakeHeaderLen+8 {
		return 0, 0, fmt.Errorf("xrdproto: short handshake response (%d bytes)", len(raw))
	}
	body := raw[handshakeHeaderLen:]
	serverProto = binary.BigEndian.Uint32(body[0:4])
	serverType = binary.BigEndian.Uint32(body[4:8])
	return serverProto, serverType, nil
}

func encodeLoginRequest(username string) []byte {
	return encodeFrame(kXR_login, []byte(username))
}

func decodeLoginResponse(raw []byte) (ok bool, requiresTLS bool, err error) {
	if len(raw) < handshakeHeaderLen+8 {
		return false, false, fmt.Errorf("xrdproto: short login response (%d bytes)", len(raw))
	}
	status := binary.BigEndian.Uint32(raw[0:4])
	body := raw[handshakeHeaderLen:]
	okFlag := binary.BigEndian.Uint32(body[0:4])
	tlsFlag := binary.BigEndian.Uint32(body[4:8])
	return status == kXR_ok && okFlag != 0, tlsFlag != 0, nil
}
