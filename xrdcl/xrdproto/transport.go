// Package xrdproto is a concrete xrdcl.TransportHandler for the XRootD
// client protocol: the initial two-round handshake (protocol negotiation
// followed by login) and the steady-state message framing, grounded on
// the wire layout XrdClAsyncSocketHandler.hh and XrdClientPhyConnection.cc
// describe (a fixed-size preamble, a kXR_handshake request/response pair,
// then a uniform 8-byte header + variable body for every later message).
package xrdproto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chilikink/xrootd/xrdcl"
)

// Request/response codes from the XRootD client protocol's handshake.
const (
	kXR_handshake = 0
	kXR_login     = 3003
	kXR_wait      = 4003
	kXR_ok        = 0
)

// ChannelData is the opaque, transport-owned object spec.md's
// HandshakeInit threads through. Handler does not read it: every
// connection starts with kXR_handshake, and the login request always
// carries the user name "anonymous" (defaultUsername), whatever Username
// holds.
type ChannelData struct {
	Username string

	// ServerProtocolVersion is not filled in by Handler; every
	// connection repeats the full protocol negotiation.
	ServerProtocolVersion uint32
}

// Handler implements xrdcl.TransportHandler for the XRootD client
// protocol's two-step handshake: kXR_handshake negotiates the protocol
// version, kXR_login authenticates the stream.
type Handler struct {
	framer   messageFramer
	hsFramer handshakeFramer
}

// New builds a ready-to-use Handler. One Handler instance is stateless
// across connections and may be shared by every Connection in a process;
// per-connection state lives entirely in xrdcl.HandShakeData.
func New() *Handler {
	return &Handler{}
}

// HandshakeInit implements xrdcl.TransportHandler.
func (h *Handler) HandshakeInit(channelData any, hsdata *xrdcl.HandShakeData) {
	hsdata.Out = encodeHandshakeRequest()
}

// HandshakeNext implements xrdcl.TransportHandler. Step 0 is the protocol
// handshake response; step 1 is the login response.
func (h *Handler) HandshakeNext(hsdata *xrdcl.HandShakeData) (xrdcl.HandshakeStep, error) {
	switch hsdata.Step {
	case 0:
		serverProto, serverType, err := decodeHandshakeResponse(hsdata.In.Raw)
		if err != nil {
			return xrdcl.HSFatal, err
		}
		hsdata.ServerFlags = uint32(serverType)<<16 | serverProto
		hsdata.Out = encodeLoginRequest(defaultUsername)
		return xrdcl.HSContinue, nil
	case 1:
		ok, requiresTLS, err := decodeLoginResponse(hsdata.In.Raw)
		if err != nil {
			return xrdcl.HSFatal, err
		}
		if !ok {
			return xrdcl.HSFatal, errors.New("xrdproto: login rejected")
		}
		hsdata.RequiresTLS = requiresTLS
		return xrdcl.HSDone, nil
	default:
		return xrdcl.HSFatal, fmt.Errorf("xrdproto: unexpected handshake step %d", hsdata.Step)
	}
}

// IsWaitResponse implements xrdcl.TransportHandler: a handshake-phase
// response whose status code is kXR_wait carries a retry delay in its
// body's first 4 bytes, per the same wait/retry convention
// XrdClAsyncSocketHandler::HandleWaitRsp implements for request responses.
func (h *Handler) IsWaitResponse(msg *xrdcl.Message) (int, bool) {
	if len(msg.Raw) < handshakeHeaderLen+4 {
		return 0, false
	}
	status := binary.BigEndian.Uint32(msg.Raw[0:4])
	if status != kXR_wait {
		return 0, false
	}
	seconds := binary.BigEndian.Uint32(msg.Raw[handshakeHeaderLen : handshakeHeaderLen+4])
	return int(seconds), true
}

// HandshakeFramer implements xrdcl.TransportHandler.
func (h *Handler) HandshakeFramer() xrdcl.MessageFramer { return handshakeFramer{} }

// Framer implements xrdcl.TransportHandler.
func (h *Handler) Framer() xrdcl.MessageFramer { return messageFramer{} }

const defaultUsername = "anonymous"
