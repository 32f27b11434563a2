package xrdproto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chilikink/xrootd/xrdcl"
)

func TestHandshakeInitEncodesProtocolRequest(t *testing.T) {
	h := New()
	hsdata := &xrdcl.HandShakeData{}
	h.HandshakeInit(nil, hsdata)

	require.Equal(t, kXR_handshake, int(bigEndianUint32(hsdata.Out[0:4])))
	require.Equal(t, 8, int(bigEndianUint32(hsdata.Out[4:8])))
}

func TestHandshakeFullRoundTripRequiresTLS(t *testing.T) {
	h := New()
	hsdata := &xrdcl.HandShakeData{}
	h.HandshakeInit(nil, hsdata)

	protoResp := encodeFrame(kXR_ok, append(u32(1), u32(0)...))
	hsdata.In = &xrdcl.Message{Raw: protoResp}
	step, err := h.HandshakeNext(hsdata)
	require.NoError(t, err)
	require.Equal(t, xrdcl.HSContinue, step)
	require.Equal(t, kXR_login, int(bigEndianUint32(hsdata.Out[0:4])))
	hsdata.Step++

	loginResp := encodeFrame(kXR_ok, append(u32(1), u32(1)...)) // ok=1, requiresTLS=1
	hsdata.In = &xrdcl.Message{Raw: loginResp}
	step, err = h.HandshakeNext(hsdata)
	require.NoError(t, err)
	require.Equal(t, xrdcl.HSDone, step)
	require.True(t, hsdata.RequiresTLS)
}

func TestHandshakeLoginRejectedIsFatal(t *testing.T) {
	h := New()
	hsdata := &xrdcl.HandShakeData{Step: 1}
	loginResp := encodeFrame(kXR_ok, append(u32(0), u32(0)...)) // ok=0
	hsdata.In = &xrdcl.Message{Raw: loginResp}

	step, err := h.HandshakeNext(hsdata)
	require.Error(t, err)
	require.Equal(t, xrdcl.HSFatal, step)
}

func TestIsWaitResponseDetectsWaitStatus(t *testing.T) {
	h := New()
	waitMsg := &xrdcl.Message{Raw: encodeFrame(kXR_wait, u32(5))}
	seconds, isWait := h.IsWaitResponse(waitMsg)
	require.True(t, isWait)
	require.Equal(t, 5, seconds)

	okMsg := &xrdcl.Message{Raw: encodeFrame(kXR_ok, u32(1))}
	_, isWait = h.IsWaitResponse(okMsg)
	require.False(t, isWait)
}

func TestMessageFramerRejectsOversizedBody(t *testing.T) {
	f := messageFramer{}
	header := make([]byte, 8)
	bePut(header[4:8], maxBodyLen+1)
	_, err := f.ParseHeader(header)
	require.Error(t, err)
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	bePut(b, v)
	return b
}

func bePut(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func bigEndianUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
