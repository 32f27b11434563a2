package xrdcl

// HandShakeData is the transport-controlled carrier of the in-flight
// handshake: the outbound frame to send next, the step counter, the most
// recent inbound frame, and whatever flags the transport has negotiated so
// far. It is owned by the Connection and filled in by the
// TransportHandler (HandshakeInit/HandshakeNext); the connection itself
// only sets In and advances Step, and otherwise reads Out/RequiresTLS.
type HandShakeData struct {
	// Step counts completed round trips, starting at 0 before the first
	// frame is sent.
	Step int

	// Out is the next outbound handshake frame, populated by the
	// transport in HandshakeInit or HandshakeNext before returning
	// Continue. The connection hands it to a fresh HSWriter and leaves
	// it in place after flushing, so a wait-response can resend it.
	Out []byte

	// In is the most recently parsed inbound handshake frame, populated
	// by the connection from the HSReader's Unit before calling
	// HandshakeNext.
	In *Message

	// RequiresTLS is set by the transport once it knows whether the
	// negotiated protocol mandates a TLS session. It is authoritative
	// only after HandshakeNext has returned Done.
	RequiresTLS bool

	// ServerFlags carries whatever protocol-specific feature bits the
	// transport chooses to stash here; the connection never interprets
	// it, only threads it through to OnHandshakeDone.
	ServerFlags uint32
}
