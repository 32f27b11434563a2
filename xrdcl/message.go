package xrdcl

// Message is an opaque framed unit of protocol traffic. The handler never
// inspects its contents except through the two narrow hooks the transport
// exposes: detecting a handshake "wait" response (IsWaitResponse) and
// detecting header corruption in a framed status response (MsgReader).
type Message struct {
	// Raw is the full wire representation of the message, header included.
	// Ownership passes to whoever holds the Message; nobody mutates it
	// in place once a reader has emitted it.
	Raw []byte
}

// Len returns the number of bytes in the message.
func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Raw)
}
