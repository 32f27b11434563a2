package xrdcl

// GetStreamName returns the derived "url#substream" identity used in logs
// and metrics labels.
func (c *Connection) GetStreamName() string {
	return c.streamName
}

// ID returns the connection's stable identifier, minted once in
// NewConnection, for correlating logs and metrics across a reconnect
// that reuses the same stream name.
func (c *Connection) ID() string {
	return c.id.String()
}

// GetAddress returns the endpoint this connection dials or has dialed.
func (c *Connection) GetAddress() Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// GetIpAddr returns the endpoint's IPAddr if one was supplied, or the
// configured hostname otherwise; the connection does not resolve or
// record the peer address itself.
func (c *Connection) GetIpAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoint.IPAddr != "" {
		return c.endpoint.IPAddr
	}
	return c.endpoint.Host
}

// GetIpStack reports the IP stack named by the endpoint's configured
// Network ("tcp4", "tcp6", or anything else for both).
func (c *Connection) GetIpStack() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.endpoint.Network {
	case "tcp4":
		return "IPv4"
	case "tcp6":
		return "IPv6"
	default:
		return "IPv4/IPv6"
	}
}

// Phase reports the current state machine phase. Exposed mainly for
// tests and metrics; Stream code should prefer reacting to callbacks
// rather than polling this.
func (c *Connection) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// HandshakeDone reports whether the application handshake has completed
// (I3: true implies no handshake context remains referenced).
func (c *Connection) HandshakeDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeDone
}
