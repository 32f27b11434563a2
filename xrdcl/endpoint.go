package xrdcl

import "fmt"

// Endpoint is the remote address family/host/port a Connection dials, plus
// whatever numeric address it resolved to once connected.
type Endpoint struct {
	Network string // "tcp", "tcp4", "tcp6"
	Host    string
	Port    uint16

	// IPAddr is the numeric peer address, if the caller supplies one.
	// Connection never fills it in itself, so it stays as given in
	// Options.Endpoint (often empty).
	IPAddr string
}

// Address renders the endpoint the way Socket.Open expects it: host:port.
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

func (e Endpoint) String() string {
	if e.IPAddr != "" {
		return fmt.Sprintf("%s (%s)", e.Address(), e.IPAddr)
	}
	return e.Address()
}
