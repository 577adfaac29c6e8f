package session

import (
	"net"
)

// Channel is the transport-layer handle a protocol server hands the core.
// The core never inspects it beyond equality; implementations must be
// comparable, which pointer-shaped handles are.
type Channel interface {
	RemoteAddr() net.Addr
}

// Endpoint identifies a live transport connection: the channel plus the
// remote address it speaks to. Two endpoints are equal iff both parts
// are; addresses compare by their textual form so distinct net.Addr
// values for the same peer still match.
type Endpoint struct {
	channel    Channel
	remoteAddr string
}

// NewEndpoint builds the session-table key for a channel and peer address.
func NewEndpoint(channel Channel, remoteAddr net.Addr) Endpoint {
	endpoint := Endpoint{channel: channel}
	if remoteAddr != nil {
		endpoint.remoteAddr = remoteAddr.String()
	}

	return endpoint
}

// RemoteAddr returns the textual peer address, empty when unknown.
func (e Endpoint) RemoteAddr() string {
	return e.remoteAddr
}
