package session

import (
	"net"
	"sync"
)

// DeviceSession binds a device identity to a live endpoint. The binding
// fields are fixed at creation; protocol decoders may stash scratch
// values with Set.
type DeviceSession struct {
	deviceID   int64
	uniqueID   string
	protocol   string
	channel    Channel
	remoteAddr net.Addr

	mu         sync.Mutex
	attributes map[string]interface{}
}

// NewDeviceSession creates the binding for a freshly identified device.
func NewDeviceSession(deviceID int64, uniqueID, protocol string, channel Channel, remoteAddr net.Addr) *DeviceSession {
	return &DeviceSession{
		deviceID:   deviceID,
		uniqueID:   uniqueID,
		protocol:   protocol,
		channel:    channel,
		remoteAddr: remoteAddr,
	}
}

func (s *DeviceSession) DeviceID() int64 {
	return s.deviceID
}

func (s *DeviceSession) UniqueID() string {
	return s.uniqueID
}

func (s *DeviceSession) Protocol() string {
	return s.protocol
}

func (s *DeviceSession) Channel() Channel {
	return s.channel
}

func (s *DeviceSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

// Set stores a per-protocol scratch attribute on the session.
func (s *DeviceSession) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attributes == nil {
		s.attributes = make(map[string]interface{})
	}

	s.attributes[key] = value
}

// Get reads a scratch attribute previously stored with Set.
func (s *DeviceSession) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.attributes[key]

	return value, ok
}

func (s *DeviceSession) endpoint() Endpoint {
	return NewEndpoint(s.channel, s.remoteAddr)
}
