// Package web pushes connection-manager updates to WebSocket sessions.
package web

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
)

const writeWait = 10 * time.Second

// SocketListener adapts one WebSocket connection to the four-callback
// update listener contract. The owning handler must remove the listener
// from the registry before closing the socket.
type SocketListener struct {
	conn *websocket.Conn
	log  logger.Logger

	// gorilla permits a single concurrent writer per connection.
	mu sync.Mutex
}

// NewSocketListener wraps an upgraded connection.
func NewSocketListener(conn *websocket.Conn, log logger.Logger) *SocketListener {
	if log == nil {
		log = logger.NewBasic()
	}

	return &SocketListener{
		conn: conn,
		log:  log.WithComponent("web"),
	}
}

type payload struct {
	Devices   []*models.Device   `json:"devices,omitempty"`
	Positions []*models.Position `json:"positions,omitempty"`
	Events    []*models.Event    `json:"events,omitempty"`
}

// OnKeepalive sends a ping control frame.
func (l *SocketListener) OnKeepalive() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		l.log.Debug().Err(err).Msg("Socket ping error")
	}
}

// OnUpdateDevice pushes a device frame.
func (l *SocketListener) OnUpdateDevice(device *models.Device) {
	l.write(payload{Devices: []*models.Device{device}})
}

// OnUpdatePosition pushes a position frame.
func (l *SocketListener) OnUpdatePosition(position *models.Position) {
	l.write(payload{Positions: []*models.Position{position}})
}

// OnUpdateEvent pushes an event frame.
func (l *SocketListener) OnUpdateEvent(event *models.Event) {
	l.write(payload{Events: []*models.Event{event}})
}

func (l *SocketListener) write(data payload) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	if err := l.conn.WriteJSON(data); err != nil {
		l.log.Debug().Err(err).Msg("Socket write error")
	}
}
