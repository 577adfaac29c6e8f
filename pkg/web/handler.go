package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/session"
)

// SubscriptionManager is the listener surface of the connection manager.
type SubscriptionManager interface {
	AddListener(userID int64, listener session.UpdateListener)
	RemoveListener(userID int64, listener session.UpdateListener)
}

// Handler upgrades API socket requests and keeps the session registered
// as an update listener until the connection closes. Authentication
// happens upstream; the handler trusts the user id it is given.
type Handler struct {
	manager  SubscriptionManager
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the subscription socket handler.
func NewHandler(manager SubscriptionManager, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewBasic()
	}

	return &Handler{
		manager: manager,
		log:     log.WithComponent("web"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Socket upgrade error")
		return
	}

	listener := NewSocketListener(conn, h.log)
	h.manager.AddListener(userID, listener)

	defer func() {
		h.manager.RemoveListener(userID, listener)

		if err := conn.Close(); err != nil {
			h.log.Debug().Err(err).Msg("Socket close error")
		}
	}()

	// Drain incoming frames; the read loop ends when the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
