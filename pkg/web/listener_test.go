package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
	"github.com/TalissonJunior/traccar/pkg/session"
)

type captureManager struct {
	mu       sync.Mutex
	userID   int64
	listener session.UpdateListener
	removed  int
}

func (m *captureManager) AddListener(userID int64, listener session.UpdateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.userID = userID
	m.listener = listener
}

func (m *captureManager) RemoveListener(_ int64, _ session.UpdateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removed++
}

func (m *captureManager) current() session.UpdateListener {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listener
}

func (m *captureManager) removals() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removed
}

func waitForListener(t *testing.T, manager *captureManager) session.UpdateListener {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if listener := manager.current(); listener != nil {
			return listener
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("listener was never registered")

	return nil
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + query

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	if resp != nil {
		defer resp.Body.Close()
	}

	return conn
}

func TestHandlerRejectsBadUserID(t *testing.T) {
	manager := &captureManager{}
	server := httptest.NewServer(NewHandler(manager, logger.NewTestLogger()))
	defer server.Close()

	resp, err := http.Get(server.URL + "?user_id=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, manager.current())
}

func TestHandlerDeliversDeviceFrames(t *testing.T) {
	manager := &captureManager{}
	server := httptest.NewServer(NewHandler(manager, logger.NewTestLogger()))
	defer server.Close()

	conn := dial(t, server, "?user_id=7")
	defer conn.Close()

	listener := waitForListener(t, manager)
	assert.Equal(t, int64(7), manager.userID)

	listener.OnUpdateDevice(&models.Device{ID: 42, Status: models.StatusOnline})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame payload
	require.NoError(t, conn.ReadJSON(&frame))

	require.Len(t, frame.Devices, 1)
	assert.Equal(t, int64(42), frame.Devices[0].ID)
	assert.Equal(t, models.StatusOnline, frame.Devices[0].Status)
	assert.Empty(t, frame.Positions)
	assert.Empty(t, frame.Events)
}

func TestHandlerDeliversEventAndPositionFrames(t *testing.T) {
	manager := &captureManager{}
	server := httptest.NewServer(NewHandler(manager, logger.NewTestLogger()))
	defer server.Close()

	conn := dial(t, server, "?user_id=7")
	defer conn.Close()

	listener := waitForListener(t, manager)

	listener.OnUpdatePosition(&models.Position{DeviceID: 42, Speed: 11})
	listener.OnUpdateEvent(models.NewEvent(models.TypeDeviceOverspeed, 42))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first payload
	require.NoError(t, conn.ReadJSON(&first))
	require.Len(t, first.Positions, 1)
	assert.Equal(t, float64(11), first.Positions[0].Speed)

	var second payload
	require.NoError(t, conn.ReadJSON(&second))
	require.Len(t, second.Events, 1)
	assert.Equal(t, models.TypeDeviceOverspeed, second.Events[0].Type)
}

func TestKeepalivePingsClient(t *testing.T) {
	manager := &captureManager{}
	server := httptest.NewServer(NewHandler(manager, logger.NewTestLogger()))
	defer server.Close()

	conn := dial(t, server, "?user_id=7")
	defer conn.Close()

	pinged := make(chan struct{}, 1)

	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}

		return nil
	})

	listener := waitForListener(t, manager)

	listener.OnKeepalive()

	// Control frames are processed by the read loop; a data frame after
	// the ping unblocks it.
	listener.OnUpdateDevice(&models.Device{ID: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame payload
	require.NoError(t, conn.ReadJSON(&frame))

	select {
	case <-pinged:
	default:
		t.Fatal("ping was not delivered before the data frame")
	}
}

func TestHandlerRemovesListenerOnDisconnect(t *testing.T) {
	manager := &captureManager{}
	server := httptest.NewServer(NewHandler(manager, logger.NewTestLogger()))
	defer server.Close()

	conn := dial(t, server, "?user_id=7")
	waitForListener(t, manager)

	require.NoError(t, conn.Close())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if manager.removals() > 0 {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("listener was not removed after disconnect")
}
