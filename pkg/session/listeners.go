package session

import (
	"github.com/TalissonJunior/traccar/pkg/models"
)

// AddListener subscribes a user session to update fan-out. Adding the
// same listener twice keeps a single registration.
func (m *Manager) AddListener(userID int64, listener UpdateListener) {
	if listener == nil {
		return
	}

	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	set := m.listeners[userID]
	if set == nil {
		set = make(map[UpdateListener]struct{})
		m.listeners[userID] = set
	}

	set[listener] = struct{}{}
}

// RemoveListener drops a registration. The registry holds no owning
// reference; a listener that is never removed is a caller bug.
func (m *Manager) RemoveListener(userID int64, listener UpdateListener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	set, ok := m.listeners[userID]
	if !ok {
		return
	}

	delete(set, listener)

	if len(set) == 0 {
		delete(m.listeners, userID)
	}
}

// SendKeepalive pings every registered listener across all users.
func (m *Manager) SendKeepalive() {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()

	for _, set := range m.listeners {
		for listener := range set {
			m.notify(listener.OnKeepalive)
		}
	}
}

// UpdateDevice fans a device record out to every user permitted to see it.
func (m *Manager) UpdateDevice(device *models.Device) {
	if device == nil {
		return
	}

	m.pushToDeviceUsers(device.ID, func(listener UpdateListener) {
		listener.OnUpdateDevice(device)
	})
}

// UpdatePosition fans a position out to every user permitted to see its
// device.
func (m *Manager) UpdatePosition(position *models.Position) {
	if position == nil {
		return
	}

	m.pushToDeviceUsers(position.DeviceID, func(listener UpdateListener) {
		listener.OnUpdatePosition(position)
	})
}

// UpdateEvent delivers an event to a single user's listeners.
func (m *Manager) UpdateEvent(userID int64, event *models.Event) {
	if event == nil {
		return
	}

	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()

	for listener := range m.listeners[userID] {
		m.notify(func() {
			listener.OnUpdateEvent(event)
		})
	}
}

func (m *Manager) pushToDeviceUsers(deviceID int64, push func(UpdateListener)) {
	// The permissions oracle may hit storage; resolve it before taking
	// the registry lock.
	userIDs := m.permissions.GetDeviceUsers(deviceID)

	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()

	for _, userID := range userIDs {
		for listener := range m.listeners[userID] {
			m.notify(func() {
				push(listener)
			})
		}
	}
}

// notify isolates a listener callback so one misbehaving listener cannot
// suppress delivery to the rest.
func (m *Manager) notify(callback func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn().Interface("panic", r).Msg("Update listener error")
		}
	}()

	callback()
}
