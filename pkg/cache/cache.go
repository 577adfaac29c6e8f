// Package cache tracks which devices currently hold a live session.
package cache

import (
	"sync"
)

// Manager reference-counts hot device ids so an overlapping remove/add
// pair from a session rebind never drops a device that is still live.
type Manager struct {
	mu      sync.Mutex
	devices map[int64]int
}

// NewManager creates an empty cache coordinator.
func NewManager() *Manager {
	return &Manager{devices: make(map[int64]int)}
}

// AddDevice marks a device hot.
func (m *Manager) AddDevice(deviceID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices[deviceID]++
}

// RemoveDevice releases one hold on a device; the device stays hot while
// other holds remain.
func (m *Manager) RemoveDevice(deviceID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, ok := m.devices[deviceID]
	if !ok {
		return
	}

	if count <= 1 {
		delete(m.devices, deviceID)
		return
	}

	m.devices[deviceID] = count - 1
}

// Contains reports whether the device is currently hot.
func (m *Manager) Contains(deviceID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.devices[deviceID]

	return ok
}

// Devices returns the set of hot device ids.
func (m *Manager) Devices() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}

	return ids
}
