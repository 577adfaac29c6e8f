// Package store provides the in-process store backing the session core
// when no external database is wired. It implements the identity,
// device, permission and group contracts the managers consume.
package store

import (
	"context"
	"sync"

	"github.com/TalissonJunior/traccar/pkg/models"
)

// Memory keeps devices, device state, permissions and groups in maps.
type Memory struct {
	mu          sync.RWMutex
	devices     map[int64]*models.Device
	byUniqueID  map[string]int64
	states      map[int64]*models.DeviceState
	permissions map[int64]map[int64]struct{}
	groups      map[int64]*models.Group
	nextID      int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		devices:     make(map[int64]*models.Device),
		byUniqueID:  make(map[string]int64),
		states:      make(map[int64]*models.DeviceState),
		permissions: make(map[int64]map[int64]struct{}),
		groups:      make(map[int64]*models.Group),
	}
}

// AddDevice registers a device, minting an id when none is set. The
// stored pointer is shared with callers so status mutations made by the
// connection manager stay visible, matching the identity contract.
func (s *Memory) AddDevice(device *models.Device) *models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	if device.ID == 0 {
		s.nextID++
		device.ID = s.nextID
	} else if device.ID > s.nextID {
		s.nextID = device.ID
	}

	s.devices[device.ID] = device
	s.byUniqueID[device.UniqueID] = device.ID

	return device
}

// ByID implements session.IdentityManager.
func (s *Memory) ByID(_ context.Context, deviceID int64) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.devices[deviceID], nil
}

// ByUniqueID implements session.IdentityManager.
func (s *Memory) ByUniqueID(_ context.Context, uniqueID string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deviceID, ok := s.byUniqueID[uniqueID]
	if !ok {
		return nil, nil
	}

	return s.devices[deviceID], nil
}

// AddUnknownDevice implements session.IdentityManager, registering an
// unseen unique id under a fresh device id.
func (s *Memory) AddUnknownDevice(_ context.Context, uniqueID string) (*models.Device, error) {
	return s.AddDevice(&models.Device{
		Name:     uniqueID,
		UniqueID: uniqueID,
	}), nil
}

// GetDeviceState implements session.DeviceManager, creating an empty
// state on first access.
func (s *Memory) GetDeviceState(deviceID int64) *models.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[deviceID]
	if !ok {
		state = &models.DeviceState{}
		s.states[deviceID] = state
	}

	return state
}

// SetDeviceState replaces the tracked state for a device.
func (s *Memory) SetDeviceState(deviceID int64, state *models.DeviceState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[deviceID] = state
}

// UpdateDeviceStatus implements session.DeviceManager. The device record
// is shared, so the write only has to re-index.
func (s *Memory) UpdateDeviceStatus(_ context.Context, device *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[device.ID] = device

	return nil
}

// LookupAttributeDouble implements session.DeviceManager.
func (s *Memory) LookupAttributeDouble(deviceID int64, key string, defaultValue float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return defaultValue
	}

	if value, ok := device.Attributes[key].(float64); ok {
		return value
	}

	return defaultValue
}

// LookupAttributeBoolean implements session.DeviceManager.
func (s *Memory) LookupAttributeBoolean(deviceID int64, key string, defaultValue bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return defaultValue
	}

	if value, ok := device.Attributes[key].(bool); ok {
		return value
	}

	return defaultValue
}

// LinkDevice grants a user visibility of a device.
func (s *Memory) LinkDevice(userID, deviceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.permissions[deviceID]
	if set == nil {
		set = make(map[int64]struct{})
		s.permissions[deviceID] = set
	}

	set[userID] = struct{}{}
}

// GetDeviceUsers implements session.PermissionsManager.
func (s *Memory) GetDeviceUsers(deviceID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.permissions[deviceID]

	userIDs := make([]int64, 0, len(set))
	for userID := range set {
		userIDs = append(userIDs, userID)
	}

	return userIDs
}

// CheckDevice implements session.PermissionsManager.
func (s *Memory) CheckDevice(userID, deviceID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.permissions[deviceID][userID]

	return ok
}

// GetGroups implements groups.Storage.
func (s *Memory) GetGroups(_ context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Group, 0, len(s.groups))
	for _, group := range s.groups {
		result = append(result, group)
	}

	return result, nil
}

// AddGroup implements groups.Storage.
func (s *Memory) AddGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group.ID] = group

	return nil
}

// UpdateGroup implements groups.Storage.
func (s *Memory) UpdateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group.ID] = group

	return nil
}
