// Package session is the in-memory authority for device sessions,
// device status and update fan-out.
package session

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
	"github.com/TalissonJunior/traccar/pkg/timer"
)

const defaultDeviceTimeout = 10 * time.Minute

// Options carries the collaborator references and policies the manager
// needs. Motion and Overspeed are optional; everything else is required.
type Options struct {
	// DeviceTimeout is how long an online device stays online without
	// traffic before decaying to unknown.
	DeviceTimeout time.Duration
	// UpdateDeviceState runs the motion and overspeed evaluators when a
	// device leaves the online state.
	UpdateDeviceState bool
	// RegisterUnknown auto-registers unique ids the identity manager
	// cannot resolve.
	RegisterUnknown bool

	Identity      IdentityManager
	Devices       DeviceManager
	Permissions   PermissionsManager
	Notifications NotificationManager
	Cache         CacheCoordinator
	Timer         timer.Timer
	Motion        MotionHandler
	Overspeed     OverspeedHandler
	Logger        logger.Logger
}

// Manager owns the session table, the device-status state machine and
// the listener registry.
type Manager struct {
	deviceTimeout     time.Duration
	updateDeviceState bool
	registerUnknown   bool

	identity      IdentityManager
	devices       DeviceManager
	permissions   PermissionsManager
	notifications NotificationManager
	cache         CacheCoordinator
	timer         timer.Timer
	motion        MotionHandler
	overspeed     OverspeedHandler
	log           logger.Logger

	// mu guards both session indexes; every multi-index mutation is a
	// single critical section.
	mu                 sync.RWMutex
	sessionsByDeviceID map[int64]*DeviceSession
	sessionsByEndpoint map[Endpoint]map[string]*DeviceSession

	// statusMu serializes status transitions so each device observes a
	// total order of updates.
	statusMu sync.Mutex

	timeoutsMu sync.Mutex
	timeouts   map[int64]timer.Timeout

	listenersMu sync.RWMutex
	listeners   map[int64]map[UpdateListener]struct{}
}

// New wires a connection manager from explicit collaborator references.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.NewBasic()
	}

	deviceTimeout := opts.DeviceTimeout
	if deviceTimeout <= 0 {
		deviceTimeout = defaultDeviceTimeout
	}

	return &Manager{
		deviceTimeout:      deviceTimeout,
		updateDeviceState:  opts.UpdateDeviceState,
		registerUnknown:    opts.RegisterUnknown,
		identity:           opts.Identity,
		devices:            opts.Devices,
		permissions:        opts.Permissions,
		notifications:      opts.Notifications,
		cache:              opts.Cache,
		timer:              opts.Timer,
		motion:             opts.Motion,
		overspeed:          opts.Overspeed,
		log:                log.WithComponent("session"),
		sessionsByDeviceID: make(map[int64]*DeviceSession),
		sessionsByEndpoint: make(map[Endpoint]map[string]*DeviceSession),
		timeouts:           make(map[int64]timer.Timeout),
		listeners:          make(map[int64]map[UpdateListener]struct{}),
	}
}

// GetDeviceSession returns the live session for a device, or nil.
func (m *Manager) GetDeviceSession(deviceID int64) *DeviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessionsByDeviceID[deviceID]
}

// Bind resolves a session for a protocol-layer announcement. Candidate
// unique ids are probed in order against the endpoint's existing
// sessions; with no candidates any session already bound to the endpoint
// is returned, which callers should rely on only for single-device
// endpoints. It returns nil when no identity resolves or the device is
// disabled.
func (m *Manager) Bind(ctx context.Context, protocol string, channel Channel, remoteAddr net.Addr, uniqueIDs ...string) *DeviceSession {
	endpoint := NewEndpoint(channel, remoteAddr)

	m.mu.RLock()
	existing := m.probeLocked(endpoint, uniqueIDs)
	m.mu.RUnlock()

	if existing != nil || len(uniqueIDs) == 0 {
		return existing
	}

	// Identity resolution may block on storage; keep it outside the
	// session-table critical section.
	device := m.resolveDevice(ctx, uniqueIDs)

	if device == nil || device.Disabled {
		kind := "Unknown"
		if device != nil {
			kind = "Disabled"
		}

		m.log.Warn().
			Str("unique_ids", strings.Join(uniqueIDs, " ")).
			Str("remote", endpoint.RemoteAddr()).
			Msg(kind + " device")

		return nil
	}

	m.mu.Lock()

	// A concurrent announcement may have bound the endpoint while the
	// identity lookup was in flight.
	if concurrent := m.probeLocked(endpoint, uniqueIDs); concurrent != nil {
		m.mu.Unlock()
		return concurrent
	}

	evicted := m.evictLocked(device.ID)

	deviceSession := NewDeviceSession(device.ID, device.UniqueID, protocol, channel, remoteAddr)

	submap := m.sessionsByEndpoint[endpoint]
	if submap == nil {
		submap = make(map[string]*DeviceSession)
		m.sessionsByEndpoint[endpoint] = submap
	}

	submap[device.UniqueID] = deviceSession
	m.sessionsByDeviceID[device.ID] = deviceSession

	m.mu.Unlock()

	// On a rebind the new hold is taken before the evicted session's hold
	// is released, so the device never goes cold and ends up held once.
	m.cache.AddDevice(device.ID)

	if evicted {
		m.cache.RemoveDevice(device.ID)
	}

	return deviceSession
}

// probeLocked finds an existing session on the endpoint; caller holds mu.
func (m *Manager) probeLocked(endpoint Endpoint, uniqueIDs []string) *DeviceSession {
	submap := m.sessionsByEndpoint[endpoint]
	if submap == nil {
		return nil
	}

	if len(uniqueIDs) == 0 {
		for _, deviceSession := range submap {
			return deviceSession
		}

		return nil
	}

	for _, uniqueID := range uniqueIDs {
		if deviceSession, ok := submap[uniqueID]; ok {
			return deviceSession
		}
	}

	return nil
}

// evictLocked removes any prior session for the device from both
// indexes and reports whether one existed; caller holds mu.
func (m *Manager) evictLocked(deviceID int64) bool {
	old, ok := m.sessionsByDeviceID[deviceID]
	if !ok {
		return false
	}

	delete(m.sessionsByDeviceID, deviceID)

	oldEndpoint := old.endpoint()
	if submap, ok := m.sessionsByEndpoint[oldEndpoint]; ok {
		delete(submap, old.UniqueID())

		if len(submap) == 0 {
			delete(m.sessionsByEndpoint, oldEndpoint)
		}
	}

	return true
}

func (m *Manager) resolveDevice(ctx context.Context, uniqueIDs []string) *models.Device {
	var device *models.Device

	for _, uniqueID := range uniqueIDs {
		found, err := m.identity.ByUniqueID(ctx, uniqueID)
		if err != nil {
			m.log.Warn().Err(err).Str("unique_id", uniqueID).Msg("Find device error")
			break
		}

		if found != nil {
			device = found
			break
		}
	}

	if device == nil && m.registerUnknown {
		registered, err := m.identity.AddUnknownDevice(ctx, uniqueIDs[0])
		if err != nil {
			m.log.Warn().Err(err).Str("unique_id", uniqueIDs[0]).Msg("Register device error")
			return nil
		}

		device = registered
	}

	return device
}

// DeviceDisconnected tears down every session the channel's endpoint
// carries and marks the devices offline. Repeating it for the same
// endpoint is a no-op.
func (m *Manager) DeviceDisconnected(ctx context.Context, channel Channel) {
	if channel == nil {
		return
	}

	endpoint := NewEndpoint(channel, channel.RemoteAddr())

	m.mu.Lock()

	submap := m.sessionsByEndpoint[endpoint]
	delete(m.sessionsByEndpoint, endpoint)

	sessions := make([]*DeviceSession, 0, len(submap))
	for _, deviceSession := range submap {
		sessions = append(sessions, deviceSession)
		delete(m.sessionsByDeviceID, deviceSession.DeviceID())
	}

	m.mu.Unlock()

	for _, deviceSession := range sessions {
		m.UpdateStatus(ctx, deviceSession.DeviceID(), models.StatusOffline, time.Time{})
		m.cache.RemoveDevice(deviceSession.DeviceID())
	}
}

// DeviceUnknown demotes a decayed device and drops its session without
// closing the endpoint, which may still carry other devices.
func (m *Manager) DeviceUnknown(ctx context.Context, deviceID int64) {
	m.UpdateStatus(ctx, deviceID, models.StatusUnknown, time.Time{})

	m.mu.Lock()

	if deviceSession, ok := m.sessionsByDeviceID[deviceID]; ok {
		delete(m.sessionsByDeviceID, deviceID)

		endpoint := deviceSession.endpoint()
		if submap, ok := m.sessionsByEndpoint[endpoint]; ok {
			delete(submap, deviceSession.UniqueID())

			if len(submap) == 0 {
				delete(m.sessionsByEndpoint, endpoint)
			}
		}
	}

	m.mu.Unlock()

	m.cache.RemoveDevice(deviceID)
}

// UpdateStatus requests a status transition for a device. A zero
// observationTime leaves lastUpdate untouched. Event emission precedes
// persistence, which precedes fan-out; concurrent calls serialize and
// every transition emits its event.
func (m *Manager) UpdateStatus(ctx context.Context, deviceID int64, status string, observationTime time.Time) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	device, err := m.identity.ByID(ctx, deviceID)
	if err != nil {
		m.log.Warn().Err(err).Int64("device_id", deviceID).Msg("Find device error")
		return
	}

	if device == nil {
		return
	}

	oldStatus := device.Status
	device.Status = status

	if status != oldStatus {
		events := make(map[*models.Event]*models.Position)

		var eventType string

		switch status {
		case models.StatusOnline:
			eventType = models.TypeDeviceOnline
		case models.StatusUnknown:
			eventType = models.TypeDeviceUnknown

			if m.updateDeviceState {
				m.mergeDeviceState(deviceID, events)
			}
		default:
			eventType = models.TypeDeviceOffline

			if m.updateDeviceState {
				m.mergeDeviceState(deviceID, events)
			}
		}

		events[models.NewEvent(eventType, deviceID)] = nil
		m.notifications.UpdateEvents(ctx, events)
	}

	// Remove-and-cancel and re-arm are one critical section so a firing
	// task cannot slip between them.
	m.timeoutsMu.Lock()

	if existing, ok := m.timeouts[deviceID]; ok {
		delete(m.timeouts, deviceID)
		existing.Cancel()
	}

	if status == models.StatusOnline {
		m.timeouts[deviceID] = m.timer.NewTimeout(func(handle timer.Timeout) {
			if !handle.IsCancelled() {
				m.DeviceUnknown(context.Background(), deviceID)
			}
		}, m.deviceTimeout)
	}

	m.timeoutsMu.Unlock()

	if !observationTime.IsZero() {
		lastUpdate := observationTime
		device.LastUpdate = &lastUpdate
	}

	if err := m.devices.UpdateDeviceStatus(ctx, device); err != nil {
		m.log.Warn().Err(err).Int64("device_id", deviceID).Msg("Update device status error")
	}

	m.UpdateDevice(device)
}

// mergeDeviceState folds evaluator-derived events into the batch emitted
// for a transition out of online.
func (m *Manager) mergeDeviceState(deviceID int64, events map[*models.Event]*models.Position) {
	state := m.devices.GetDeviceState(deviceID)
	if state == nil {
		return
	}

	if m.motion != nil {
		for event, position := range m.motion.UpdateMotionState(state) {
			events[event] = position
		}
	}

	if m.overspeed != nil {
		speedLimit := m.devices.LookupAttributeDouble(deviceID, models.AttributeSpeedLimit, 0)
		for event, position := range m.overspeed.UpdateOverspeedState(state, speedLimit) {
			events[event] = position
		}
	}
}

// Close stops the timer wheel, drops armed timeouts silently and clears
// the session table.
func (m *Manager) Close() {
	m.timer.Stop()

	m.timeoutsMu.Lock()
	for deviceID, handle := range m.timeouts {
		delete(m.timeouts, deviceID)
		handle.Cancel()
	}
	m.timeoutsMu.Unlock()

	m.mu.Lock()
	m.sessionsByDeviceID = make(map[int64]*DeviceSession)
	m.sessionsByEndpoint = make(map[Endpoint]map[string]*DeviceSession)
	m.mu.Unlock()
}
