package session

import (
	"context"

	"github.com/TalissonJunior/traccar/pkg/models"
)

// IdentityManager resolves device identities. Lookups may fail
// transiently; the manager logs the error and treats the identity as
// unresolved.
type IdentityManager interface {
	ByID(ctx context.Context, deviceID int64) (*models.Device, error)
	ByUniqueID(ctx context.Context, uniqueID string) (*models.Device, error)
	// AddUnknownDevice registers an unseen unique id, gated by the
	// register-unknown policy.
	AddUnknownDevice(ctx context.Context, uniqueID string) (*models.Device, error)
}

// DeviceManager persists device status and serves evaluator inputs.
type DeviceManager interface {
	GetDeviceState(deviceID int64) *models.DeviceState
	UpdateDeviceStatus(ctx context.Context, device *models.Device) error
	LookupAttributeDouble(deviceID int64, key string, defaultValue float64) float64
	LookupAttributeBoolean(deviceID int64, key string, defaultValue bool) bool
}

// PermissionsManager answers device visibility questions for fan-out.
type PermissionsManager interface {
	GetDeviceUsers(deviceID int64) []int64
	CheckDevice(userID, deviceID int64) bool
}

// NotificationManager records the events a status transition produces.
type NotificationManager interface {
	UpdateEvents(ctx context.Context, events map[*models.Event]*models.Position)
}

// CacheCoordinator tracks which devices currently hold a live session.
type CacheCoordinator interface {
	AddDevice(deviceID int64)
	RemoveDevice(deviceID int64)
}

// MotionHandler derives motion events from tracked device state.
type MotionHandler interface {
	UpdateMotionState(state *models.DeviceState) map[*models.Event]*models.Position
}

// OverspeedHandler derives overspeed events from tracked device state.
type OverspeedHandler interface {
	UpdateOverspeedState(state *models.DeviceState, speedLimit float64) map[*models.Event]*models.Position
}

// UpdateListener receives pushed updates for one user session. Callbacks
// run under the registry read lock: they must not block indefinitely and
// must not call AddListener or RemoveListener synchronously.
type UpdateListener interface {
	OnKeepalive()
	OnUpdateDevice(device *models.Device)
	OnUpdatePosition(position *models.Position)
	OnUpdateEvent(event *models.Event)
}
