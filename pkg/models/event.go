package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types produced by the connection core and its evaluators.
const (
	TypeDeviceOnline    = "deviceOnline"
	TypeDeviceOffline   = "deviceOffline"
	TypeDeviceUnknown   = "deviceUnknown"
	TypeDeviceMoving    = "deviceMoving"
	TypeDeviceStopped   = "deviceStopped"
	TypeDeviceOverspeed = "deviceOverspeed"
)

// Event is a discrete occurrence tied to a device.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	DeviceID   int64                  `json:"device_id"`
	PositionID int64                  `json:"position_id,omitempty"`
	EventTime  time.Time              `json:"event_time"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// NewEvent stamps a fresh event with an id and the current time.
func NewEvent(eventType string, deviceID int64) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		DeviceID:  deviceID,
		EventTime: time.Now(),
	}
}
