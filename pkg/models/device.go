package models

import (
	"time"
)

// Device status values, persisted verbatim by the device manager.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// AttributeSpeedLimit is the device attribute consulted by the overspeed
// evaluator, in knots. Zero disables overspeed detection.
const AttributeSpeedLimit = "speedLimit"

// Device represents a tracked unit.
type Device struct {
	ID         int64                  `json:"id"`
	Name       string                 `json:"name"`
	UniqueID   string                 `json:"unique_id"`
	GroupID    int64                  `json:"group_id,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Disabled   bool                   `json:"disabled"`
	LastUpdate *time.Time             `json:"last_update,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}
