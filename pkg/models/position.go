package models

import (
	"time"
)

// Position is a single decoded location report. Speed is in knots.
type Position struct {
	ID         int64                  `json:"id"`
	DeviceID   int64                  `json:"device_id"`
	Protocol   string                 `json:"protocol"`
	ServerTime time.Time              `json:"server_time"`
	DeviceTime time.Time              `json:"device_time"`
	FixTime    time.Time              `json:"fix_time"`
	Valid      bool                   `json:"valid"`
	Latitude   float64                `json:"latitude"`
	Longitude  float64                `json:"longitude"`
	Altitude   float64                `json:"altitude"`
	Speed      float64                `json:"speed"`
	Course     float64                `json:"course"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}
