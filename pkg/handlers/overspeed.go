package handlers

import (
	"github.com/TalissonJunior/traccar/pkg/models"
)

// OverspeedEventHandler confirms a pending overspeed observation once a
// device goes quiet. A zero speed limit disables detection.
type OverspeedEventHandler struct{}

// NewOverspeedEventHandler creates the overspeed evaluator.
func NewOverspeedEventHandler() *OverspeedEventHandler {
	return &OverspeedEventHandler{}
}

// UpdateOverspeedState confirms the pending overspeed observation, marks
// the state as alerted and returns the derived event keyed to its
// position.
func (*OverspeedEventHandler) UpdateOverspeedState(state *models.DeviceState, speedLimit float64) map[*models.Event]*models.Position {
	if state == nil || speedLimit == 0 {
		return nil
	}

	if state.OverspeedState == nil || *state.OverspeedState || state.OverspeedPosition == nil {
		return nil
	}

	position := state.OverspeedPosition

	event := models.NewEvent(models.TypeDeviceOverspeed, position.DeviceID)
	event.PositionID = position.ID
	event.EventTime = position.FixTime
	event.Attributes = map[string]interface{}{
		"speed":                    position.Speed,
		models.AttributeSpeedLimit: speedLimit,
	}

	alerted := true
	state.OverspeedState = &alerted
	state.OverspeedPosition = nil

	return map[*models.Event]*models.Position{event: position}
}
