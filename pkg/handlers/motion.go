// Package handlers holds the state evaluators run when a device leaves
// the online state.
package handlers

import (
	"github.com/TalissonJunior/traccar/pkg/models"
)

// MotionEventHandler resolves a pending motion change once a device goes
// quiet: with no further positions coming, the pending observation is
// final.
type MotionEventHandler struct{}

// NewMotionEventHandler creates the motion evaluator.
func NewMotionEventHandler() *MotionEventHandler {
	return &MotionEventHandler{}
}

// UpdateMotionState confirms the pending motion observation, flips the
// tracked state and returns the derived event keyed to its position.
func (*MotionEventHandler) UpdateMotionState(state *models.DeviceState) map[*models.Event]*models.Position {
	if state == nil || state.MotionState == nil || state.MotionPosition == nil {
		return nil
	}

	newMotion := !*state.MotionState
	position := state.MotionPosition

	eventType := models.TypeDeviceStopped
	if newMotion {
		eventType = models.TypeDeviceMoving
	}

	event := models.NewEvent(eventType, position.DeviceID)
	event.PositionID = position.ID
	event.EventTime = position.FixTime

	state.MotionState = &newMotion
	state.MotionPosition = nil

	return map[*models.Event]*models.Position{event: position}
}
