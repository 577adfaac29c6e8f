package models

// DeviceState carries the evaluator inputs tracked per device. A nil
// state pointer means no observation has been recorded yet; the pending
// positions hold observations awaiting confirmation.
type DeviceState struct {
	MotionState       *bool     `json:"motion_state,omitempty"`
	MotionPosition    *Position `json:"motion_position,omitempty"`
	OverspeedState    *bool     `json:"overspeed_state,omitempty"`
	OverspeedPosition *Position `json:"overspeed_position,omitempty"`
}
