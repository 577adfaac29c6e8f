package models

// Group is a node in the device grouping forest. GroupID points at the
// parent group; zero means the group is a root.
type Group struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	GroupID int64  `json:"group_id,omitempty"`
}
