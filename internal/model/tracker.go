package model

// MainGroupID is the id of the synthetic group every tracker falls back to.
const MainGroupID int64 = 0

// MainGroupTitle is the title of the synthetic main group.
const MainGroupTitle = "Main group"

// Tracker is a tracked vehicle or device as listed by the directory service.
type Tracker struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	GroupID        int64  `json:"group_id"`
	HasEngineHours bool   `json:"hasEngineHours"`
}

// TrackerGroup is a named collection of trackers.
type TrackerGroup struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// MainGroup returns the synthetic group with id 0.
func MainGroup() TrackerGroup {
	return TrackerGroup{ID: MainGroupID, Title: MainGroupTitle}
}
