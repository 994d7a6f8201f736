package prompt

import (
	"frameforge/internal/ff"
)

// Row is one line of a project's prompt table.
type Row struct {
	Index     int    `json:"index"` // 1-based
	FrameID   string `json:"frameId"`
	Narrative string `json:"narrative"`
}

// Table renders the narrative prompt of each frame in the given order.
func Table(frames []ff.Frame) []Row {
	rows := make([]Row, len(frames))
	for i, f := range frames {
		rows[i] = Row{Index: i + 1, FrameID: f.ID, Narrative: Narrative(f)}
	}
	return rows
}
