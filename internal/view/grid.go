// Package view builds the server-driven representations of the timeline: the
// rooms × days grid, the ephemeral drag selection and the reservation detail
// workflow. Everything here reads booking snapshots from the controller and
// never mutates them; writes go through the backend followed by a re-fetch.
package view

import (
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

// Cell is one room-day intersection in the grid.
type Cell struct {
	Day        calendar.Day `json:"day"`
	Occupied   bool         `json:"occupied"`
	Past       bool         `json:"past"`
	Selectable bool         `json:"selectable"`
}

// Segment is a booking drawn across its visible columns. Start/EndCol are
// column indexes into Grid.Days; EndCol is exclusive, mirroring the booking's
// half-open range. Cancelled segments are drawn de-emphasized and never mark
// cells occupied.
type Segment struct {
	Booking   timeline.Booking `json:"booking"`
	StartCol  int              `json:"start_col"`
	EndCol    int              `json:"end_col"`
	Cancelled bool             `json:"cancelled"`
}

// Row is one room's line in the grid.
type Row struct {
	Room     timeline.Room `json:"room"`
	Cells    []Cell        `json:"cells"`
	Segments []Segment     `json:"segments"`
}

// Grid is the rooms × days occupancy view for one window.
type Grid struct {
	Days []calendar.Day `json:"days"`
	Rows []Row          `json:"rows"`
}

// BuildGrid renders rooms against the window [start, start+length). today
// marks which days are in the past and therefore not selectable.
func BuildGrid(rooms []timeline.Room, bookings []timeline.Booking, start calendar.Day, length int, today calendar.Day) Grid {
	if length < 1 {
		return Grid{}
	}
	end := start.AddDays(length)
	days := calendar.EnumerateDays(start, end.AddDays(-1))

	grid := Grid{
		Days: days,
		Rows: make([]Row, 0, len(rooms)),
	}

	for _, room := range rooms {
		row := Row{Room: room, Cells: make([]Cell, len(days))}

		for _, b := range bookings {
			if b.RoomID != room.ID || !b.Overlaps(start, end) {
				continue
			}
			segStart := b.Start
			if segStart.Before(start) {
				segStart = start
			}
			segEnd := b.End
			if segEnd.After(end) {
				segEnd = end
			}
			row.Segments = append(row.Segments, Segment{
				Booking:   b,
				StartCol:  start.DaysUntil(segStart),
				EndCol:    start.DaysUntil(segEnd),
				Cancelled: b.Status == timeline.StatusCancelada,
			})
		}

		for i, d := range days {
			occupied := timeline.IsOccupied(room.ID, d, d.AddDays(1), bookings)
			past := d.Before(today)
			row.Cells[i] = Cell{
				Day:        d,
				Occupied:   occupied,
				Past:       past,
				Selectable: !occupied && !past,
			}
		}

		grid.Rows = append(grid.Rows, row)
	}

	return grid
}
