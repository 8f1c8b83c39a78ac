package timeline

import "github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"

// IsOccupied reports whether the room is already occupied anywhere in
// [start, end). An empty or inverted candidate range is never a conflict
// (the caller validates ranges separately). Cancelled bookings do not block
// re-booking and are skipped.
//
// The predicate is strictly half-open: a candidate starting on an existing
// booking's end day (check-out day = check-in day) is not a conflict.
func IsOccupied(roomID int64, start, end calendar.Day, bookings []Booking) bool {
	return FindConflict(roomID, start, end, bookings) != nil
}

// FindConflict returns the first non-cancelled booking for the room that
// overlaps [start, end), or nil if the range is free or empty.
func FindConflict(roomID int64, start, end calendar.Day, bookings []Booking) *Booking {
	if !end.After(start) {
		return nil
	}
	for i := range bookings {
		b := &bookings[i]
		if b.RoomID != roomID || b.Status == StatusCancelada {
			continue
		}
		if b.Overlaps(start, end) {
			return b
		}
	}
	return nil
}
