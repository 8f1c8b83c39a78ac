// Package timeline implements the booking timeline core: the room/booking
// data model, the day-to-segment merge, the occupancy conflict check, the
// reservation status lifecycle and the range-window fetch controller.
package timeline

import (
	"errors"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
)

var (
	// ErrInvalidRange signals a range with end <= start. Rejected locally,
	// never sent to the backend.
	ErrInvalidRange = errors.New("invalid range: end must be after start")

	// ErrConflict signals that a room is already occupied somewhere in the
	// requested range. Local detection and backend 409 rejections both map
	// to this error so the user sees a single message.
	ErrConflict = errors.New("room is already occupied in the selected dates")
)

// Room is a bookable unit. Immutable once loaded; the room set for a window
// comes from the backend and is read-only here.
type Room struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Label  string `json:"label,omitempty"`
}

// Booking is a reservation occupying one room over a half-open day range
// [Start, End). End is the day the guest vacates. End > Start always; the
// merge and decoding paths never construct a degenerate booking.
//
// Bookings are replace-on-fetch snapshots: the controller swaps the whole
// list on every fetch and nothing mutates a Booking in place.
type Booking struct {
	ID     int64        `json:"id"`
	RoomID int64        `json:"room_id"`
	Start  calendar.Day `json:"start"`
	End    calendar.Day `json:"end"`
	Guest  string       `json:"guest,omitempty"`
	Price  float64      `json:"price,omitempty"`
	Status Status       `json:"status"`
}

// Nights returns the number of nights covered, i.e. the length of [Start, End).
func (b Booking) Nights() int {
	return b.Start.DaysUntil(b.End)
}

// ContainsDay reports whether the booking occupies the given day.
func (b Booking) ContainsDay(d calendar.Day) bool {
	return !d.Before(b.Start) && d.Before(b.End)
}

// Overlaps reports whether the booking's range intersects [start, end) under
// half-open semantics: [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
func (b Booking) Overlaps(start, end calendar.Day) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// DayOccupancy is the raw backend shape for one calendar day: the set of room
// identifiers occupied that day. Input to MergeOccupancy only; never retained
// after merging.
type DayOccupancy struct {
	Date            calendar.Day `json:"date"`
	OccupiedRoomIDs []int64      `json:"occupied_room_ids"`
}
