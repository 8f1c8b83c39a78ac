package view

import (
	"errors"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

var (
	// ErrNoSelection signals a release or read without an active drag.
	ErrNoSelection = errors.New("no active selection")

	// ErrNotSelectable signals a drag starting on an occupied or past cell.
	ErrNotSelectable = errors.New("cell is not selectable")

	// ErrWrongRow signals a drag extended across room rows.
	ErrWrongRow = errors.New("selection cannot span rooms")
)

// ReservationDraft seeds the new-reservation form: the room and half-open
// date range validated against the grid. Dates are presented read-only in the
// form since the grid already vetted them.
type ReservationDraft struct {
	RoomID int64        `json:"room_id"`
	Start  calendar.Day `json:"start"`
	End    calendar.Day `json:"end"`
}

// Selection is the ephemeral drag state: it exists between pointer-down and
// either form submission or popup cancel, and is discarded unconditionally
// afterwards. It is owned by the timeline view alone and never persisted.
type Selection struct {
	roomID int64
	anchor calendar.Day
	first  calendar.Day
	last   calendar.Day
	active bool
	today  calendar.Day
}

// NewSelection creates an idle selection. today gates past days.
func NewSelection(today calendar.Day) *Selection {
	return &Selection{today: today}
}

// Active reports whether a drag is in progress.
func (s *Selection) Active() bool {
	return s.active
}

// Begin starts a drag on one cell. The cell must be free and not in the past.
func (s *Selection) Begin(roomID int64, d calendar.Day, bookings []timeline.Booking) error {
	if d.Before(s.today) {
		return ErrNotSelectable
	}
	if timeline.IsOccupied(roomID, d, d.AddDays(1), bookings) {
		return ErrNotSelectable
	}
	s.roomID = roomID
	s.anchor = d
	s.first = d
	s.last = d
	s.active = true
	return nil
}

// Extend grows the drag to the given cell. Dragging backwards past the anchor
// flips the range; the anchor stays fixed. Past cells are rejected here too,
// or a backwards drag could pull the range before today.
func (s *Selection) Extend(roomID int64, d calendar.Day) error {
	if !s.active {
		return ErrNoSelection
	}
	if roomID != s.roomID {
		return ErrWrongRow
	}
	if d.Before(s.today) {
		return ErrNotSelectable
	}
	if d.Before(s.anchor) {
		s.first = d
		s.last = s.anchor
	} else {
		s.first = s.anchor
		s.last = d
	}
	return nil
}

// Range returns the current half-open range of the drag: first selected day
// through last selected day + 1.
func (s *Selection) Range() (roomID int64, start, end calendar.Day, err error) {
	if !s.active {
		return 0, calendar.Day{}, calendar.Day{}, ErrNoSelection
	}
	return s.roomID, s.first, s.last.AddDays(1), nil
}

// Release ends the drag and validates the selected range against the current
// bookings. On conflict the selection is rejected with timeline.ErrConflict
// and no draft is produced. Either way the drag state is cleared.
func (s *Selection) Release(bookings []timeline.Booking) (ReservationDraft, error) {
	roomID, start, end, err := s.Range()
	if err != nil {
		return ReservationDraft{}, err
	}
	s.Clear()

	if timeline.IsOccupied(roomID, start, end, bookings) {
		metrics.IncConflict()
		return ReservationDraft{}, timeline.ErrConflict
	}

	return ReservationDraft{RoomID: roomID, Start: start, End: end}, nil
}

// Clear discards the drag unconditionally. Called on popup close whether the
// reservation was submitted or cancelled.
func (s *Selection) Clear() {
	*s = Selection{today: s.today}
}
