package timeline

import (
	"sort"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
)

// openSegment tracks an in-progress run of occupied days for one room.
type openSegment struct {
	start calendar.Day
	last  calendar.Day
}

// MergeOccupancy collapses day-level occupancy records into booking segments:
// one Booking per maximal run of consecutive occupied days per room, with
// inclusive start and exclusive end (end = last occupied day + 1).
//
// The input is sorted defensively; callers may not guarantee day order.
// Merged segments carry no backend booking ID (ID is zero) and are reported
// as confirmada, since occupancy data only covers active reservations.
// A single scan over the days, with per-room open-segment state, keeps this
// linear in days × rooms-occupied-per-day.
func MergeOccupancy(occupancy []DayOccupancy) []Booking {
	if len(occupancy) == 0 {
		return nil
	}

	days := make([]DayOccupancy, len(occupancy))
	copy(days, occupancy)
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})

	open := make(map[int64]openSegment)
	var bookings []Booking

	closeSegment := func(roomID int64, seg openSegment) {
		bookings = append(bookings, Booking{
			RoomID: roomID,
			Start:  seg.start,
			End:    seg.last.AddDays(1),
			Status: StatusConfirmada,
		})
	}

	for _, day := range days {
		for _, roomID := range day.OccupiedRoomIDs {
			seg, ok := open[roomID]
			if !ok {
				open[roomID] = openSegment{start: day.Date, last: day.Date}
				continue
			}

			switch seg.last.DaysUntil(day.Date) {
			case 0:
				// Duplicate record for the same day; nothing to do.
			case 1:
				seg.last = day.Date
				open[roomID] = seg
			default:
				// Gap: close the old run, start a new one today.
				closeSegment(roomID, seg)
				open[roomID] = openSegment{start: day.Date, last: day.Date}
			}
		}
	}

	for roomID, seg := range open {
		closeSegment(roomID, seg)
	}

	// Map iteration order is random; sort for a deterministic result.
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].Start.Before(bookings[j].Start)
		}
		return bookings[i].RoomID < bookings[j].RoomID
	})

	return bookings
}
