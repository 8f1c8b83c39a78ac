package timeline

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
)

func day(year int, month time.Month, d int) calendar.Day {
	return calendar.NewDay(year, month, d)
}

func mustDay(t *testing.T, s string) calendar.Day {
	t.Helper()
	d, err := calendar.ParseDay(s)
	if err != nil {
		t.Fatalf("parse day %q: %v", s, err)
	}
	return d
}

func occ(d calendar.Day, rooms ...int64) DayOccupancy {
	return DayOccupancy{Date: d, OccupiedRoomIDs: rooms}
}

func TestMergeOccupancy_ConsecutiveRun(t *testing.T) {
	input := []DayOccupancy{
		occ(day(2024, 6, 1), 5),
		occ(day(2024, 6, 2), 5),
		occ(day(2024, 6, 3), 5),
	}

	bookings := MergeOccupancy(input)

	require.Len(t, bookings, 1)
	assert.Equal(t, int64(5), bookings[0].RoomID)
	assert.Equal(t, "2024-06-01", bookings[0].Start.String())
	assert.Equal(t, "2024-06-04", bookings[0].End.String())
}

func TestMergeOccupancy_GapSplitsSegments(t *testing.T) {
	input := []DayOccupancy{
		occ(day(2024, 6, 1), 5),
		occ(day(2024, 6, 3), 5),
	}

	bookings := MergeOccupancy(input)

	require.Len(t, bookings, 2)
	assert.Equal(t, "2024-06-01", bookings[0].Start.String())
	assert.Equal(t, "2024-06-02", bookings[0].End.String())
	assert.Equal(t, "2024-06-03", bookings[1].Start.String())
	assert.Equal(t, "2024-06-04", bookings[1].End.String())
}

func TestMergeOccupancy_SingleDay(t *testing.T) {
	bookings := MergeOccupancy([]DayOccupancy{occ(day(2024, 6, 1), 7)})

	require.Len(t, bookings, 1)
	assert.Equal(t, 1, bookings[0].Nights())
	assert.Equal(t, "2024-06-02", bookings[0].End.String())
}

func TestMergeOccupancy_MultipleRooms(t *testing.T) {
	input := []DayOccupancy{
		occ(day(2024, 6, 1), 1, 2),
		occ(day(2024, 6, 2), 1),
		occ(day(2024, 6, 3), 1, 2),
	}

	bookings := MergeOccupancy(input)

	require.Len(t, bookings, 3)
	// Sorted by start, then room.
	assert.Equal(t, int64(1), bookings[0].RoomID)
	assert.Equal(t, 3, bookings[0].Nights())
	assert.Equal(t, int64(2), bookings[1].RoomID)
	assert.Equal(t, 1, bookings[1].Nights())
	assert.Equal(t, int64(2), bookings[2].RoomID)
	assert.Equal(t, "2024-06-03", bookings[2].Start.String())
}

func TestMergeOccupancy_Empty(t *testing.T) {
	assert.Nil(t, MergeOccupancy(nil))
	assert.Nil(t, MergeOccupancy([]DayOccupancy{occ(day(2024, 6, 1))}))
}

func TestMergeOccupancy_UnsortedInput(t *testing.T) {
	input := []DayOccupancy{
		occ(day(2024, 6, 3), 5),
		occ(day(2024, 6, 1), 5),
		occ(day(2024, 6, 2), 5),
	}

	bookings := MergeOccupancy(input)

	require.Len(t, bookings, 1)
	assert.Equal(t, "2024-06-01", bookings[0].Start.String())
	assert.Equal(t, "2024-06-04", bookings[0].End.String())
}

func TestMergeOccupancy_DuplicateDayRecords(t *testing.T) {
	input := []DayOccupancy{
		occ(day(2024, 6, 1), 5),
		occ(day(2024, 6, 1), 5),
		occ(day(2024, 6, 2), 5),
	}

	bookings := MergeOccupancy(input)

	require.Len(t, bookings, 1)
	assert.Equal(t, 2, bookings[0].Nights())
}

// Shuffling the input must never change the merged output, and the output
// must always satisfy the segment invariants: end > start, and segments of
// the same room never overlap or touch.
func TestMergeOccupancy_OrderInvariantAndWellFormed(t *testing.T) {
	base := day(2024, 6, 1)
	var input []DayOccupancy
	for i := 0; i < 30; i++ {
		var rooms []int64
		for roomID := int64(1); roomID <= 4; roomID++ {
			// Deterministic pseudo-pattern with gaps per room.
			if (i+int(roomID)*3)%gapPeriod(roomID) != 0 {
				rooms = append(rooms, roomID)
			}
		}
		if len(rooms) > 0 {
			input = append(input, occ(base.AddDays(i), rooms...))
		}
	}

	want := MergeOccupancy(input)
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 10; trial++ {
		shuffled := make([]DayOccupancy, len(input))
		copy(shuffled, input)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := MergeOccupancy(shuffled)
		require.Equal(t, want, got, "merge output changed under input reordering")
	}

	perRoom := make(map[int64][]Booking)
	for _, b := range want {
		require.True(t, b.End.After(b.Start), "segment %v has end <= start", b)
		perRoom[b.RoomID] = append(perRoom[b.RoomID], b)
	}
	for roomID, segs := range perRoom {
		for i := 1; i < len(segs); i++ {
			prev, cur := segs[i-1], segs[i]
			require.True(t, prev.End.Before(cur.Start),
				"room %d: segments %v and %v overlap or touch", roomID, prev, cur)
		}
	}
}

// gapPeriod gives each room a different occupancy rhythm so the generated
// pattern contains runs of several lengths with gaps in between.
func gapPeriod(roomID int64) int {
	return int(roomID) + 1
}
