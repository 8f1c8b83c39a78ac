package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
)

// BookingSource fetches the bookings covering a half-open window [start, end),
// optionally scoped to a set of rooms. Implemented by the backend client.
type BookingSource interface {
	WindowBookings(ctx context.Context, start, end calendar.Day, roomIDs []int64) ([]Booking, error)
}

// Controller owns the visible date window and the bookings derived from it.
// It is the single owner of both: views read snapshots and never mutate.
//
// Every change to the window or room filter issues exactly one fetch. Fetches
// carry a monotonically increasing sequence number; a response is applied
// only if no newer request has been issued since (last-request-wins), so a
// slow stale response can never overwrite fresher data. On a failed fetch the
// previous bookings are retained.
type Controller struct {
	source BookingSource
	logger *zerolog.Logger

	mu           sync.Mutex
	windowStart  calendar.Day
	windowLength int
	roomFilter   []int64
	bookings     []Booking
	lastErr      error
	seq          uint64
}

// NewController creates a controller with an initial window. length is
// clamped to at least one day.
func NewController(source BookingSource, start calendar.Day, length int, logger *zerolog.Logger) *Controller {
	if length < 1 {
		length = 1
	}
	return &Controller{
		source:       source,
		logger:       logger,
		windowStart:  start,
		windowLength: length,
	}
}

// Window returns the current window start and length in days.
func (c *Controller) Window() (calendar.Day, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowStart, c.windowLength
}

// WindowEnd returns the exclusive end of the current window. Always derived
// from start and length so the two cannot fall out of sync.
func (c *Controller) WindowEnd() calendar.Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowStart.AddDays(c.windowLength)
}

// RoomFilter returns a copy of the current room filter; nil means all rooms.
func (c *Controller) RoomFilter() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomFilter == nil {
		return nil
	}
	out := make([]int64, len(c.roomFilter))
	copy(out, c.roomFilter)
	return out
}

// Bookings returns a snapshot of the current booking list.
func (c *Controller) Bookings() []Booking {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Booking, len(c.bookings))
	copy(out, c.bookings)
	return out
}

// BookingByID finds a booking in the current window by its backend ID.
// Merged occupancy segments have no ID and are never returned.
func (c *Controller) BookingByID(id int64) (Booking, bool) {
	if id == 0 {
		return Booking{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}

// Err returns the error of the most recent fetch, or nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetWindow moves the visible window and fetches it. A no-op when neither
// start nor length actually changed, so render-triggered re-notifications
// from the view cannot cause fetch storms.
func (c *Controller) SetWindow(ctx context.Context, start calendar.Day, length int) error {
	if length < 1 {
		return fmt.Errorf("%w: window length %d", ErrInvalidRange, length)
	}

	c.mu.Lock()
	if start.Equal(c.windowStart) && length == c.windowLength {
		c.mu.Unlock()
		return nil
	}
	c.windowStart = start
	c.windowLength = length
	c.mu.Unlock()

	return c.fetch(ctx)
}

// SetRoomFilter scopes fetches to the given rooms (nil or empty clears the
// filter) and refreshes. A no-op when the filter is unchanged.
func (c *Controller) SetRoomFilter(ctx context.Context, roomIDs []int64) error {
	c.mu.Lock()
	if equalIDs(c.roomFilter, roomIDs) {
		c.mu.Unlock()
		return nil
	}
	if len(roomIDs) == 0 {
		c.roomFilter = nil
	} else {
		c.roomFilter = make([]int64, len(roomIDs))
		copy(c.roomFilter, roomIDs)
	}
	c.mu.Unlock()

	return c.fetch(ctx)
}

// SetView applies a window and room filter change together with at most one
// fetch. Used by the HTTP layer, where both arrive in the same request.
func (c *Controller) SetView(ctx context.Context, start calendar.Day, length int, roomIDs []int64) error {
	if length < 1 {
		return fmt.Errorf("%w: window length %d", ErrInvalidRange, length)
	}

	c.mu.Lock()
	changed := !start.Equal(c.windowStart) || length != c.windowLength || !equalIDs(c.roomFilter, roomIDs)
	if !changed {
		c.mu.Unlock()
		return nil
	}
	c.windowStart = start
	c.windowLength = length
	if len(roomIDs) == 0 {
		c.roomFilter = nil
	} else {
		c.roomFilter = make([]int64, len(roomIDs))
		copy(c.roomFilter, roomIDs)
	}
	c.mu.Unlock()

	return c.fetch(ctx)
}

// Refresh re-fetches the current window unconditionally. Called after every
// successful write so the timeline reflects server truth.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetch(ctx)
}

func (c *Controller) fetch(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	start := c.windowStart
	end := c.windowStart.AddDays(c.windowLength)
	var rooms []int64
	if c.roomFilter != nil {
		rooms = make([]int64, len(c.roomFilter))
		copy(rooms, c.roomFilter)
	}
	c.mu.Unlock()

	bookings, err := c.source.WindowBookings(ctx, start, end, rooms)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		// A newer request was issued while this one was in flight. Drop the
		// result silently, whatever it was.
		metrics.IncStaleResponse()
		c.logger.Debug().
			Uint64("seq", seq).
			Uint64("latest", c.seq).
			Msg("dropping superseded window fetch")
		return nil
	}

	if err != nil {
		// Keep the previous bookings; a failed refresh must not blank the
		// timeline.
		c.lastErr = err
		metrics.IncWindowFetch("error")
		c.logger.Error().Err(err).
			Str("start", start.String()).
			Str("end", end.String()).
			Msg("window fetch failed")
		return err
	}

	c.bookings = bookings
	c.lastErr = nil
	metrics.IncWindowFetch("ok")
	c.logger.Debug().
		Uint64("seq", seq).
		Str("start", start.String()).
		Str("end", end.String()).
		Int("bookings", len(bookings)).
		Msg("window fetch applied")
	return nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
