package view

import (
	"context"
	"errors"
	"sync"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

// ErrBusy signals a transition attempted while a previous one is still in
// flight. Guards against a double-submit racing two transitions on the same
// booking.
var ErrBusy = errors.New("a transition is already in progress")

// TransitionWriter performs one reservation write on the backend. Implemented
// by posadaapi.Client.
type TransitionWriter interface {
	Transition(ctx context.Context, id int64, op timeline.Op) (timeline.Booking, error)
}

// Refresher re-fetches the current window. Implemented by the controller.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Detail is the reservation detail popup model: read-only booking facts plus
// the legal transition actions. It holds the booking for the life of the
// popup and never mutates the controller's list; after a successful write it
// asks the host to re-fetch and waits for server truth.
type Detail struct {
	writer  TransitionWriter
	refresh Refresher

	mu      sync.Mutex
	booking timeline.Booking
	busy    bool
}

// NewDetail opens a detail view over a booking.
func NewDetail(b timeline.Booking, writer TransitionWriter, refresh Refresher) *Detail {
	return &Detail{booking: b, writer: writer, refresh: refresh}
}

// Booking returns the booking as shown.
func (d *Detail) Booking() timeline.Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.booking
}

// Sync replaces the displayed booking with a fresher snapshot, unless a
// transition is in flight.
func (d *Detail) Sync(b timeline.Booking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.busy {
		d.booking = b
	}
}

// Nights returns the computed night count for display.
func (d *Detail) Nights() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.booking.Nights()
}

// PrimaryAction returns the single forward transition offered as the main
// button, if the booking's status admits one.
func (d *Detail) PrimaryAction() (timeline.Op, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, ok := timeline.NextInFlow(d.booking.Status)
	if !ok {
		return "", false
	}
	op, err := timeline.OpFor(d.booking.Status, next)
	if err != nil {
		return "", false
	}
	return op, true
}

// CanCancel reports whether the separate cancel action is offered.
func (d *Detail) CanCancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return timeline.CanCancel(d.booking.Status)
}

// Apply runs one transition. The precondition is checked locally first; an
// illegal transition never issues a network call. While a request is in
// flight further attempts fail with ErrBusy. On success the updated booking
// replaces the displayed one and the window is re-fetched.
func (d *Detail) Apply(ctx context.Context, op timeline.Op) error {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	if _, err := timeline.TargetOf(d.booking.Status, op); err != nil {
		d.mu.Unlock()
		return err
	}
	id := d.booking.ID
	d.busy = true
	d.mu.Unlock()

	updated, err := d.writer.Transition(ctx, id, op)

	d.mu.Lock()
	d.busy = false
	if err == nil {
		d.booking = updated
	}
	d.mu.Unlock()

	if err != nil {
		metrics.IncTransition(string(op), "error")
		return err
	}
	metrics.IncTransition(string(op), "ok")

	// Server truth over latency: reflect the write through a full re-fetch
	// rather than patching the booking list.
	return d.refresh.Refresh(ctx)
}
