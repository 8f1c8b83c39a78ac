package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

type fakeWriter struct {
	mu      sync.Mutex
	calls   []timeline.Op
	err     error
	result  timeline.Booking
	blockCh chan struct{} // when set, Transition blocks until closed
}

func (f *fakeWriter) Transition(ctx context.Context, id int64, op timeline.Op) (timeline.Booking, error) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	block := f.blockCh
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return timeline.Booking{}, f.err
	}
	return f.result, nil
}

func (f *fakeWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRefresher struct {
	mu    sync.Mutex
	count int
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *fakeRefresher) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func pendingBooking() timeline.Booking {
	return timeline.Booking{
		ID:     7,
		RoomID: 5,
		Start:  day(2024, time.June, 10),
		End:    day(2024, time.June, 13),
		Guest:  "Ana",
		Status: timeline.StatusPendiente,
	}
}

func TestDetail_PrimaryActionFollowsFlow(t *testing.T) {
	tests := []struct {
		status timeline.Status
		wantOp timeline.Op
		wantOK bool
	}{
		{timeline.StatusPendiente, timeline.OpConfirm, true},
		{timeline.StatusConfirmada, timeline.OpCheckIn, true},
		{timeline.StatusCheckin, timeline.OpCheckOut, true},
		{timeline.StatusCheckout, "", false},
		{timeline.StatusCancelada, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := pendingBooking()
			b.Status = tt.status
			d := NewDetail(b, &fakeWriter{}, &fakeRefresher{})

			op, ok := d.PrimaryAction()
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && op != tt.wantOp {
				t.Errorf("expected op %s, got %s", tt.wantOp, op)
			}
		})
	}
}

func TestDetail_Nights(t *testing.T) {
	d := NewDetail(pendingBooking(), &fakeWriter{}, &fakeRefresher{})
	if got := d.Nights(); got != 3 {
		t.Errorf("expected 3 nights, got %d", got)
	}
}

func TestDetail_ApplySuccessRefreshes(t *testing.T) {
	updated := pendingBooking()
	updated.Status = timeline.StatusConfirmada
	writer := &fakeWriter{result: updated}
	refresher := &fakeRefresher{}
	d := NewDetail(pendingBooking(), writer, refresher)

	if err := d.Apply(context.Background(), timeline.OpConfirm); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if writer.callCount() != 1 {
		t.Fatalf("expected 1 write, got %d", writer.callCount())
	}
	if refresher.refreshes() != 1 {
		t.Fatalf("expected re-fetch after success, got %d", refresher.refreshes())
	}
	if d.Booking().Status != timeline.StatusConfirmada {
		t.Errorf("displayed booking not updated: %s", d.Booking().Status)
	}
}

func TestDetail_IllegalTransitionRejectedWithoutWrite(t *testing.T) {
	b := pendingBooking()
	b.Status = timeline.StatusCheckout
	writer := &fakeWriter{}
	refresher := &fakeRefresher{}
	d := NewDetail(b, writer, refresher)

	err := d.Apply(context.Background(), timeline.OpConfirm)
	if !errors.Is(err, timeline.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if writer.callCount() != 0 {
		t.Fatal("illegal transition must not reach the backend")
	}
	if refresher.refreshes() != 0 {
		t.Fatal("no refresh on local rejection")
	}
}

func TestDetail_FailedWriteKeepsBookingNoRefresh(t *testing.T) {
	writer := &fakeWriter{err: errors.New("backend down")}
	refresher := &fakeRefresher{}
	d := NewDetail(pendingBooking(), writer, refresher)

	if err := d.Apply(context.Background(), timeline.OpConfirm); err == nil {
		t.Fatal("expected error")
	}
	if d.Booking().Status != timeline.StatusPendiente {
		t.Error("failed write must not change the displayed booking")
	}
	if refresher.refreshes() != 0 {
		t.Error("failed write must not trigger a refresh")
	}
}

func TestDetail_DoubleSubmitBlocked(t *testing.T) {
	block := make(chan struct{})
	updated := pendingBooking()
	updated.Status = timeline.StatusConfirmada
	writer := &fakeWriter{result: updated, blockCh: block}
	d := NewDetail(pendingBooking(), writer, &fakeRefresher{})

	done := make(chan error, 1)
	go func() {
		done <- d.Apply(context.Background(), timeline.OpConfirm)
	}()

	// Wait for the first request to be in flight.
	deadline := time.After(2 * time.Second)
	for writer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first transition never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := d.Apply(context.Background(), timeline.OpConfirm); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for concurrent submit, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	if writer.callCount() != 1 {
		t.Fatalf("expected exactly 1 write, got %d", writer.callCount())
	}
}

func TestDetail_CancelAvailability(t *testing.T) {
	tests := []struct {
		status timeline.Status
		want   bool
	}{
		{timeline.StatusPendiente, true},
		{timeline.StatusConfirmada, true},
		{timeline.StatusCheckin, false},
		{timeline.StatusCheckout, false},
		{timeline.StatusCancelada, false},
	}

	for _, tt := range tests {
		b := pendingBooking()
		b.Status = tt.status
		d := NewDetail(b, &fakeWriter{}, &fakeRefresher{})
		if got := d.CanCancel(); got != tt.want {
			t.Errorf("CanCancel(%s): expected %v, got %v", tt.status, tt.want, got)
		}
	}
}
