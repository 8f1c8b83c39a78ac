package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/view"
)

// CreateReservationRequest is the body for POST /api/reservations.
type CreateReservationRequest struct {
	RoomID int64  `json:"room_id"`
	Start  string `json:"start"` // YYYY-MM-DD, inclusive
	End    string `json:"end"`   // YYYY-MM-DD, exclusive
	Guest  string `json:"guest,omitempty"`
}

// DetailResponse is the payload for GET /api/reservations/{id}.
type DetailResponse struct {
	Booking       timeline.Booking `json:"booking"`
	Nights        int              `json:"nights"`
	PrimaryAction string           `json:"primary_action,omitempty"`
	CanCancel     bool             `json:"can_cancel"`
}

// handleCreateReservation validates a selection's range against the current
// window and creates the reservation on the backend.
// POST /api/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := calendar.ParseDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return
	}
	end, err := calendar.ParseDay(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, timeline.ErrInvalidRange.Error())
		return
	}

	// Local conflict check first: a range the grid already shows as occupied
	// never reaches the backend.
	if conflict := timeline.FindConflict(req.RoomID, start, end, s.controller.Bookings()); conflict != nil {
		metrics.IncConflict()
		if s.audit != nil {
			s.audit.ConflictRejected(r.Context(), req.RoomID, start, end)
		}
		writeError(w, http.StatusConflict, timeline.ErrConflict.Error())
		return
	}

	booking, err := s.client.CreateReservation(r.Context(), req.RoomID, start, end, req.Guest)
	if err != nil {
		// A race with another client produces the same message as the local
		// check would have.
		if errors.Is(err, timeline.ErrConflict) {
			metrics.IncConflict()
			if s.audit != nil {
				s.audit.ConflictRejected(r.Context(), req.RoomID, start, end)
			}
			writeError(w, http.StatusConflict, timeline.ErrConflict.Error())
			return
		}
		s.logger.Error().Err(err).Int64("room_id", req.RoomID).Msg("create reservation failed")
		writeError(w, http.StatusBadGateway, "reservation could not be created")
		return
	}

	if s.audit != nil {
		s.audit.ReservationCreated(r.Context(), req.RoomID, booking.ID, start, end, req.Guest)
	}

	// Reflect the write through a full re-fetch of the window.
	if err := s.controller.Refresh(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("refresh after create failed; timeline may lag")
	}

	writeJSON(w, http.StatusCreated, booking)
}

// handleReservation dispatches /api/reservations/{id} and
// /api/reservations/{id}/{op}.
func (s *HTTPServer) handleReservation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleReservationDetail(w, r, id)
	case len(parts) == 2:
		s.handleReservationTransition(w, r, id, timeline.Op(parts[1]))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleReservationDetail opens the detail popup for a booking.
// GET /api/reservations/{id}
func (s *HTTPServer) handleReservationDetail(w http.ResponseWriter, r *http.Request, id int64) {
	metrics.IncHTTP("reservation_detail")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	detail, ok := s.openDetail(id)
	if !ok {
		writeError(w, http.StatusNotFound, "reservation not found in the current window")
		return
	}

	writeJSON(w, http.StatusOK, buildDetailResponse(detail))
}

// handleReservationTransition runs one lifecycle operation on a booking.
// POST /api/reservations/{id}/{confirm|checkin|checkout|cancel}
func (s *HTTPServer) handleReservationTransition(w http.ResponseWriter, r *http.Request, id int64, op timeline.Op) {
	metrics.IncHTTP("reservation_transition")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	switch op {
	case timeline.OpConfirm, timeline.OpCheckIn, timeline.OpCheckOut, timeline.OpCancel:
	default:
		writeError(w, http.StatusNotFound, "unknown operation")
		return
	}

	detail, ok := s.openDetail(id)
	if !ok {
		writeError(w, http.StatusNotFound, "reservation not found in the current window")
		return
	}

	if err := detail.Apply(r.Context(), op); err != nil {
		switch {
		case errors.Is(err, timeline.ErrIllegalTransition):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, view.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, timeline.ErrConflict):
			writeError(w, http.StatusConflict, timeline.ErrConflict.Error())
		default:
			s.logger.Error().Err(err).Int64("booking_id", id).Str("op", string(op)).Msg("transition failed")
			writeError(w, http.StatusBadGateway, "transition could not be applied")
		}
		return
	}

	if s.audit != nil {
		s.audit.Transition(r.Context(), id, op)
	}

	writeJSON(w, http.StatusOK, buildDetailResponse(detail))
}

// handleAuditRecent lists recent back-office actions.
// GET /api/audit/recent?limit=N
func (s *HTTPServer) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_recent")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "audit log is disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// openDetail returns the popup model for a booking, creating or resyncing it
// from the controller's current snapshot. Keeping the instance per booking
// preserves the in-flight guard across requests.
func (s *HTTPServer) openDetail(id int64) (*view.Detail, bool) {
	booking, ok := s.controller.BookingByID(id)
	if !ok {
		s.mu.Lock()
		delete(s.details, id)
		s.mu.Unlock()
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	detail, exists := s.details[id]
	if !exists {
		detail = view.NewDetail(booking, s.client, s.controller)
		s.details[id] = detail
	} else {
		detail.Sync(booking)
	}
	return detail, true
}

func buildDetailResponse(detail *view.Detail) DetailResponse {
	resp := DetailResponse{
		Booking:   detail.Booking(),
		Nights:    detail.Nights(),
		CanCancel: detail.CanCancel(),
	}
	if op, ok := detail.PrimaryAction(); ok {
		resp.PrimaryAction = string(op)
	}
	return resp
}
