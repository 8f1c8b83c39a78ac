package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/view"
)

// TimelineResponse is the payload for GET /api/timeline.
type TimelineResponse struct {
	Window struct {
		Start string `json:"start"`
		Days  int    `json:"days"`
	} `json:"window"`
	Grid       view.Grid `json:"grid"`
	FetchError string    `json:"fetch_error,omitempty"`
}

// handleRooms returns the bookable rooms.
// GET /api/rooms
func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms, err := s.client.Rooms(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// handleTimeline moves the visible window and returns the occupancy grid.
// GET /api/timeline?start=YYYY-MM-DD&days=N&rooms=1,2
func (s *HTTPServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("timeline")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, length, roomIDs, err := s.parseTimelineQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// SetView is a no-op when nothing changed, so repeated renders of the
	// same window never hit the backend again.
	fetchErr := s.controller.SetView(r.Context(), start, length, roomIDs)

	rooms, err := s.client.Rooms(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load rooms")
		return
	}
	if len(roomIDs) > 0 {
		rooms = filterRooms(rooms, roomIDs)
	}

	resp := TimelineResponse{
		Grid: view.BuildGrid(rooms, s.controller.Bookings(), start, length, calendar.Today()),
	}
	resp.Window.Start = start.String()
	resp.Window.Days = length
	if fetchErr != nil {
		// Previous data is retained and still rendered; the error rides
		// along for the UI to surface inline.
		resp.FetchError = "failed to refresh bookings; showing last known data"
	}

	writeJSON(w, http.StatusOK, resp)
}

// SelectionRequest is the body for POST /api/selection: one drag gesture on
// the grid, from the anchor cell to the cell the pointer was released on.
type SelectionRequest struct {
	RoomID int64  `json:"room_id"`
	Anchor string `json:"anchor"`       // YYYY-MM-DD, cell the drag started on
	To     string `json:"to,omitempty"` // YYYY-MM-DD, defaults to the anchor
}

// SelectionResponse carries the validated draft that seeds the
// new-reservation form.
type SelectionResponse struct {
	Draft  view.ReservationDraft `json:"draft"`
	Nights int                   `json:"nights"`
}

// handleSelection replays a drag against the current window's bookings and
// returns the reservation draft, or rejects the gesture the same way the
// grid would: past and occupied cells are not selectable, and a range
// crossing an occupied day is a conflict.
// POST /api/selection
func (s *HTTPServer) handleSelection(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("selection")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SelectionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	anchor, err := calendar.ParseDay(req.Anchor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid anchor; expected YYYY-MM-DD")
		return
	}
	to := anchor
	if req.To != "" {
		if to, err = calendar.ParseDay(req.To); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
			return
		}
	}

	bookings := s.controller.Bookings()
	sel := view.NewSelection(calendar.Today())
	if err := sel.Begin(req.RoomID, anchor, bookings); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !to.Equal(anchor) {
		if err := sel.Extend(req.RoomID, to); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	roomID, start, end, _ := sel.Range()
	draft, err := sel.Release(bookings)
	if err != nil {
		if errors.Is(err, timeline.ErrConflict) {
			if s.audit != nil {
				s.audit.ConflictRejected(r.Context(), roomID, start, end)
			}
			writeError(w, http.StatusConflict, timeline.ErrConflict.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SelectionResponse{
		Draft:  draft,
		Nights: draft.Start.DaysUntil(draft.End),
	})
}

func (s *HTTPServer) parseTimelineQuery(r *http.Request) (calendar.Day, int, []int64, error) {
	q := r.URL.Query()

	start := calendar.Today()
	if v := q.Get("start"); v != "" {
		parsed, err := calendar.ParseDay(v)
		if err != nil {
			return calendar.Day{}, 0, nil, fmt.Errorf("invalid start; expected YYYY-MM-DD")
		}
		start = parsed
	}

	length := s.cfg.DefaultWindowDays()
	if v := q.Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return calendar.Day{}, 0, nil, fmt.Errorf("invalid days; expected a positive integer")
		}
		length = parsed
	}
	if max := s.cfg.MaxWindowDays(); length > max {
		return calendar.Day{}, 0, nil, fmt.Errorf("window exceeds maximum of %d days", max)
	}

	var roomIDs []int64
	if v := q.Get("rooms"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return calendar.Day{}, 0, nil, fmt.Errorf("invalid rooms; expected comma-separated IDs")
			}
			roomIDs = append(roomIDs, id)
		}
	}

	return start, length, roomIDs, nil
}

func filterRooms(rooms []timeline.Room, ids []int64) []timeline.Room {
	keep := make(map[int64]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := rooms[:0]
	for _, room := range rooms {
		if keep[room.ID] {
			out = append(out, room)
		}
	}
	return out
}
