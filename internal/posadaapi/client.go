// Package posadaapi is the HTTP client for the hotel backend: room and
// occupancy reads plus the reservation write operations. The backend owns all
// persistent state; this client never caches anything a write could stale out
// — only the room list, which is stable, goes through the optional Redis
// cache.
package posadaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

// Client calls the posada backend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter

	// preMerged selects GET /api/bookings (backend returns ready segments)
	// over GET /api/occupancy + local merge.
	preMerged bool
}

// New constructs a client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures Redis caching for the room list.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outgoing requests to r per second with the given
// burst.
func (c *Client) UseRateLimit(r float64, burst int) {
	if r <= 0 || burst <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(r), burst)
}

// UsePreMergedBookings switches window reads to the backend's booking-detail
// endpoint, skipping the local day-to-segment merge.
func (c *Client) UsePreMergedBookings(enabled bool) {
	c.preMerged = enabled
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// Rooms returns the bookable rooms.
func (c *Client) Rooms(ctx context.Context) ([]timeline.Room, error) {
	var wrap struct {
		Rooms []timeline.Room `json:"rooms"`
	}

	const cacheKey = "posada:rooms"
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Rooms, nil
	}

	if err := c.doGet(ctx, c.baseURL+"/api/rooms", &wrap); err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Rooms, nil
}

// Occupancy returns day-level occupancy for [start, end), optionally scoped
// to roomIDs.
func (c *Client) Occupancy(ctx context.Context, start, end calendar.Day, roomIDs []int64) ([]timeline.DayOccupancy, error) {
	endpoint := fmt.Sprintf("%s/api/occupancy?%s", c.baseURL, windowQuery(start, end, roomIDs))

	var wrap struct {
		Days []timeline.DayOccupancy `json:"days"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, fmt.Errorf("fetch occupancy: %w", err)
	}
	return wrap.Days, nil
}

// Bookings returns pre-merged booking segments for [start, end), optionally
// scoped to roomIDs.
func (c *Client) Bookings(ctx context.Context, start, end calendar.Day, roomIDs []int64) ([]timeline.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/bookings?%s", c.baseURL, windowQuery(start, end, roomIDs))

	var wrap struct {
		Bookings []timeline.Booking `json:"bookings"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}
	return wrap.Bookings, nil
}

// WindowBookings implements timeline.BookingSource. Depending on what the
// backend offers it either takes pre-merged segments as-is or merges raw
// occupancy locally.
func (c *Client) WindowBookings(ctx context.Context, start, end calendar.Day, roomIDs []int64) ([]timeline.Booking, error) {
	if c.preMerged {
		return c.Bookings(ctx, start, end, roomIDs)
	}
	occupancy, err := c.Occupancy(ctx, start, end, roomIDs)
	if err != nil {
		return nil, err
	}
	return timeline.MergeOccupancy(occupancy), nil
}

// CreateReservationRequest is the body for POST /api/reservations.
type CreateReservationRequest struct {
	RoomID int64  `json:"room_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Guest  string `json:"guest,omitempty"`
}

// CreateReservation creates a new reservation. The candidate range must have
// been validated and conflict-checked already; a backend 409 (race with
// another client) still maps to timeline.ErrConflict.
func (c *Client) CreateReservation(ctx context.Context, roomID int64, start, end calendar.Day, guest string) (timeline.Booking, error) {
	if !end.After(start) {
		return timeline.Booking{}, timeline.ErrInvalidRange
	}

	body := CreateReservationRequest{
		RoomID: roomID,
		Start:  start.String(),
		End:    end.String(),
		Guest:  guest,
	}

	var booking timeline.Booking
	if err := c.doPost(ctx, c.baseURL+"/api/reservations", body, &booking); err != nil {
		return timeline.Booking{}, fmt.Errorf("create reservation: %w", err)
	}
	return booking, nil
}

// Transition invokes one reservation write operation (confirm, checkin,
// checkout, cancel) and returns the updated booking. Any non-success
// response is a failed transition; partial success is never assumed.
func (c *Client) Transition(ctx context.Context, id int64, op timeline.Op) (timeline.Booking, error) {
	switch op {
	case timeline.OpConfirm, timeline.OpCheckIn, timeline.OpCheckOut, timeline.OpCancel:
	default:
		return timeline.Booking{}, timeline.ErrIllegalTransition
	}

	endpoint := fmt.Sprintf("%s/api/reservations/%d/%s", c.baseURL, id, op)
	var booking timeline.Booking
	if err := c.doPost(ctx, endpoint, nil, &booking); err != nil {
		return timeline.Booking{}, fmt.Errorf("%s reservation %d: %w", op, id, err)
	}
	return booking, nil
}

func windowQuery(start, end calendar.Day, roomIDs []int64) string {
	q := url.Values{}
	q.Set("start", start.String())
	q.Set("end", end.String())
	if len(roomIDs) > 0 {
		ids := make([]string, len(roomIDs))
		for i, id := range roomIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("rooms", strings.Join(ids, ","))
	}
	return q.Encode()
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusConflict {
			return timeline.ErrConflict
		}
		var e apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&e); decodeErr == nil && e.Error != "" {
			return fmt.Errorf("http %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
