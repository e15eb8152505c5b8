package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpserver "pms_sync/internal/adapters/http_server"
	redisad "pms_sync/internal/adapters/redis"
	"pms_sync/internal/app"
	"pms_sync/internal/domain"
)

type fakeReader struct {
	booking   domain.BookingView
	guest     domain.GuestView
	page      domain.BookingsPage
	lastQuery domain.BookingsQuery
	fail      error
}

func (f *fakeReader) GetBooking(ctx context.Context, id int64) (domain.BookingView, error) {
	if f.fail != nil {
		return domain.BookingView{}, f.fail
	}
	if id != f.booking.ID {
		return domain.BookingView{}, domain.ErrNotFound
	}
	return f.booking, nil
}

func (f *fakeReader) ListBookings(ctx context.Context, q domain.BookingsQuery) (domain.BookingsPage, error) {
	f.lastQuery = q
	return f.page, f.fail
}

func (f *fakeReader) GetGuest(ctx context.Context, id int64) (domain.GuestView, error) {
	if id != f.guest.ID {
		return domain.GuestView{}, domain.ErrNotFound
	}
	return f.guest, nil
}

func newTestServer(t *testing.T, repo *fakeReader) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	srv := httpserver.New(zerolog.Nop())
	srv.MountHandlers(&httpserver.Handlers{Q: app.NewQueryService(repo, cache, time.Minute)})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func seededReader() *fakeReader {
	notes := "VIP guest"
	email := "john.doe@email.com"
	next := int64(42)
	b := domain.BookingView{
		ID:            42,
		ExternalID:    "EXT-BKG-1001",
		ArrivalDate:   "2024-09-01",
		DepartureDate: "2024-09-03",
		Status:        domain.StatusConfirmed,
		Notes:         &notes,
		Room:          &domain.RoomView{ID: 3, ExternalID: "201", Number: "201", Floor: 2},
		RoomType:      &domain.RoomTypeView{ID: 7, ExternalID: "303", Name: "Deluxe Suite"},
		Guests:        []domain.GuestView{{ID: 5, ExternalID: "401", FirstName: "John", LastName: "Doe", Email: &email}},
	}
	return &fakeReader{
		booking: b,
		guest:   b.Guests[0],
		page:    domain.BookingsPage{Items: []domain.BookingView{b}, NextAfter: &next},
	}
}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestGetBooking_OKThenNotModified(t *testing.T) {
	ts := newTestServer(t, seededReader())

	res := get(t, ts.URL+"/v1/bookings/42", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var body domain.BookingView
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ExternalID != "EXT-BKG-1001" || body.Room == nil || body.Room.Number != "201" || len(body.Guests) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	res = get(t, ts.URL+"/v1/bookings/42", map[string]string{"If-None-Match": etag})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res.StatusCode)
	}
}

func TestGetBooking_Errors(t *testing.T) {
	ts := newTestServer(t, seededReader())

	for path, want := range map[string]int{
		"/v1/bookings/abc": http.StatusBadRequest,
		"/v1/bookings/0":   http.StatusBadRequest,
		"/v1/bookings/999": http.StatusNotFound,
		"/v1/guests/999":   http.StatusNotFound,
	} {
		res := get(t, ts.URL+path, nil)
		if res.StatusCode != want {
			t.Fatalf("%s: status %d want %d", path, res.StatusCode, want)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content-type %q", path, ct)
		}
	}
}

func TestGetBooking_StoreFailureIs500(t *testing.T) {
	repo := seededReader()
	repo.fail = errors.New("connection refused")
	ts := newTestServer(t, repo)

	res := get(t, ts.URL+"/v1/bookings/42", nil)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.StatusCode)
	}
}

func TestGetGuest_OK(t *testing.T) {
	ts := newTestServer(t, seededReader())

	res := get(t, ts.URL+"/v1/guests/5", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var g domain.GuestView
	if err := json.NewDecoder(res.Body).Decode(&g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.FirstName != "John" || g.Email == nil || *g.Email != "john.doe@email.com" {
		t.Fatalf("unexpected guest: %+v", g)
	}
}

func TestListBookings_QueryParams(t *testing.T) {
	repo := seededReader()
	ts := newTestServer(t, repo)

	res := get(t, ts.URL+"/v1/bookings?status=Confirmed&limit=10&after=41", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var body struct {
		Items     []domain.BookingView `json:"items"`
		NextAfter *int64               `json:"next_after"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.NextAfter == nil || *body.NextAfter != 42 {
		t.Fatalf("unexpected page: %+v", body)
	}
	q := repo.lastQuery
	if q.Status == nil || *q.Status != domain.StatusConfirmed || q.Limit != 10 || q.After != 41 {
		t.Fatalf("unexpected query: %+v", q)
	}

	for _, bad := range []string{"status=no-show", "limit=0", "limit=101", "after=-1", "after=x"} {
		res := get(t, ts.URL+"/v1/bookings?"+bad, nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d want 400", bad, res.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, seededReader())
	if res := get(t, ts.URL+"/healthz", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t, seededReader())

	res := get(t, ts.URL+"/v1/rooms/1", nil)
	if res.StatusCode != http.StatusNotFound || res.Header.Get("Content-Type") != "application/problem+json" {
		t.Fatalf("unknown route: %d %q", res.StatusCode, res.Header.Get("Content-Type"))
	}

	res, err := http.Post(ts.URL+"/v1/bookings", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST: status %d", res.StatusCode)
	}
}
