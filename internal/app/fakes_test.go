package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"pms_sync/internal/domain"
)

// ---- fake PMS ----

type fakePMS struct {
	mu        sync.Mutex
	ids       []int64
	listErr   error
	bookings  map[int64]domain.BookingPayload
	rooms     map[int64]domain.RoomPayload
	roomTypes map[int64]domain.RoomTypePayload
	guests    map[int64]domain.GuestPayload
	calls     map[string]int
	lastSince *time.Time
}

func newFakePMS() *fakePMS {
	return &fakePMS{
		bookings:  map[int64]domain.BookingPayload{},
		rooms:     map[int64]domain.RoomPayload{},
		roomTypes: map[int64]domain.RoomTypePayload{},
		guests:    map[int64]domain.GuestPayload{},
		calls:     map[string]int{},
	}
}

func notFound(kind string, id int64) error {
	return &domain.APIError{Status: 404, URL: fmt.Sprintf("/%s/%d", kind, id), Body: "not found"}
}

func (f *fakePMS) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakePMS) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakePMS) detailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if k != "list" {
			n += v
		}
	}
	return n
}

func (f *fakePMS) ListBookingIDs(ctx context.Context, since *time.Time) ([]int64, error) {
	f.hit("list")
	f.lastSince = since
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]int64{}, f.ids...), nil
}

func (f *fakePMS) GetBookingDetail(ctx context.Context, id int64) (domain.BookingPayload, error) {
	f.hit("booking")
	b, ok := f.bookings[id]
	if !ok {
		return domain.BookingPayload{}, notFound("bookings", id)
	}
	return b, nil
}

func (f *fakePMS) GetRoomDetail(ctx context.Context, id int64) (domain.RoomPayload, error) {
	f.hit("room")
	r, ok := f.rooms[id]
	if !ok {
		return domain.RoomPayload{}, notFound("rooms", id)
	}
	return r, nil
}

func (f *fakePMS) GetRoomTypeDetail(ctx context.Context, id int64) (domain.RoomTypePayload, error) {
	f.hit("room-type")
	rt, ok := f.roomTypes[id]
	if !ok {
		return domain.RoomTypePayload{}, notFound("room-types", id)
	}
	return rt, nil
}

func (f *fakePMS) GetGuestDetail(ctx context.Context, id int64) (domain.GuestPayload, error) {
	f.hit("guest")
	g, ok := f.guests[id]
	if !ok {
		return domain.GuestPayload{}, notFound("guests", id)
	}
	return g, nil
}

func (f *fakePMS) GetGuestDetails(ctx context.Context, ids []int64) map[int64]domain.GuestPayload {
	out := make(map[int64]domain.GuestPayload, len(ids))
	for _, id := range ids {
		if g, err := f.GetGuestDetail(ctx, id); err == nil {
			out[id] = g
		}
	}
	return out
}

// seedScenario loads the canonical booking 1001 fixture: room 201, room type 303, guests 401/402.
func (f *fakePMS) seedScenario() {
	notes := "VIP guest"
	desc := "Luxurious suite with ocean view"
	email := "john.doe@email.com"
	f.bookings[1001] = domain.BookingPayload{
		ID:            "1001",
		ExternalID:    "EXT-BKG-1001",
		ArrivalDate:   "2024-09-01",
		DepartureDate: "2024-09-03",
		RoomID:        201,
		RoomTypeID:    303,
		GuestIDs:      []int64{401, 402},
		Status:        "confirmed",
		Notes:         &notes,
	}
	f.rooms[201] = domain.RoomPayload{ID: "201", Number: "201", Floor: 2}
	f.roomTypes[303] = domain.RoomTypePayload{ID: "303", Name: "Deluxe Suite", Description: &desc}
	f.guests[401] = domain.GuestPayload{ID: "401", FirstName: "John", LastName: "Doe", Email: &email}
	f.guests[402] = domain.GuestPayload{ID: "402", FirstName: "Jane", LastName: "Roe"}
}

// ---- in-memory store with commit-or-discard transactions ----

type memState struct {
	roomTypes map[string]domain.RoomType
	rooms     map[string]domain.Room
	guests    map[string]domain.Guest
	bookings  map[string]domain.Booking
	members   map[int64][]int64
	nextID    int64
}

func (s memState) clone() memState {
	return memState{
		roomTypes: maps.Clone(s.roomTypes),
		rooms:     maps.Clone(s.rooms),
		guests:    maps.Clone(s.guests),
		bookings:  maps.Clone(s.bookings),
		members:   maps.Clone(s.members),
		nextID:    s.nextID,
	}
}

type memStore struct {
	mu      sync.Mutex
	state   memState
	failOn  string // "room-type", "room", "guest", "booking" or "members"
	commits int
	txs     int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		roomTypes: map[string]domain.RoomType{},
		rooms:     map[string]domain.Room{},
		guests:    map[string]domain.Guest{},
		bookings:  map[string]domain.Booking{},
		members:   map[int64][]int64{},
	}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx domain.SyncTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++
	tx := &memTx{st: m.state.clone(), failOn: m.failOn}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.st
	m.commits++
	return nil
}

func (m *memStore) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

var errInjected = errors.New("injected write failure")

type memTx struct {
	st     memState
	failOn string
}

func (t *memTx) id(existing int64, found bool) int64 {
	if found {
		return existing
	}
	t.st.nextID++
	return t.st.nextID
}

func (t *memTx) UpsertRoomType(ctx context.Context, rt domain.RoomType) (int64, error) {
	if t.failOn == "room-type" {
		return 0, errInjected
	}
	cur, ok := t.st.roomTypes[rt.ExternalID]
	rt.ID = t.id(cur.ID, ok)
	t.st.roomTypes[rt.ExternalID] = rt
	return rt.ID, nil
}

func (t *memTx) UpsertRoom(ctx context.Context, r domain.Room) (int64, error) {
	if t.failOn == "room" {
		return 0, errInjected
	}
	cur, ok := t.st.rooms[r.ExternalID]
	r.ID = t.id(cur.ID, ok)
	t.st.rooms[r.ExternalID] = r
	return r.ID, nil
}

func (t *memTx) UpsertGuest(ctx context.Context, g domain.Guest) (int64, error) {
	if t.failOn == "guest" {
		return 0, errInjected
	}
	cur, ok := t.st.guests[g.ExternalID]
	g.ID = t.id(cur.ID, ok)
	t.st.guests[g.ExternalID] = g
	return g.ID, nil
}

func (t *memTx) UpsertBooking(ctx context.Context, b domain.Booking) (int64, error) {
	if t.failOn == "booking" {
		return 0, errInjected
	}
	cur, ok := t.st.bookings[b.ExternalID]
	b.ID = t.id(cur.ID, ok)
	t.st.bookings[b.ExternalID] = b
	return b.ID, nil
}

func (t *memTx) ReplaceBookingGuests(ctx context.Context, bookingID int64, guestIDs []int64) error {
	if t.failOn == "members" {
		return errInjected
	}
	ids := append([]int64{}, guestIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	t.st.members[bookingID] = ids
	return nil
}

// guestExternalIDs resolves a booking's member guests back to their external ids.
func (s memState) guestExternalIDs(bookingExt string) []string {
	b, ok := s.bookings[bookingExt]
	if !ok {
		return nil
	}
	byID := map[int64]string{}
	for ext, g := range s.guests {
		byID[g.ID] = ext
	}
	out := []string{}
	for _, id := range s.members[b.ID] {
		out = append(out, byID[id])
	}
	sort.Strings(out)
	return out
}

// ---- JSON-roundtrip cache ----

type memCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
}

func newMemCache() *memCache { return &memCache{store: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memCache) DelPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
			c.deleted = append(c.deleted, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

func ptr[T any](v T) *T { return &v }
