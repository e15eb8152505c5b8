package domain

import (
	"context"
	"time"
)

type EntityKind string

const (
	KindBookingList EntityKind = "bookings"
	KindBooking     EntityKind = "booking"
	KindRoom        EntityKind = "room"
	KindRoomType    EntityKind = "room-type"
	KindGuest       EntityKind = "guest"
)

type PMSClient interface {
	ListBookingIDs(ctx context.Context, since *time.Time) ([]int64, error)
	GetBookingDetail(ctx context.Context, id int64) (BookingPayload, error)
	GetRoomDetail(ctx context.Context, id int64) (RoomPayload, error)
	GetRoomTypeDetail(ctx context.Context, id int64) (RoomTypePayload, error)
	GetGuestDetail(ctx context.Context, id int64) (GuestPayload, error)
	// GetGuestDetails never fails as a whole; ids that could not be fetched are absent.
	GetGuestDetails(ctx context.Context, ids []int64) map[int64]GuestPayload
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// SyncStore runs fn inside one local transaction. Any error returned by fn
// rolls back every write fn performed.
type SyncStore interface {
	WithinTx(ctx context.Context, fn func(tx SyncTx) error) error
}

// SyncTx exposes upsert-by-external-id primitives. Upserts return the local id.
type SyncTx interface {
	UpsertRoomType(ctx context.Context, rt RoomType) (int64, error)
	UpsertRoom(ctx context.Context, r Room) (int64, error)
	UpsertGuest(ctx context.Context, g Guest) (int64, error)
	UpsertBooking(ctx context.Context, b Booking) (int64, error)
	// ReplaceBookingGuests makes the booking's guest set exactly guestIDs.
	ReplaceBookingGuests(ctx context.Context, bookingID int64, guestIDs []int64) error
}

type BookingReader interface {
	GetBooking(ctx context.Context, id int64) (BookingView, error)
	ListBookings(ctx context.Context, q BookingsQuery) (BookingsPage, error)
	GetGuest(ctx context.Context, id int64) (GuestView, error)
}

// Read models & queries
type BookingView struct {
	ID            int64         `json:"id"`
	ExternalID    string        `json:"external_id"`
	ArrivalDate   string        `json:"arrival_date"`
	DepartureDate string        `json:"departure_date"`
	Status        BookingStatus `json:"status"`
	Notes         *string       `json:"notes,omitempty"`
	Room          *RoomView     `json:"room,omitempty"`
	RoomType      *RoomTypeView `json:"room_type,omitempty"`
	Guests        []GuestView   `json:"guests"`
}

type RoomView struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Number     string `json:"number"`
	Floor      int    `json:"floor"`
}

type RoomTypeView struct {
	ID          int64   `json:"id"`
	ExternalID  string  `json:"external_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type GuestView struct {
	ID         int64   `json:"id"`
	ExternalID string  `json:"external_id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

type BookingsQuery struct {
	Status *BookingStatus
	After  int64 // keyset cursor: bookings with id > After
	Limit  int
}

type BookingsPage struct {
	Items     []BookingView `json:"items"`
	NextAfter *int64        `json:"next_after,omitempty"`
}
