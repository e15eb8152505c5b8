package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pms_sync/internal/domain"
)

const dateLayout = time.DateOnly

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type Repo struct{ db *sql.DB }

var (
	_ domain.SyncStore     = (*Repo)(nil)
	_ domain.BookingReader = (*Repo)(nil)
)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// bookingRow is the shared scan target of getBookingSQL and listBookingsSQL.
type bookingRow struct {
	bv                 domain.BookingView
	arrival, departure time.Time
	notes              sql.NullString
	roomID             sql.NullInt64
	roomExt, roomNum   sql.NullString
	roomFloor          sql.NullInt64
	typeID             sql.NullInt64
	typeExt, typeName  sql.NullString
	typeDesc           sql.NullString
}

func (b *bookingRow) dest() []any {
	return []any{
		&b.bv.ID,
		&b.bv.ExternalID,
		&b.arrival,
		&b.departure,
		&b.bv.Status,
		&b.notes,
		&b.roomID, &b.roomExt, &b.roomNum, &b.roomFloor,
		&b.typeID, &b.typeExt, &b.typeName, &b.typeDesc,
	}
}

func (b *bookingRow) view() domain.BookingView {
	bv := b.bv
	bv.ArrivalDate = b.arrival.Format(dateLayout)
	bv.DepartureDate = b.departure.Format(dateLayout)
	bv.Notes = strPtr(b.notes)
	if b.roomID.Valid {
		bv.Room = &domain.RoomView{
			ID:         b.roomID.Int64,
			ExternalID: b.roomExt.String,
			Number:     b.roomNum.String,
			Floor:      int(b.roomFloor.Int64),
		}
	}
	if b.typeID.Valid {
		bv.RoomType = &domain.RoomTypeView{
			ID:          b.typeID.Int64,
			ExternalID:  b.typeExt.String,
			Name:        b.typeName.String,
			Description: strPtr(b.typeDesc),
		}
	}
	bv.Guests = []domain.GuestView{}
	return bv
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.BookingView, error) {
	var row bookingRow
	if err := r.db.QueryRowContext(ctx, getBookingSQL, id).Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BookingView{}, domain.ErrNotFound
		}
		return domain.BookingView{}, err
	}
	bv := row.view()
	guests, err := r.guestsFor(ctx, []int64{bv.ID})
	if err != nil {
		return domain.BookingView{}, err
	}
	if gs, ok := guests[bv.ID]; ok {
		bv.Guests = gs
	}
	return bv, nil
}

// ListBookings pages by id (keyset): Items are the first q.Limit bookings with id > q.After.
func (r *Repo) ListBookings(ctx context.Context, q domain.BookingsQuery) (domain.BookingsPage, error) {
	var status any
	if q.Status != nil {
		status = string(*q.Status)
	}
	// one extra row tells us whether another page exists
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, q.After, status, status, q.Limit+1)
	if err != nil {
		return domain.BookingsPage{}, err
	}
	defer rows.Close()

	out := make([]domain.BookingView, 0, q.Limit)
	for rows.Next() {
		var row bookingRow
		if err := rows.Scan(row.dest()...); err != nil {
			return domain.BookingsPage{}, err
		}
		out = append(out, row.view())
	}
	if err := rows.Err(); err != nil {
		return domain.BookingsPage{}, err
	}

	var page domain.BookingsPage
	if len(out) > q.Limit {
		out = out[:q.Limit]
		next := out[len(out)-1].ID
		page.NextAfter = &next
	}
	if len(out) > 0 {
		ids := make([]int64, len(out))
		for i := range out {
			ids[i] = out[i].ID
		}
		guests, err := r.guestsFor(ctx, ids)
		if err != nil {
			return domain.BookingsPage{}, err
		}
		for i := range out {
			if gs, ok := guests[out[i].ID]; ok {
				out[i].Guests = gs
			}
		}
	}
	page.Items = out
	return page, nil
}

func (r *Repo) GetGuest(ctx context.Context, id int64) (domain.GuestView, error) {
	var g domain.GuestView
	var email, phone sql.NullString
	err := r.db.QueryRowContext(ctx, getGuestSQL, id).Scan(&g.ID, &g.ExternalID, &g.FirstName, &g.LastName, &email, &phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GuestView{}, domain.ErrNotFound
		}
		return domain.GuestView{}, err
	}
	g.Email, g.Phone = strPtr(email), strPtr(phone)
	return g, nil
}

func (r *Repo) guestsFor(ctx context.Context, bookingIDs []int64) (map[int64][]domain.GuestView, error) {
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	q := listGuestsForBookingsPrefix + "(" + placeholders(len(bookingIDs)) + ")" + listGuestsForBookingsSuffix
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.GuestView, len(bookingIDs))
	for rows.Next() {
		var (
			bookingID    int64
			g            domain.GuestView
			email, phone sql.NullString
		)
		if err := rows.Scan(&bookingID, &g.ID, &g.ExternalID, &g.FirstName, &g.LastName, &email, &phone); err != nil {
			return nil, err
		}
		g.Email, g.Phone = strPtr(email), strPtr(phone)
		out[bookingID] = append(out[bookingID], g)
	}
	return out, rows.Err()
}
