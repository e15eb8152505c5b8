package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pms_sync/internal/domain"
)

/********** tiny helpers **********/

// firstNonEmpty returns the first trimmed, non-empty value.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

// trimPtr drops blank optional strings so they are stored as NULL.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// parseDate accepts "2006-01-02" and full RFC 3339 timestamps; only the date part is kept.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidPayload, s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// refExternalID keys a booking dependency on the id the booking referenced it by.
// The payload's own external_id is ignored so room_id, room_type_id and guest_ids
// always resolve to the rows they name.
func refExternalID(requested int64, id domain.FlexString) string {
	if requested > 0 {
		return strconv.FormatInt(requested, 10)
	}
	return strings.TrimSpace(id.String())
}

/********** payload mappers **********/

func mapRoomType(requested int64, p domain.RoomTypePayload) (domain.RoomType, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.RoomType{}, fmt.Errorf("%w: room type %d has no name", domain.ErrInvalidPayload, requested)
	}
	return domain.RoomType{
		ExternalID:  refExternalID(requested, p.ID),
		Name:        name,
		Description: trimPtr(p.Description),
	}, nil
}

// RoomTypeID is filled in by the caller once the room type has a local id.
func mapRoom(requested int64, p domain.RoomPayload) (domain.Room, error) {
	number := strings.TrimSpace(p.Number.String())
	if number == "" {
		return domain.Room{}, fmt.Errorf("%w: room %d has no number", domain.ErrInvalidPayload, requested)
	}
	return domain.Room{
		ExternalID: refExternalID(requested, p.ID),
		Number:     number,
		Floor:      p.Floor,
	}, nil
}

func mapGuest(requested int64, p domain.GuestPayload) domain.Guest {
	return domain.Guest{
		ExternalID: refExternalID(requested, p.ID),
		FirstName:  strings.TrimSpace(p.FirstName),
		LastName:   strings.TrimSpace(p.LastName),
		Email:      trimPtr(p.Email),
		Phone:      trimPtr(p.Phone),
	}
}

// The booking is keyed on its own external_id, then the PMS id, then the requested id.
// RoomID and RoomTypeID are filled in by the caller inside the sync transaction.
func mapBooking(requested int64, p domain.BookingPayload) (domain.Booking, error) {
	arrival, err := parseDate(p.ArrivalDate)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("arrival_date: %w", err)
	}
	departure, err := parseDate(p.DepartureDate)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("departure_date: %w", err)
	}
	if departure.Before(arrival) {
		return domain.Booking{}, fmt.Errorf("%w: departure %s before arrival %s",
			domain.ErrInvalidPayload, p.DepartureDate, p.ArrivalDate)
	}
	status := domain.BookingStatus(strings.ToLower(strings.TrimSpace(p.Status)))
	if !status.Valid() {
		return domain.Booking{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPayload, p.Status)
	}
	return domain.Booking{
		ExternalID:    firstNonEmpty(p.ExternalID.String(), p.ID.String(), strconv.FormatInt(requested, 10)),
		ArrivalDate:   arrival,
		DepartureDate: departure,
		Status:        status,
		Notes:         trimPtr(p.Notes),
	}, nil
}

// uniqueIDs keeps the first occurrence of every id, preserving order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
