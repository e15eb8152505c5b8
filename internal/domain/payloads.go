package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes a JSON string or number into its string form.
// The PMS is not consistent about quoting identifiers and room numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Remote payloads as returned by the PMS REST API.

type BookingIDsPayload struct {
	Data []int64 `json:"data"`
}

type BookingPayload struct {
	ID            FlexString `json:"id"`
	ExternalID    FlexString `json:"external_id"`
	ArrivalDate   string     `json:"arrival_date"`
	DepartureDate string     `json:"departure_date"`
	RoomID        int64      `json:"room_id"`
	RoomTypeID    int64      `json:"room_type_id"`
	GuestIDs      []int64    `json:"guest_ids"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes"`
}

type RoomPayload struct {
	ID         FlexString `json:"id"`
	ExternalID FlexString `json:"external_id"`
	Number     FlexString `json:"number"`
	Floor      int        `json:"floor"`
}

type RoomTypePayload struct {
	ID          FlexString `json:"id"`
	ExternalID  FlexString `json:"external_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
}

type GuestPayload struct {
	ID         FlexString `json:"id"`
	ExternalID FlexString `json:"external_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
}
