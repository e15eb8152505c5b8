package domain

import "time"

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusPending   BookingStatus = "pending"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Local rows. ID is the local primary key; ExternalID is the PMS natural key.

type RoomType struct {
	ID          int64
	ExternalID  string
	Name        string
	Description *string
}

type Room struct {
	ID         int64
	ExternalID string
	Number     string
	Floor      int
	RoomTypeID int64
}

type Guest struct {
	ID         int64
	ExternalID string
	FirstName  string
	LastName   string
	Email      *string
	Phone      *string
}

type Booking struct {
	ID            int64
	ExternalID    string
	ArrivalDate   time.Time
	DepartureDate time.Time
	RoomID        int64
	RoomTypeID    int64
	Status        BookingStatus
	Notes         *string
}
