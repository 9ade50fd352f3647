package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reservation records one user's registration or seat booking for an event.
// The event's date and times are denormalized onto the record at creation.
// EventID is the hex form of the event's ObjectID.
type Reservation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	EventID        string             `bson:"eventId" json:"eventId" validate:"required"`
	UserEmail      string             `bson:"userEmail" json:"userEmail" validate:"required,email"`
	Registered     bool               `bson:"registered" json:"registered"`
	EventDate      time.Time          `bson:"eventDate" json:"eventDate" validate:"required"`
	EventStartTime string             `bson:"eventStartTime" json:"eventStartTime" validate:"required"`
	EventEndTime   string             `bson:"eventEndTime" json:"eventEndTime" validate:"required"`
	SeatCount      int                `bson:"seatCount" json:"seatCount" validate:"gte=0"`
	Remove         bool               `bson:"remove,omitempty" json:"remove,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// RegisteredEventView is the projection returned for a user's registrations.
type RegisteredEventView struct {
	EventID        string    `json:"eventId"`
	EventName      string    `json:"eventName"`
	EventDate      time.Time `json:"eventDate"`
	EventStartTime string    `json:"eventStartTime"`
	EventEndTime   string    `json:"eventEndTime"`
}

// ReservationView joins a reservation with the event it references.
type ReservationView struct {
	EventName      string    `json:"eventName"`
	EventDate      time.Time `json:"eventDate"`
	EventStartTime string    `json:"eventStartTime"`
	EventEndTime   string    `json:"eventEndTime"`
	UserEmail      string    `json:"userEmail"`
	SeatsBooked    int       `json:"seatsBooked"`
	Registered     bool      `json:"registered"`
	Remove         bool      `json:"remove"`
}

// NewReservationView builds the combined view of r against ev.
func NewReservationView(r Reservation, ev Event) ReservationView {
	return ReservationView{
		EventName:      ev.EventTitle,
		EventDate:      ev.EventDate,
		EventStartTime: ev.EventStartTime,
		EventEndTime:   ev.EventEndTime,
		UserEmail:      r.UserEmail,
		SeatsBooked:    r.SeatCount,
		Registered:     r.Registered,
		Remove:         r.Remove,
	}
}

// ReservationRow is one entry of a listing that tolerates dangling event
// references: either View is set, or MissingEventFor names the reservation
// whose event no longer exists.
type ReservationRow struct {
	View            *ReservationView
	MissingEventFor string
}

func (r ReservationRow) MarshalJSON() ([]byte, error) {
	if r.View != nil {
		return json.Marshal(r.View)
	}
	return json.Marshal(struct {
		Error         string `json:"error"`
		ReservationID string `json:"reservationId"`
	}{Error: "Event not found", ReservationID: r.MissingEventFor})
}
