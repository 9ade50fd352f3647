// Package queue defines the domain events exchanged over RabbitMQ together
// with their publisher and background consumer.
package queue

import "time"

// Queue names.  Messages go through the default exchange with the queue name
// as routing key.
const (
	ReservationActivityQueue = "reservation.activity"
	EventRemovedQueue        = "event.removed"
)

// Reservation activity actions.
const (
	ActionReserved   = "reserved"
	ActionRegistered = "registered"
	ActionCancelled  = "cancelled"
)

// ReservationActivity is published whenever a reservation is created or
// cancelled.  It carries enough detail for the activity log without a store
// lookup.
type ReservationActivity struct {
	Action     string    `json:"action"`
	EventID    string    `json:"event_id"`
	UserEmail  string    `json:"user_email"`
	SeatCount  int       `json:"seat_count"`
	Registered bool      `json:"registered"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventRemoved is published after an event is deleted.  The consumer sweeps
// any reservation still pointing at EventID.
type EventRemoved struct {
	EventID             string    `json:"event_id"`
	ReservationsRemoved int64     `json:"reservations_removed"`
	OccurredAt          time.Time `json:"occurred_at"`
}
