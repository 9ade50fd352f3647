package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is an organizer-authored listing stored in the `events` collection.
// Field names follow the front-end contract, so JSON and BSON share them.
// PosterImage holds the normalized JPEG bytes and is rendered as base64 in
// JSON responses.
type Event struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	EventTitle              string             `bson:"eventTitle" json:"eventTitle" validate:"required"`
	EventDescription        string             `bson:"eventDescription" json:"eventDescription" validate:"required"`
	EventCategory           string             `bson:"eventCategory" json:"eventCategory" validate:"required"`
	EventVenue              string             `bson:"eventVenue" json:"eventVenue" validate:"required"`
	EventDate               time.Time          `bson:"eventDate" json:"eventDate" validate:"required"`
	EventStartTime          string             `bson:"eventStartTime" json:"eventStartTime" validate:"required"`
	EventEndTime            string             `bson:"eventEndTime" json:"eventEndTime" validate:"required"`
	EstimatedTime           string             `bson:"estimatedTime" json:"estimatedTime" validate:"required"`
	Agenda                  string             `bson:"agenda" json:"agenda" validate:"required"`
	EventRegistrationLink   string             `bson:"eventRegistrationLink,omitempty" json:"eventRegistrationLink,omitempty"`
	IsPaidEvent             bool               `bson:"isPaidEvent" json:"isPaidEvent"`
	IsOnlineEvent           bool               `bson:"isOnlineEvent" json:"isOnlineEvent"`
	OrganizerName           string             `bson:"organizerName" json:"organizerName" validate:"required"`
	PosterImage             []byte             `bson:"posterImage,omitempty" json:"posterImage,omitempty"`
	HasSeatBooking          bool               `bson:"hasSeatBooking" json:"hasSeatBooking"`
	SeatLimit               int                `bson:"seatLimit" json:"seatLimit" validate:"gte=0"`
	ProvideRegistrationLink bool               `bson:"provideRegistrationLink" json:"provideRegistrationLink"`
	CandidateLimit          int                `bson:"candidateLimit" json:"candidateLimit" validate:"gte=0"`
	UserEmail               string             `bson:"userEmail" json:"userEmail" validate:"required,email"`
	CreatedAt               time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt               time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ApplyCapacityRules zeroes the seat limit unless seat booking is enabled and
// the candidate limit unless a registration link is provided.
func (e *Event) ApplyCapacityRules() {
	if !e.HasSeatBooking {
		e.SeatLimit = 0
	}
	if !e.ProvideRegistrationLink {
		e.CandidateLimit = 0
	}
}

// EventPatch carries the fields present in a submission or update form.  A
// nil pointer means the field was not supplied.
type EventPatch struct {
	EventTitle              *string
	EventDescription        *string
	EventCategory           *string
	EventVenue              *string
	EventDate               *time.Time
	EventStartTime          *string
	EventEndTime            *string
	EstimatedTime           *string
	Agenda                  *string
	EventRegistrationLink   *string
	IsPaidEvent             *bool
	IsOnlineEvent           *bool
	OrganizerName           *string
	HasSeatBooking          *bool
	SeatLimit               *int
	ProvideRegistrationLink *bool
	CandidateLimit          *int
	UserEmail               *string
}

// Apply copies every supplied field onto e.
func (p EventPatch) Apply(e *Event) {
	setStr(&e.EventTitle, p.EventTitle)
	setStr(&e.EventDescription, p.EventDescription)
	setStr(&e.EventCategory, p.EventCategory)
	setStr(&e.EventVenue, p.EventVenue)
	if p.EventDate != nil {
		e.EventDate = *p.EventDate
	}
	setStr(&e.EventStartTime, p.EventStartTime)
	setStr(&e.EventEndTime, p.EventEndTime)
	setStr(&e.EstimatedTime, p.EstimatedTime)
	setStr(&e.Agenda, p.Agenda)
	setStr(&e.EventRegistrationLink, p.EventRegistrationLink)
	setBool(&e.IsPaidEvent, p.IsPaidEvent)
	setBool(&e.IsOnlineEvent, p.IsOnlineEvent)
	setStr(&e.OrganizerName, p.OrganizerName)
	setBool(&e.HasSeatBooking, p.HasSeatBooking)
	if p.SeatLimit != nil {
		e.SeatLimit = *p.SeatLimit
	}
	setBool(&e.ProvideRegistrationLink, p.ProvideRegistrationLink)
	if p.CandidateLimit != nil {
		e.CandidateLimit = *p.CandidateLimit
	}
	setStr(&e.UserEmail, p.UserEmail)
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
