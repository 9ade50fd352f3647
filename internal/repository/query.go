package repository

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/event-hub/internal/model"
)

// EventQuery filters events.  Zero fields do not constrain the result.
type EventQuery struct {
	IDs   []string // restricts to these ids when non-nil; invalid hex ids match nothing
	Owner string   // exact userEmail
	Title string   // case-insensitive literal substring of eventTitle
}

// Match applies q to ev in memory with the same semantics as the store filter.
func (q EventQuery) Match(ev model.Event) bool {
	if q.IDs != nil {
		found := false
		for _, id := range q.IDs {
			if id == ev.ID.Hex() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Owner != "" && ev.UserEmail != q.Owner {
		return false
	}
	if q.Title != "" && !strings.Contains(strings.ToLower(ev.EventTitle), strings.ToLower(q.Title)) {
		return false
	}
	return true
}

func (q EventQuery) filter() bson.M {
	f := bson.M{}
	if q.IDs != nil {
		f["_id"] = bson.M{"$in": objectIDs(q.IDs)}
	}
	if q.Owner != "" {
		f["userEmail"] = q.Owner
	}
	if q.Title != "" {
		f["eventTitle"] = titleRegex(q.Title)
	}
	return f
}

// ReservationQuery filters reservations.
type ReservationQuery struct {
	EventID     string
	UserEmail   string
	ExcludeUser string // userEmail != ExcludeUser
	Registered  *bool
}

func (q ReservationQuery) Match(r model.Reservation) bool {
	if q.EventID != "" && r.EventID != q.EventID {
		return false
	}
	if q.UserEmail != "" && r.UserEmail != q.UserEmail {
		return false
	}
	if q.ExcludeUser != "" && r.UserEmail == q.ExcludeUser {
		return false
	}
	if q.Registered != nil && r.Registered != *q.Registered {
		return false
	}
	return true
}

func (q ReservationQuery) filter() bson.M {
	f := bson.M{}
	if q.EventID != "" {
		f["eventId"] = q.EventID
	}
	switch {
	case q.UserEmail != "":
		f["userEmail"] = q.UserEmail
	case q.ExcludeUser != "":
		f["userEmail"] = bson.M{"$ne": q.ExcludeUser}
	}
	if q.Registered != nil {
		f["registered"] = *q.Registered
	}
	return f
}

// titleRegex matches s literally anywhere in the title, ignoring case.
func titleRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// objectIDs converts hex ids, skipping the ones that do not parse.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
