package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCapacityRules(t *testing.T) {
	cases := []struct {
		name          string
		seatBooking   bool
		regLink       bool
		wantSeats     int
		wantCandidate int
	}{
		{"both disabled", false, false, 0, 0},
		{"seat booking only", true, false, 50, 0},
		{"registration link only", false, true, 0, 20},
		{"both enabled", true, true, 50, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := Event{
				HasSeatBooking:          tc.seatBooking,
				SeatLimit:               50,
				ProvideRegistrationLink: tc.regLink,
				CandidateLimit:          20,
			}
			ev.ApplyCapacityRules()
			assert.Equal(t, tc.wantSeats, ev.SeatLimit)
			assert.Equal(t, tc.wantCandidate, ev.CandidateLimit)
		})
	}
}

func TestEventPatchApplyOnlySuppliedFields(t *testing.T) {
	title := "Renamed"
	seats := 10
	ev := Event{EventTitle: "Original", EventVenue: "Hall A", SeatLimit: 3, PosterImage: []byte{1, 2}}

	EventPatch{EventTitle: &title, SeatLimit: &seats}.Apply(&ev)

	assert.Equal(t, "Renamed", ev.EventTitle)
	assert.Equal(t, "Hall A", ev.EventVenue)
	assert.Equal(t, 10, ev.SeatLimit)
	assert.Equal(t, []byte{1, 2}, ev.PosterImage)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-05-01T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), d)

	_, err = ParseDate("May first")
	assert.Error(t, err)
}

func TestReservationRowJSON(t *testing.T) {
	view := ReservationView{EventName: "Tech Meetup", UserEmail: "a@example.com", SeatsBooked: 2, Registered: true}
	bs, err := json.Marshal([]ReservationRow{{View: &view}, {MissingEventFor: "abc123"}})
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(bs, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Tech Meetup", rows[0]["eventName"])
	assert.EqualValues(t, 2, rows[0]["seatsBooked"])
	assert.NotContains(t, rows[0], "error")
	assert.Equal(t, map[string]any{"error": "Event not found", "reservationId": "abc123"}, rows[1])
}
