package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// readEventForm collects the event fields present in a multipart (or
// urlencoded) form together with the optional posterImage file.  Absent
// fields stay nil so updates only touch what was sent.
func readEventForm(c echo.Context, maxImage int64) (model.EventPatch, []byte, error) {
	var patch model.EventPatch
	form, err := c.FormParams()
	if err != nil {
		return patch, nil, &service.ValidationError{Fields: map[string]string{"form": "could not parse form data"}}
	}

	f := formReader{values: form, errs: map[string]string{}}
	patch.EventTitle = f.str("eventTitle")
	patch.EventDescription = f.str("eventDescription")
	patch.EventCategory = f.str("eventCategory")
	patch.EventVenue = f.str("eventVenue")
	patch.EventDate = f.date("eventDate")
	patch.EventStartTime = f.str("eventStartTime")
	patch.EventEndTime = f.str("eventEndTime")
	patch.EstimatedTime = f.str("estimatedTime")
	patch.Agenda = f.str("agenda")
	patch.EventRegistrationLink = f.str("eventRegistrationLink")
	patch.IsPaidEvent = f.boolean("isPaidEvent")
	patch.IsOnlineEvent = f.boolean("isOnlineEvent")
	patch.OrganizerName = f.str("organizerName")
	patch.HasSeatBooking = f.boolean("hasSeatBooking")
	patch.SeatLimit = f.integer("seatLimit")
	patch.ProvideRegistrationLink = f.boolean("provideRegistrationLink")
	patch.CandidateLimit = f.integer("candidateLimit")
	patch.UserEmail = f.str("userEmail")

	image, err := readPoster(c, maxImage)
	if err != nil {
		f.errs["posterImage"] = err.Error()
	}
	if len(f.errs) > 0 {
		return patch, nil, &service.ValidationError{Fields: f.errs}
	}
	return patch, image, nil
}

var errPosterTooLarge = errors.New("exceeds the upload size limit")

func readPoster(c echo.Context, max int64) ([]byte, error) {
	fh, err := c.FormFile("posterImage")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read upload: %w", err)
	}
	if max > 0 && fh.Size > max {
		return nil, errPosterTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("could not read upload: %w", err)
	}
	defer src.Close()
	return io.ReadAll(src)
}

type formReader struct {
	values url.Values
	errs   map[string]string
}

func (f formReader) raw(key string) (string, bool) {
	vs, ok := f.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (f formReader) str(key string) *string {
	v, ok := f.raw(key)
	if !ok {
		return nil
	}
	return &v
}

// boolean accepts the values HTML checkboxes and JS clients send.
func (f formReader) boolean(key string) *bool {
	v, ok := f.raw(key)
	if !ok {
		return nil
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		b = true
	case "false", "0", "off", "no", "":
		b = false
	default:
		f.errs[key] = "must be true or false"
		return nil
	}
	return &b
}

func (f formReader) integer(key string) *int {
	v, ok := f.raw(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		zero := 0
		return &zero
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.errs[key] = "must be a whole number"
		return nil
	}
	return &n
}

func (f formReader) date(key string) *time.Time {
	v, ok := f.raw(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	t, err := model.ParseDate(v)
	if err != nil {
		f.errs[key] = "must be a date such as 2024-05-01"
		return nil
	}
	return &t
}
