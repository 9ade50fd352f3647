package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/iliyamo/event-hub/internal/model"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// maxUnescapePasses bounds how many layers of entity encoding plainText peels.
const maxUnescapePasses = 4

// plainText strips every tag.  The strict policy escapes entities, which are
// decoded again because the value is stored as text, not HTML.  Decoding can
// surface markup that was entity-encoded in the input, so the pair repeats
// until the value is stable; a value that never settles stays escaped.
func plainText(s string) string {
	for i := 0; i < maxUnescapePasses; i++ {
		out := html.UnescapeString(strictPolicy.Sanitize(s))
		if out == s {
			return strings.TrimSpace(out)
		}
		s = out
	}
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// richText keeps basic formatting in long-form fields.
func richText(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

func sanitizeEvent(e *model.Event) {
	e.EventTitle = plainText(e.EventTitle)
	e.EventDescription = richText(e.EventDescription)
	e.EventCategory = plainText(e.EventCategory)
	e.EventVenue = plainText(e.EventVenue)
	e.EventStartTime = plainText(e.EventStartTime)
	e.EventEndTime = plainText(e.EventEndTime)
	e.EstimatedTime = plainText(e.EstimatedTime)
	e.Agenda = richText(e.Agenda)
	e.EventRegistrationLink = plainText(e.EventRegistrationLink)
	e.OrganizerName = plainText(e.OrganizerName)
	e.UserEmail = strings.TrimSpace(e.UserEmail)
}

func sanitizeProfile(p *model.Profile) {
	p.Name = plainText(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.ContactNumber = plainText(p.ContactNumber)
	p.FacebookLink = plainText(p.FacebookLink)
	p.TwitterLink = plainText(p.TwitterLink)
}
