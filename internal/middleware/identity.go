package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/model"
)

const userKey = "user"

// CurrentUser returns the logged-in user placed in the context by Session.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok && u.Email != ""
}
