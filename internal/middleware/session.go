package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/utils"
)

// Session reads the session cookie and, when it carries a valid token, stores
// the user in the context for CurrentUser.  Requests without a valid cookie
// pass through anonymously.
func Session(secret, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(cookieName)
			if err == nil && ck.Value != "" {
				if u, err := utils.ParseSessionToken(secret, ck.Value); err == nil {
					c.Set(userKey, u)
				}
			}
			return next(c)
		}
	}
}

// RequireSession rejects requests without an authenticated user.  It must
// run after Session.  When enabled is false every request is let through.
func RequireSession(enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !enabled {
			return next
		}
		return func(c echo.Context) error {
			if _, ok := CurrentUser(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "unauthorized",
					"message": "login required",
				})
			}
			return next(c)
		}
	}
}
