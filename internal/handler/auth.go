package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/middleware"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/utils"
)

const stateCookie = "oauth_state"

// IdentityProvider runs the browser login flow.  auth.GoogleProvider is the
// production implementation.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (model.User, error)
}

// AuthHandler bundles dependencies for the login endpoints.
type AuthHandler struct {
	Provider  IdentityProvider
	Session   config.SessionConfig
	ClientURL string
}

func NewAuthHandler(p IdentityProvider, session config.SessionConfig, clientURL string) *AuthHandler {
	return &AuthHandler{Provider: p, Session: session, ClientURL: clientURL}
}

// Login handles GET /google.  It stores a random state in a short-lived
// cookie and redirects to the provider's consent screen.
func (h *AuthHandler) Login(c echo.Context) error {
	state, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "could not start login"})
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.Provider.AuthCodeURL(state))
}

// Callback handles GET /google/callback.  On success the session cookie is
// set and the browser returns to the client; any failure lands on
// /login/failed.
func (h *AuthHandler) Callback(c echo.Context) error {
	log := zerolog.Ctx(c.Request().Context())
	h.clearCookie(c, stateCookie)

	ck, err := c.Cookie(stateCookie)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) != 1 {
		log.Warn().Msg("oauth state mismatch")
		return c.Redirect(http.StatusFound, "/login/failed")
	}
	if e := c.QueryParam("error"); e != "" {
		log.Info().Str("reason", e).Msg("oauth login declined")
		return c.Redirect(http.StatusFound, "/login/failed")
	}

	u, err := h.Provider.Identify(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		log.Warn().Err(err).Msg("oauth identify failed")
		return c.Redirect(http.StatusFound, "/login/failed")
	}
	tok, err := utils.NewSessionToken(h.Session.Secret, u, h.Session.TTL)
	if err != nil {
		log.Error().Err(err).Msg("sign session token")
		return c.Redirect(http.StatusFound, "/login/failed")
	}
	c.SetCookie(&http.Cookie{
		Name:     h.Session.CookieName,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Str("user", u.Email).Msg("user logged in")
	return c.Redirect(http.StatusFound, h.ClientURL)
}

// LoginSuccess handles GET /login/success.
func (h *AuthHandler) LoginSuccess(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "Not Authorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"error": false, "message": "Successfully Logged In", "user": u})
}

// LoginFailed handles GET /login/failed.
func (h *AuthHandler) LoginFailed(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "Log in failure"})
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearCookie(c, h.Session.CookieName)
	return c.Redirect(http.StatusFound, h.ClientURL)
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Session.CookieSecure,
	})
}
