package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// ProfileHandler serves the per-email profile record.
type ProfileHandler struct {
	Profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

type profileReq struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contactNumber"`
	FacebookLink  string `json:"facebookLink"`
	TwitterLink   string `json:"twitterLink"`
}

// Save handles POST /api/profile.  It answers 201 when a profile is created
// and 200 when an existing one is overwritten.
func (h *ProfileHandler) Save(c echo.Context) error {
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, created, err := h.Profiles.Save(c.Request().Context(), model.Profile{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		FacebookLink:  req.FacebookLink,
		TwitterLink:   req.TwitterLink,
	})
	if err != nil {
		return respondError(c, err)
	}
	if created {
		return c.JSON(http.StatusCreated, echo.Map{"message": "Profile data saved successfully", "profile": p})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile data updated successfully", "profile": p})
}

// Get handles GET /api/profile/:email.
func (h *ProfileHandler) Get(c echo.Context) error {
	p, err := h.Profiles.Get(c.Request().Context(), c.Param("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"profile": p})
}
