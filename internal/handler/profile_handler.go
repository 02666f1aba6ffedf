package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"platefinder/internal/service"
)

// ProfileHandler exposes account profile endpoints.
type ProfileHandler struct {
	profiles service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// UpdateAvatar handles PUT /me/avatar (multipart, file field "avatar").
func (h *ProfileHandler) UpdateAvatar(c echo.Context) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	image, err := readImage(c, "avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	if image == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}

	user, err := h.profiles.UpdateProfilePicture(c.Request().Context(), accountID, *image)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}
