package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"platefinder/internal/service"
)

// ReviewHandler exposes review endpoints.
type ReviewHandler struct {
	reviews service.ReviewService
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create handles POST /restaurants/:id/review (multipart: "rating", "body",
// repeated "images" files).
func (h *ReviewHandler) Create(c echo.Context) error {
	userID, err := currentAccountID(c)
	if err != nil {
		return err
	}
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}

	rating, err := strconv.Atoi(c.FormValue("rating"))
	if err != nil || rating < 1 || rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	body := c.FormValue("body")

	images, err := readImages(c, "images")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}

	review, err := h.reviews.Create(c.Request().Context(), userID, restaurantID, rating, body, images)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"review": review})
}

// Delete handles DELETE /restaurants/:id/review.
func (h *ReviewHandler) Delete(c echo.Context) error {
	userID, err := currentAccountID(c)
	if err != nil {
		return err
	}
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}

	if err := h.reviews.Delete(c.Request().Context(), userID, restaurantID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "review deleted"})
}
