package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"platefinder/internal/service"
)

// RestaurantHandler exposes restaurant endpoints.
type RestaurantHandler struct {
	restaurants service.RestaurantService
}

// NewRestaurantHandler creates a new restaurant handler.
func NewRestaurantHandler(restaurants service.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{restaurants: restaurants}
}

// restaurantForm are the non-file fields of the multipart create/update
// requests. Hours arrive as a JSON array in a form value.
type restaurantForm struct {
	Name           string `form:"name" validate:"required,max=255"`
	Description    string `form:"description"`
	Address        string `form:"address" validate:"required"`
	City           string `form:"city" validate:"required"`
	Hours          string `form:"hours" validate:"required"`
	ContactPhone   string `form:"contact_phone"`
	ContactEmail   string `form:"contact_email" validate:"omitempty,email"`
	ContactWebsite string `form:"contact_website"`
}

func (f *restaurantForm) parseHours() ([]service.HoursInput, error) {
	var hours []service.HoursInput
	if err := json.Unmarshal([]byte(f.Hours), &hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// Create handles POST /restaurants (multipart: form fields + "profile_image"
// file + repeated "gallery" files + repeated "tags"/"categories" values).
func (h *RestaurantHandler) Create(c echo.Context) error {
	ownerID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	var form restaurantForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hours, err := form.parseHours()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hours payload")
	}

	profile, err := readImage(c, "profile_image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	gallery, err := readImages(c, "gallery")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}

	in := service.CreateRestaurantInput{
		Name:        form.Name,
		Description: form.Description,
		Address:     form.Address,
		City:        form.City,
		Hours:       hours,
		Tags:        formValues(c, "tags"),
		Categories:  formValues(c, "categories"),
		Contact: service.ContactInput{
			Phone:   form.ContactPhone,
			Email:   form.ContactEmail,
			Website: form.ContactWebsite,
		},
		Profile: profile,
		Gallery: gallery,
	}

	restaurant, err := h.restaurants.Create(c.Request().Context(), ownerID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"restaurant": restaurant})
}

// Update handles PUT /restaurants/:id. Gallery replacements arrive as files
// under "gallery_replace" paired with repeated "gallery_replace_key" values.
func (h *RestaurantHandler) Update(c echo.Context) error {
	ownerID, err := currentAccountID(c)
	if err != nil {
		return err
	}
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}

	var form restaurantForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hours, err := form.parseHours()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hours payload")
	}

	profile, err := readImage(c, "profile_image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	replacementImages, err := readImages(c, "gallery_replace")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	replacementKeys := formValues(c, "gallery_replace_key")
	if len(replacementImages) != len(replacementKeys) {
		return echo.NewHTTPError(http.StatusBadRequest, "gallery replacement keys and files mismatch")
	}
	replacements := make(map[string]service.ImageUpload, len(replacementKeys))
	for i, key := range replacementKeys {
		replacements[key] = replacementImages[i]
	}

	in := service.UpdateRestaurantInput{
		Name:        form.Name,
		Description: form.Description,
		Address:     form.Address,
		City:        form.City,
		Hours:       hours,
		Tags:        formValues(c, "tags"),
		Categories:  formValues(c, "categories"),
		Contact: service.ContactInput{
			Phone:   form.ContactPhone,
			Email:   form.ContactEmail,
			Website: form.ContactWebsite,
		},
		Profile:             profile,
		GalleryReplacements: replacements,
	}

	restaurant, err := h.restaurants.Update(c.Request().Context(), ownerID, restaurantID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"restaurant": restaurant})
}

// Get handles GET /restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}

	restaurant, err := h.restaurants.Get(c.Request().Context(), restaurantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"restaurant": restaurant})
}

func formValues(c echo.Context, field string) []string {
	form, err := c.FormParams()
	if err != nil {
		return nil
	}
	return form[field]
}
