package handler

import (
	"io"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"platefinder/internal/auth"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/service"
)

// flowCookieName addresses the ephemeral session carrying verification flows.
const flowCookieName = "flow_session"

// flowSessionID returns the client's flow-session ID, minting a cookie when
// none exists yet.
func flowSessionID(c echo.Context) string {
	if ck, err := c.Cookie(flowCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     flowCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// currentAccountID extracts the authenticated account from the JWT middleware.
func currentAccountID(c echo.Context) (uuid.UUID, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	id, err := claims.AccountID()
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return id, nil
}

// respondError maps a service error onto the standardized error response.
func respondError(c echo.Context, err error) error {
	he := apperrors.MapErrorToHTTP(err)
	return c.JSON(he.StatusCode, he.ToErrorResponse())
}

// readImage reads one optional multipart file field.
func readImage(c echo.Context, field string) (*service.ImageUpload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil // field absent
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{
		Data:        data,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

// readImages reads every file under a repeated multipart field.
func readImages(c echo.Context, field string) ([]service.ImageUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil // not a multipart request or no files
	}
	var images []service.ImageUpload
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, service.ImageUpload{
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}
	return images, nil
}
