package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"platefinder/internal/auth"
	"platefinder/internal/config"
	"platefinder/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	restaurantHandler *handler.RestaurantHandler,
	reviewHandler *handler.ReviewHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register/otp", authHandler.RequestRegistrationOTP)
	api.POST("/auth/register/confirm", authHandler.ConfirmRegistration)
	api.POST("/auth/otp/resend", authHandler.ResendOTP)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/password-reset/request", authHandler.RequestPasswordReset)
	api.POST("/auth/password-reset/verify", authHandler.VerifyPasswordReset)
	api.POST("/auth/password-reset/commit", authHandler.CommitPasswordReset)

	api.GET("/restaurants/:id", restaurantHandler.Get)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}))

	secured.PUT("/me/password", authHandler.ChangePassword)
	secured.PUT("/me/avatar", profileHandler.UpdateAvatar)
	secured.POST("/me/credential-refresh/request", authHandler.RequestCredentialRefresh)
	secured.POST("/me/credential-refresh/verify", authHandler.VerifyCredentialRefresh)
	secured.POST("/me/credential-refresh/commit", authHandler.CommitCredentialRefresh)

	secured.POST("/restaurants", restaurantHandler.Create)
	secured.PUT("/restaurants/:id", restaurantHandler.Update)
	secured.POST("/restaurants/:id/review", reviewHandler.Create)
	secured.DELETE("/restaurants/:id/review", reviewHandler.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
