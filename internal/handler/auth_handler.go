package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"platefinder/internal/service"
)

// AuthHandler exposes the verification flows and credential endpoints.
type AuthHandler struct {
	verification service.VerificationService
	authService  service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(verification service.VerificationService, authService service.AuthService) *AuthHandler {
	return &AuthHandler{verification: verification, authService: authService}
}

// RegisterOTPRequest starts a registration flow.
type RegisterOTPRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// ConfirmRequest carries a submitted passcode.
type ConfirmRequest struct {
	Code string `json:"code" validate:"required,len=5,numeric"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ResetRequest starts a password reset flow.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// NewPasswordRequest commits a reset or refresh flow.
type NewPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest changes the password by current password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// RequestRegistrationOTP handles POST /auth/register/otp.
func (h *AuthHandler) RequestRegistrationOTP(c echo.Context) error {
	var req RegisterOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.RequestRegistrationOTP(c.Request().Context(), sid, req.Username, req.Email, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification code sent"})
}

// ConfirmRegistration handles POST /auth/register/confirm.
func (h *AuthHandler) ConfirmRegistration(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	user, pair, err := h.verification.ConfirmRegistration(c.Request().Context(), sid, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"user": user}
	if pair != nil {
		resp["access_token"] = pair.AccessToken
		resp["refresh_token"] = pair.RefreshToken
	}
	return c.JSON(http.StatusCreated, resp)
}

// ResendOTP handles POST /auth/otp/resend for whichever flow is pending.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	sid := flowSessionID(c)
	if err := h.verification.ResendOTP(c.Request().Context(), sid); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification code sent"})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pair, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// RequestPasswordReset handles POST /auth/password-reset/request.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.RequestPasswordReset(c.Request().Context(), sid, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification code sent"})
}

// VerifyPasswordReset handles POST /auth/password-reset/verify.
func (h *AuthHandler) VerifyPasswordReset(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.VerifyResetOTP(c.Request().Context(), sid, req.Code); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code verified"})
}

// CommitPasswordReset handles POST /auth/password-reset/commit.
func (h *AuthHandler) CommitPasswordReset(c echo.Context) error {
	var req NewPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.CommitPasswordReset(c.Request().Context(), sid, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// RequestCredentialRefresh handles POST /me/credential-refresh/request.
func (h *AuthHandler) RequestCredentialRefresh(c echo.Context) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}
	sid := flowSessionID(c)
	if err := h.verification.RequestCredentialRefresh(c.Request().Context(), sid, accountID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification code sent"})
}

// VerifyCredentialRefresh handles POST /me/credential-refresh/verify.
func (h *AuthHandler) VerifyCredentialRefresh(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.VerifyRefreshOTP(c.Request().Context(), sid, req.Code); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code verified"})
}

// CommitCredentialRefresh handles POST /me/credential-refresh/commit.
func (h *AuthHandler) CommitCredentialRefresh(c echo.Context) error {
	var req NewPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := flowSessionID(c)
	if err := h.verification.CommitCredentialRefresh(c.Request().Context(), sid, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// ChangePassword handles PUT /me/password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	accountID, err := currentAccountID(c)
	if err != nil {
		return err
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
