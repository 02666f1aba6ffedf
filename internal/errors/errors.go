package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrDuplicateIdentity is returned when a username or email is already taken.
	ErrDuplicateIdentity = errors.New("username or email already in use")
	// ErrInvalidCredentials is returned uniformly for unknown accounts and
	// password mismatches, so accounts cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoPendingFlow is returned when a verification step is attempted without
	// the session state the previous step should have left behind.
	ErrNoPendingFlow = errors.New("no pending verification flow")
	// ErrOtpExpired is returned when a one-time passcode is submitted after its window.
	ErrOtpExpired = errors.New("code expired")
	// ErrOtpInvalid is returned when a one-time passcode does not match.
	ErrOtpInvalid = errors.New("invalid code")
	// ErrNotificationFailure is returned when the OTP could not be dispatched.
	ErrNotificationFailure = errors.New("could not send verification code")
	// ErrWrongPassword is returned when the supplied current password mismatches.
	ErrWrongPassword = errors.New("wrong password")
	// ErrNoPasswordSet is returned for external-identity-only accounts on password flows.
	ErrNoPasswordSet = errors.New("account has no password set")
	// ErrAlreadyOwnsRestaurant is returned when an owner tries to create a second restaurant.
	ErrAlreadyOwnsRestaurant = errors.New("account already owns a restaurant")
	// ErrDuplicateReview is returned when an account already reviewed the restaurant.
	ErrDuplicateReview = errors.New("review already exists for this restaurant")
	// ErrReviewNotFound is returned when no review by this account exists for the restaurant.
	ErrReviewNotFound = errors.New("review not found")
	// ErrRestaurantNotFound is returned when the restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrUnknownOrExternalOnly is returned when a reset is requested for an email
	// with no password-capable account behind it.
	ErrUnknownOrExternalOnly = errors.New("no password-based account for this email")
	// ErrStoreFailure wraps unexpected relational store faults.
	ErrStoreFailure = errors.New("store failure")
	// ErrStorageFailure wraps unexpected object storage faults.
	ErrStorageFailure = errors.New("object storage failure")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. ErrOtpInvalid and
// ErrNoPendingFlow deliberately present the same message and code so a client
// cannot probe which sessions carry a pending flow.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrDuplicateIdentity):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_IDENTITY")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrOtpInvalid), errors.Is(err, ErrNoPendingFlow):
		return NewHTTPError(http.StatusBadRequest, "verification failed", "VERIFICATION_FAILED")
	case errors.Is(err, ErrOtpExpired):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "OTP_EXPIRED")
	case errors.Is(err, ErrNotificationFailure):
		return NewHTTPError(http.StatusBadGateway, err.Error(), "NOTIFICATION_FAILURE")
	case errors.Is(err, ErrWrongPassword):
		return NewHTTPError(http.StatusForbidden, err.Error(), "WRONG_PASSWORD")
	case errors.Is(err, ErrNoPasswordSet):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "NO_PASSWORD_SET")
	case errors.Is(err, ErrAlreadyOwnsRestaurant):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_OWNS_RESTAURANT")
	case errors.Is(err, ErrDuplicateReview):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_REVIEW")
	case errors.Is(err, ErrReviewNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "REVIEW_NOT_FOUND")
	case errors.Is(err, ErrRestaurantNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "RESTAURANT_NOT_FOUND")
	case errors.Is(err, ErrUnknownOrExternalOnly):
		return NewHTTPError(http.StatusNotFound, err.Error(), "UNKNOWN_OR_EXTERNAL_ONLY")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
