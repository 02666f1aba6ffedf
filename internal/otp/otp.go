package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "platefinder/internal/errors"
)

const (
	// CodeLength is the number of digits in a generated passcode.
	CodeLength = 5
	// TTL is the validity window of a passcode after issuance.
	TTL = 5 * time.Minute

	bcryptCost = 10
)

// Purpose tags a challenge so a code issued for one flow cannot be consumed by another.
type Purpose string

const (
	PurposeRegistration      Purpose = "registration"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeCredentialRefresh Purpose = "credential_refresh"
)

// Challenge is the stored half of an issued passcode: the salted hash, its
// purpose and its expiry. The plaintext code is only ever held by the
// notification channel. Challenges live in session state, never in the
// durable store.
type Challenge struct {
	Hash      string    `json:"hash"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Generate returns a zero-padded numeric code of CodeLength digits from the
// platform CSPRNG.
func Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// NewChallenge generates a fresh code and its challenge for the given purpose.
func NewChallenge(purpose Purpose) (code string, ch *Challenge, err error) {
	code, err = Generate()
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash otp: %w", err)
	}
	return code, &Challenge{
		Hash:      string(hash),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(TTL),
	}, nil
}

// Validate checks a submitted code against a stored hash and expiry. The engine
// is stateless and does not enforce single-use; the caller must clear or replace
// the challenge after a successful validation. bcrypt's comparison is constant
// time with respect to the hash.
func Validate(submitted, hash string, expiresAt time.Time) error {
	if time.Now().After(expiresAt) {
		return apperrors.ErrOtpExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(submitted)); err != nil {
		return apperrors.ErrOtpInvalid
	}
	return nil
}
