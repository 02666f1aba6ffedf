package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"platefinder/internal/auth"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/notify"
	"platefinder/internal/otp"
	"platefinder/internal/repository"
	"platefinder/internal/session"
)

// VerificationService drives the multi-step, OTP-gated flows. All intermediate
// state lives in session storage; the durable store is only touched on the
// terminal commit step of each flow.
type VerificationService interface {
	// Registration: NoPending -> OtpIssued -> Committed.
	RequestRegistrationOTP(ctx context.Context, sid, username, email, password string) error
	ConfirmRegistration(ctx context.Context, sid, code string) (*model.User, *auth.TokenPair, error)

	// ResendOTP reissues the current flow's passcode, whatever the flow is.
	// The previous code stops validating because the challenge slot is overwritten.
	ResendOTP(ctx context.Context, sid string) error

	// Password reset (unauthenticated): NoPending -> OtpIssued -> OtpVerified -> Committed.
	RequestPasswordReset(ctx context.Context, sid, email string) error
	VerifyResetOTP(ctx context.Context, sid, code string) error
	CommitPasswordReset(ctx context.Context, sid, newPassword string) error

	// Credential refresh (authenticated): same shape as reset, identity taken
	// from the logged-in account.
	RequestCredentialRefresh(ctx context.Context, sid string, accountID uuid.UUID) error
	VerifyRefreshOTP(ctx context.Context, sid, code string) error
	CommitCredentialRefresh(ctx context.Context, sid, newPassword string) error
}

type verificationService struct {
	users      repository.UserRepository
	flows      *session.Flows
	dispatcher notify.Dispatcher
	authSvc    AuthService
	tokenStore auth.TokenStoreInterface
}

// NewVerificationService wires the flow controller with its collaborators.
func NewVerificationService(
	users repository.UserRepository,
	flows *session.Flows,
	dispatcher notify.Dispatcher,
	authSvc AuthService,
	tokenStore auth.TokenStoreInterface,
) VerificationService {
	return &verificationService{
		users:      users,
		flows:      flows,
		dispatcher: dispatcher,
		authSvc:    authSvc,
		tokenStore: tokenStore,
	}
}

// issueChallenge generates a code, dispatches it, and returns the challenge.
// Dispatch happens before any session write so a failed send never strands
// unusable pending state.
func (s *verificationService) issueChallenge(ctx context.Context, purpose otp.Purpose, destination string) (*otp.Challenge, error) {
	code, challenge, err := otp.NewChallenge(purpose)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(otp.TTL.Minutes()))
	if err := s.dispatcher.Send(ctx, destination, "Your verification code", body); err != nil {
		log.Printf("otp dispatch failed: purpose=%s: %v", purpose, err)
		return nil, apperrors.ErrNotificationFailure
	}
	return challenge, nil
}

// RequestRegistrationOTP starts a registration flow: duplicate check, password
// hashing, OTP issue, then the pending payload is parked in session state.
func (s *verificationService) RequestRegistrationOTP(ctx context.Context, sid, username, email, password string) error {
	available, err := s.users.IdentityAvailable(ctx, username, email)
	if err != nil {
		return fmt.Errorf("%w: check identity: %v", apperrors.ErrStoreFailure, err)
	}
	if !available {
		return apperrors.ErrDuplicateIdentity
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	challenge, err := s.issueChallenge(ctx, otp.PurposeRegistration, email)
	if err != nil {
		return err
	}

	return s.flows.Save(ctx, sid, &session.Flow{
		Kind: session.KindRegistration,
		Registration: &session.PendingRegistration{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
		},
		Challenge: challenge,
	})
}

// ConfirmRegistration validates the code and promotes the pending registration
// to a durable account, exactly once. A token pair is issued for the new
// account; failure to issue one is logged but does not undo the registration.
func (s *verificationService) ConfirmRegistration(ctx context.Context, sid, code string) (*model.User, *auth.TokenPair, error) {
	flow, err := s.flows.Load(ctx, sid)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load flow: %v", apperrors.ErrStoreFailure, err)
	}
	if flow.Kind != session.KindRegistration || flow.Registration == nil || flow.Challenge == nil ||
		flow.Challenge.Purpose != otp.PurposeRegistration {
		return nil, nil, apperrors.ErrNoPendingFlow
	}

	if err := otp.Validate(code, flow.Challenge.Hash, flow.Challenge.ExpiresAt); err != nil {
		return nil, nil, err
	}

	passwordHash := flow.Registration.PasswordHash
	user := &model.User{
		Username:     flow.Registration.Username,
		Email:        flow.Registration.Email,
		PasswordHash: &passwordHash,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, apperrors.ErrDuplicateIdentity
		}
		return nil, nil, fmt.Errorf("%w: create account: %v", apperrors.ErrStoreFailure, err)
	}

	if err := s.flows.Clear(ctx, sid); err != nil {
		log.Printf("registration: clear flow for account %s: %v", user.ID, err)
	}

	pair, err := s.authSvc.EstablishSession(ctx, user)
	if err != nil {
		// The account exists; the client just has to log in manually.
		log.Printf("registration: establish session for account %s: %v", user.ID, err)
		return user, nil, nil
	}
	return user, pair, nil
}

// ResendOTP regenerates the pending flow's challenge with a fresh expiry,
// reusing the stored identity payload. Only the challenge slot is overwritten.
func (s *verificationService) ResendOTP(ctx context.Context, sid string) error {
	flow, err := s.flows.Load(ctx, sid)
	if err != nil {
		return fmt.Errorf("%w: load flow: %v", apperrors.ErrStoreFailure, err)
	}
	if flow.Empty() || flow.Challenge == nil {
		return apperrors.ErrNoPendingFlow
	}
	destination := flow.Destination()
	if destination == "" {
		return apperrors.ErrNoPendingFlow
	}

	challenge, err := s.issueChallenge(ctx, flow.Challenge.Purpose, destination)
	if err != nil {
		return err
	}
	flow.Challenge = challenge
	return s.flows.Save(ctx, sid, flow)
}

// RequestPasswordReset starts an unauthenticated reset flow for an email that
// belongs to a password-capable account.
func (s *verificationService) RequestPasswordReset(ctx context.Context, sid, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnknownOrExternalOnly
		}
		return fmt.Errorf("%w: find account: %v", apperrors.ErrStoreFailure, err)
	}
	if !user.HasPassword() {
		return apperrors.ErrUnknownOrExternalOnly
	}

	challenge, err := s.issueChallenge(ctx, otp.PurposePasswordReset, email)
	if err != nil {
		return err
	}

	return s.flows.Save(ctx, sid, &session.Flow{
		Kind:      session.KindPasswordReset,
		Reset:     &session.PendingReset{Email: email},
		Challenge: challenge,
	})
}

// VerifyResetOTP consumes the reset challenge, replacing it with a short-lived
// verified marker.
func (s *verificationService) VerifyResetOTP(ctx context.Context, sid, code string) error {
	return s.verifyChallenge(ctx, sid, code, session.KindPasswordReset, otp.PurposePasswordReset)
}

// CommitPasswordReset writes the new password, destroys the whole session and
// logs the account out everywhere else.
func (s *verificationService) CommitPasswordReset(ctx context.Context, sid, newPassword string) error {
	flow, err := s.flows.Load(ctx, sid)
	if err != nil {
		return fmt.Errorf("%w: load flow: %v", apperrors.ErrStoreFailure, err)
	}
	if flow.Kind != session.KindPasswordReset || flow.Reset == nil || flow.Verified.Expired() {
		return apperrors.ErrNoPendingFlow
	}

	user, err := s.users.FindByEmail(ctx, flow.Reset.Email)
	if err != nil {
		return fmt.Errorf("%w: find account: %v", apperrors.ErrStoreFailure, err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: update password: %v", apperrors.ErrStoreFailure, err)
	}

	s.finishCredentialChange(ctx, sid, user.ID)
	return nil
}

// RequestCredentialRefresh starts an authenticated password-change flow gated
// on an OTP sent to the account's own email.
func (s *verificationService) RequestCredentialRefresh(ctx context.Context, sid string, accountID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: find account: %v", apperrors.ErrStoreFailure, err)
	}
	if !user.HasPassword() {
		return apperrors.ErrNoPasswordSet
	}

	challenge, err := s.issueChallenge(ctx, otp.PurposeCredentialRefresh, user.Email)
	if err != nil {
		return err
	}

	return s.flows.Save(ctx, sid, &session.Flow{
		Kind:      session.KindCredentialRefresh,
		Refresh:   &session.PendingRefresh{AccountID: user.ID, Email: user.Email},
		Challenge: challenge,
	})
}

// VerifyRefreshOTP consumes the refresh challenge.
func (s *verificationService) VerifyRefreshOTP(ctx context.Context, sid, code string) error {
	return s.verifyChallenge(ctx, sid, code, session.KindCredentialRefresh, otp.PurposeCredentialRefresh)
}

// CommitCredentialRefresh writes the new password for the flow's account and
// invalidates its other sessions.
func (s *verificationService) CommitCredentialRefresh(ctx context.Context, sid, newPassword string) error {
	flow, err := s.flows.Load(ctx, sid)
	if err != nil {
		return fmt.Errorf("%w: load flow: %v", apperrors.ErrStoreFailure, err)
	}
	if flow.Kind != session.KindCredentialRefresh || flow.Refresh == nil || flow.Verified.Expired() {
		return apperrors.ErrNoPendingFlow
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, flow.Refresh.AccountID, hash); err != nil {
		return fmt.Errorf("%w: update password: %v", apperrors.ErrStoreFailure, err)
	}

	s.finishCredentialChange(ctx, sid, flow.Refresh.AccountID)
	return nil
}

// verifyChallenge validates the submitted code for the expected flow kind and
// swaps the challenge for a verified marker with its own expiry. A stale
// marker must not authorize a later commit.
func (s *verificationService) verifyChallenge(ctx context.Context, sid, code string, kind session.Kind, purpose otp.Purpose) error {
	flow, err := s.flows.Load(ctx, sid)
	if err != nil {
		return fmt.Errorf("%w: load flow: %v", apperrors.ErrStoreFailure, err)
	}
	if flow.Kind != kind || flow.Challenge == nil || flow.Challenge.Purpose != purpose {
		return apperrors.ErrNoPendingFlow
	}

	if err := otp.Validate(code, flow.Challenge.Hash, flow.Challenge.ExpiresAt); err != nil {
		return err
	}

	flow.Challenge = nil
	flow.Verified = session.NewVerifiedMarker()
	return s.flows.Save(ctx, sid, flow)
}

// finishCredentialChange destroys the caller's session and revokes every
// refresh token the account holds. The password is already written; failures
// here are logged, not surfaced.
func (s *verificationService) finishCredentialChange(ctx context.Context, sid string, accountID uuid.UUID) {
	if err := s.flows.Destroy(ctx, sid); err != nil {
		log.Printf("credential change: destroy session for account %s: %v", accountID, err)
	}
	if err := s.tokenStore.RevokeAllForAccount(ctx, accountID); err != nil {
		log.Printf("credential change: revoke sessions for account %s: %v", accountID, err)
	}
}
