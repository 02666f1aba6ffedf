package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"platefinder/internal/auth"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/repository"
)

const bcryptCost = 10

// AuthService handles credential verification and session establishment.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	// EstablishSession issues a token pair for an already-verified account.
	// Registration commit shares this side effect with login.
	EstablishSession(ctx context.Context, user *model.User) (*auth.TokenPair, error)
	// ChangePassword verifies the current password and replaces it within one
	// transactional unit, closing the verify-then-write race.
	ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and issues a token pair. Absent accounts,
// external-identity-only accounts and password mismatches all return the same
// error so accounts cannot be enumerated.
func (s *authService) Login(ctx context.Context, email, password string) (*auth.TokenPair, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if !user.HasPassword() {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.EstablishSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// EstablishSession issues an access/refresh pair and records the refresh token.
func (s *authService) EstablishSession(ctx context.Context, user *model.User) (*auth.TokenPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, user.ID, tokenID, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &auth.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh validates a refresh token and returns a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", apperrors.ErrInvalidCredentials
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	valid, err := s.tokenStore.RefreshTokenValid(ctx, accountID, claims.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrStoreFailure, err)
	}
	if !valid {
		return "", apperrors.ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(accountID, claims.Email)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return apperrors.ErrInvalidCredentials
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return s.tokenStore.DeleteRefreshToken(ctx, accountID, claims.ID)
}

// ChangePassword verifies and replaces the password inside one transaction,
// with a row lock on the account.
func (s *authService) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	return s.users.WithTransaction(ctx, func(ctx context.Context, txUsers repository.UserRepository) error {
		user, err := txUsers.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInvalidCredentials
			}
			return fmt.Errorf("%w: %v", apperrors.ErrStoreFailure, err)
		}
		if !user.HasPassword() {
			return apperrors.ErrNoPasswordSet
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword)); err != nil {
			return apperrors.ErrWrongPassword
		}

		hash, err := hashPassword(newPassword)
		if err != nil {
			return err
		}
		return txUsers.UpdatePassword(ctx, accountID, hash)
	})
}
