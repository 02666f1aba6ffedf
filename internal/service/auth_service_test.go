package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"platefinder/internal/auth"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
)

func hashOf(t *testing.T, password string) *string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(h)
	return &s
}

func TestLogin(t *testing.T) {
	email := "a@x.com"

	tests := []struct {
		name    string
		user    *model.User
		findErr error
		passwd  string
	}{
		{
			name:    "unknown email",
			findErr: gorm.ErrRecordNotFound,
			passwd:  "Secret1!",
		},
		{
			name:   "external identity only",
			user:   &model.User{ID: uuid.New(), Email: email},
			passwd: "Secret1!",
		},
		{
			name:   "wrong password",
			passwd: "not-the-password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			tokens := new(MockTokenStore)
			svc := NewAuthService(users, auth.NewJWTService("test-secret"), tokens)

			user := tt.user
			if user == nil && tt.findErr == nil {
				user = &model.User{ID: uuid.New(), Email: email, PasswordHash: hashOf(t, "Secret1!")}
			}
			users.On("FindByEmail", mock.Anything, email).Return(user, tt.findErr)

			pair, got, err := svc.Login(context.Background(), email, tt.passwd)

			// Every failure mode presents identically.
			assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			assert.Nil(t, pair)
			assert.Nil(t, got)
			tokens.AssertNotCalled(t, "StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("success issues and records a token pair", func(t *testing.T) {
		users := new(MockUserRepository)
		tokens := new(MockTokenStore)
		jwtService := auth.NewJWTService("test-secret")
		svc := NewAuthService(users, jwtService, tokens)

		user := &model.User{ID: uuid.New(), Email: email, PasswordHash: hashOf(t, "Secret1!")}
		users.On("FindByEmail", mock.Anything, email).Return(user, nil)
		tokens.On("StoreRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string"), auth.RefreshTokenExpiry).Return(nil)

		pair, got, err := svc.Login(context.Background(), email, "Secret1!")
		require.NoError(t, err)
		assert.Equal(t, user, got)
		require.NotNil(t, pair)

		claims, err := jwtService.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		tokens.AssertExpectations(t)
	})
}

func TestRefresh(t *testing.T) {
	accountID := uuid.New()
	jwtService := auth.NewJWTService("test-secret")

	issue := func(t *testing.T) (string, string) {
		t.Helper()
		tokenID, refreshToken, err := jwtService.GenerateRefreshToken(accountID, "a@x.com")
		require.NoError(t, err)
		return tokenID, refreshToken
	}

	t.Run("valid token", func(t *testing.T) {
		tokens := new(MockTokenStore)
		svc := NewAuthService(new(MockUserRepository), jwtService, tokens)
		tokenID, refreshToken := issue(t)
		tokens.On("RefreshTokenValid", mock.Anything, accountID, tokenID).Return(true, nil)

		accessToken, err := svc.Refresh(context.Background(), refreshToken)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, accountID.String(), claims.UserID)
	})

	t.Run("revoked token", func(t *testing.T) {
		tokens := new(MockTokenStore)
		svc := NewAuthService(new(MockUserRepository), jwtService, tokens)
		tokenID, refreshToken := issue(t)
		tokens.On("RefreshTokenValid", mock.Anything, accountID, tokenID).Return(false, nil)

		_, err := svc.Refresh(context.Background(), refreshToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore))
		_, err := svc.Refresh(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}

func TestLogout(t *testing.T) {
	accountID := uuid.New()
	jwtService := auth.NewJWTService("test-secret")
	tokens := new(MockTokenStore)
	svc := NewAuthService(new(MockUserRepository), jwtService, tokens)

	tokenID, refreshToken, err := jwtService.GenerateRefreshToken(accountID, "a@x.com")
	require.NoError(t, err)
	tokens.On("DeleteRefreshToken", mock.Anything, accountID, tokenID).Return(nil)

	assert.NoError(t, svc.Logout(context.Background(), refreshToken))
	tokens.AssertExpectations(t)
}

func TestChangePassword(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name    string
		user    *model.User
		findErr error
		current string
		wantErr error
	}{
		{
			name:    "unknown account",
			findErr: gorm.ErrRecordNotFound,
			current: "Secret1!",
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name:    "no password set",
			user:    &model.User{ID: accountID},
			current: "Secret1!",
			wantErr: apperrors.ErrNoPasswordSet,
		},
		{
			name:    "wrong current password",
			current: "not-the-password",
			wantErr: apperrors.ErrWrongPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			svc := NewAuthService(users, auth.NewJWTService("test-secret"), new(MockTokenStore))

			user := tt.user
			if user == nil && tt.findErr == nil {
				user = &model.User{ID: accountID, PasswordHash: hashOf(t, "Secret1!")}
			}
			users.On("FindByIDForUpdate", mock.Anything, accountID).Return(user, tt.findErr)

			err := svc.ChangePassword(context.Background(), accountID, tt.current, "NewSecret1!")
			assert.ErrorIs(t, err, tt.wantErr)
			users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("success writes a hash of the new password", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := NewAuthService(users, auth.NewJWTService("test-secret"), new(MockTokenStore))

		user := &model.User{ID: accountID, PasswordHash: hashOf(t, "Secret1!")}
		users.On("FindByIDForUpdate", mock.Anything, accountID).Return(user, nil)

		var written string
		users.On("UpdatePassword", mock.Anything, accountID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { written = args.String(2) }).Return(nil)

		require.NoError(t, svc.ChangePassword(context.Background(), accountID, "Secret1!", "NewSecret1!"))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(written), []byte("NewSecret1!")))
	})
}
