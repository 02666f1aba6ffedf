package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/repository"
	"platefinder/internal/storage"
)

const avatarFolder = "avatars"

// ProfileService mutates account profile data that spans the relational store
// and the object store.
type ProfileService interface {
	// UpdateProfilePicture uploads the new picture, overwriting the existing
	// object in place when the account already has one, then updates the record.
	UpdateProfilePicture(ctx context.Context, accountID uuid.UUID, image ImageUpload) (*model.User, error)
}

type profileService struct {
	users   repository.UserRepository
	gateway storage.Gateway
}

// NewProfileService creates a new profile service.
func NewProfileService(users repository.UserRepository, gateway storage.Gateway) ProfileService {
	return &profileService{users: users, gateway: gateway}
}

func (s *profileService) UpdateProfilePicture(ctx context.Context, accountID uuid.UUID, image ImageUpload) (*model.User, error) {
	user, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: find account: %v", apperrors.ErrStoreFailure, err)
	}

	// Reuse the existing identifier so the gateway overwrites instead of
	// accumulating orphans.
	overwriteKey := ""
	if user.AvatarKey != nil {
		overwriteKey = *user.AvatarKey
	}

	obj, err := s.gateway.Put(ctx, image.Data, image.ContentType, avatarFolder, overwriteKey)
	if err != nil {
		return nil, fmt.Errorf("%w: upload avatar: %v", apperrors.ErrStorageFailure, err)
	}

	if err := s.users.UpdateAvatar(ctx, accountID, obj.Key, obj.URL); err != nil {
		// Only compensate for a freshly minted object; deleting an overwritten
		// key would destroy the previous picture too.
		if overwriteKey == "" {
			if derr := s.gateway.Delete(ctx, obj.Key); derr != nil {
				log.Printf("compensating delete failed for avatar %s: %v", obj.Key, derr)
			}
		}
		return nil, fmt.Errorf("%w: update avatar: %v", apperrors.ErrStoreFailure, err)
	}

	user.AvatarKey = &obj.Key
	user.AvatarURL = &obj.URL
	return user, nil
}
