package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"platefinder/internal/cache"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/repository"
	"platefinder/internal/storage"
)

const (
	restaurantProfileFolder = "restaurants/profile"
	restaurantGalleryFolder = "restaurants/gallery"
	restaurantCacheTTL      = 5 * time.Minute
)

// HoursInput is one weekday's opening window.
type HoursInput struct {
	Weekday int
	Opens   string
	Closes  string
	Closed  bool
}

// ContactInput is the restaurant's contact record.
type ContactInput struct {
	Phone   string
	Email   string
	Website string
}

// CreateRestaurantInput carries everything a restaurant is created with.
type CreateRestaurantInput struct {
	Name        string
	Description string
	Address     string
	City        string
	Hours       []HoursInput
	Tags        []string
	Categories  []string
	Contact     ContactInput
	Profile     *ImageUpload
	Gallery     []ImageUpload
}

// UpdateRestaurantInput carries a full replacement of the restaurant's data.
// Profile is only re-uploaded when supplied; GalleryReplacements maps existing
// asset identifiers to new content, overwritten in place.
type UpdateRestaurantInput struct {
	Name                string
	Description         string
	Address             string
	City                string
	Hours               []HoursInput
	Tags                []string
	Categories          []string
	Contact             ContactInput
	Profile             *ImageUpload
	GalleryReplacements map[string]ImageUpload
}

// RestaurantService coordinates restaurant writes across the relational store
// and the object store: uploads first, one transactional unit second,
// compensating deletes when the transaction fails.
type RestaurantService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateRestaurantInput) (*model.Restaurant, error)
	Update(ctx context.Context, ownerID, restaurantID uuid.UUID, in UpdateRestaurantInput) (*model.Restaurant, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
}

type restaurantService struct {
	tx          repository.TxManager
	restaurants repository.RestaurantRepository
	gateway     storage.Gateway
	cache       *cache.Client
}

// NewRestaurantService creates a new restaurant service.
func NewRestaurantService(
	tx repository.TxManager,
	restaurants repository.RestaurantRepository,
	gateway storage.Gateway,
	cacheClient *cache.Client,
) RestaurantService {
	return &restaurantService{
		tx:          tx,
		restaurants: restaurants,
		gateway:     gateway,
		cache:       cacheClient,
	}
}

func restaurantCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("restaurant:%s", id)
}

// weekRows normalizes the input into exactly one row per weekday 0-6; weekdays
// without input are stored closed.
func weekRows(hours []HoursInput) []model.OpeningHour {
	byDay := make(map[int]HoursInput, len(hours))
	for _, h := range hours {
		if h.Weekday >= 0 && h.Weekday <= 6 {
			byDay[h.Weekday] = h
		}
	}
	rows := make([]model.OpeningHour, 0, 7)
	for day := 0; day <= 6; day++ {
		if h, ok := byDay[day]; ok {
			rows = append(rows, model.OpeningHour{Weekday: day, Opens: h.Opens, Closes: h.Closes, Closed: h.Closed})
		} else {
			rows = append(rows, model.OpeningHour{Weekday: day, Closed: true})
		}
	}
	return rows
}

func tagRows(names []string) []model.RestaurantTag {
	rows := make([]model.RestaurantTag, 0, len(names))
	for _, n := range names {
		rows = append(rows, model.RestaurantTag{Name: n})
	}
	return rows
}

func categoryRows(names []string) []model.RestaurantCategory {
	rows := make([]model.RestaurantCategory, 0, len(names))
	for _, n := range names {
		rows = append(rows, model.RestaurantCategory{Name: n})
	}
	return rows
}

// Create uploads the profile and gallery images, then creates the restaurant,
// its opening hours, tag and category associations and contact record, and
// promotes the owner's role, all in one transactional unit. Uploaded objects
// are deleted when the transaction fails.
func (s *restaurantService) Create(ctx context.Context, ownerID uuid.UUID, in CreateRestaurantInput) (*model.Restaurant, error) {
	var uploaded []storage.Object
	var images []model.RestaurantImage
	var profileKey, profileURL *string

	if in.Profile != nil {
		obj, err := s.gateway.Put(ctx, in.Profile.Data, in.Profile.ContentType, restaurantProfileFolder, "")
		if err != nil {
			return nil, fmt.Errorf("%w: upload profile image: %v", apperrors.ErrStorageFailure, err)
		}
		uploaded = append(uploaded, obj)
		images = append(images, model.RestaurantImage{Key: obj.Key, URL: obj.URL, Role: model.ImageRoleProfile})
		profileKey, profileURL = &obj.Key, &obj.URL
	}
	for _, img := range in.Gallery {
		obj, err := s.gateway.Put(ctx, img.Data, img.ContentType, restaurantGalleryFolder, "")
		if err != nil {
			deleteUploaded(ctx, s.gateway, uploaded)
			return nil, fmt.Errorf("%w: upload gallery image: %v", apperrors.ErrStorageFailure, err)
		}
		uploaded = append(uploaded, obj)
		images = append(images, model.RestaurantImage{Key: obj.Key, URL: obj.URL, Role: model.ImageRoleGallery})
	}

	restaurant := &model.Restaurant{
		OwnerID:         ownerID,
		Name:            in.Name,
		Description:     in.Description,
		Address:         in.Address,
		City:            in.City,
		ProfileImageKey: profileKey,
		ProfileImageURL: profileURL,
		OpeningHours:    weekRows(in.Hours),
		Tags:            tagRows(in.Tags),
		Categories:      categoryRows(in.Categories),
		Contact: &model.RestaurantContact{
			Phone:   in.Contact.Phone,
			Email:   in.Contact.Email,
			Website: in.Contact.Website,
		},
		Images: images,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repos) error {
		if _, err := repos.Restaurants.FindByOwner(ctx, ownerID); err == nil {
			return apperrors.ErrAlreadyOwnsRestaurant
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repos.Restaurants.Create(ctx, restaurant); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Unique index on owner_id closed a pre-check race.
				return apperrors.ErrAlreadyOwnsRestaurant
			}
			return err
		}

		return repos.Users.UpdateRole(ctx, ownerID, model.RoleOwner)
	})
	if err != nil {
		deleteUploaded(ctx, s.gateway, uploaded)
		if errors.Is(err, apperrors.ErrAlreadyOwnsRestaurant) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create restaurant: %v", apperrors.ErrStoreFailure, err)
	}

	return restaurant, nil
}

// Update replaces the restaurant's scalar fields and child rows in one
// transactional unit with full-replace semantics, then performs the conditional
// image re-uploads outside it, overwriting by identifier.
func (s *restaurantService) Update(ctx context.Context, ownerID, restaurantID uuid.UUID, in UpdateRestaurantInput) (*model.Restaurant, error) {
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("%w: find restaurant: %v", apperrors.ErrStoreFailure, err)
	}
	if restaurant.OwnerID != ownerID {
		return nil, apperrors.ErrRestaurantNotFound
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repos) error {
		restaurant.Name = in.Name
		restaurant.Description = in.Description
		restaurant.Address = in.Address
		restaurant.City = in.City
		if err := repos.Restaurants.UpdateScalars(ctx, restaurant); err != nil {
			return err
		}
		if err := repos.Restaurants.ReplaceOpeningHours(ctx, restaurantID, weekRows(in.Hours)); err != nil {
			return err
		}
		if err := repos.Restaurants.ReplaceTags(ctx, restaurantID, tagRows(in.Tags)); err != nil {
			return err
		}
		if err := repos.Restaurants.ReplaceCategories(ctx, restaurantID, categoryRows(in.Categories)); err != nil {
			return err
		}
		return repos.Restaurants.UpsertContact(ctx, restaurantID, model.RestaurantContact{
			Phone:   in.Contact.Phone,
			Email:   in.Contact.Email,
			Website: in.Contact.Website,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: update restaurant: %v", apperrors.ErrStoreFailure, err)
	}

	if err := s.applyImageUpdates(ctx, restaurant, in); err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, restaurantCacheKey(restaurantID))

	return s.restaurants.FindByID(ctx, restaurantID)
}

// applyImageUpdates runs after the transaction: it only touches the gateway,
// overwriting identifiers the record already references.
func (s *restaurantService) applyImageUpdates(ctx context.Context, restaurant *model.Restaurant, in UpdateRestaurantInput) error {
	if in.Profile != nil {
		overwriteKey := ""
		if restaurant.ProfileImageKey != nil {
			overwriteKey = *restaurant.ProfileImageKey
		}
		obj, err := s.gateway.Put(ctx, in.Profile.Data, in.Profile.ContentType, restaurantProfileFolder, overwriteKey)
		if err != nil {
			return fmt.Errorf("%w: upload profile image: %v", apperrors.ErrStorageFailure, err)
		}
		if overwriteKey == "" {
			// First profile image for this restaurant: record the new identifier.
			if err := s.restaurants.WithTransaction(ctx, func(ctx context.Context, repo repository.RestaurantRepository) error {
				restaurant.ProfileImageKey = &obj.Key
				restaurant.ProfileImageURL = &obj.URL
				return repo.SetProfileImage(ctx, restaurant.ID, obj.Key, obj.URL)
			}); err != nil {
				if derr := s.gateway.Delete(ctx, obj.Key); derr != nil {
					log.Printf("compensating delete failed for object %s: %v", obj.Key, derr)
				}
				return fmt.Errorf("%w: record profile image: %v", apperrors.ErrStoreFailure, err)
			}
		}
	}

	if len(in.GalleryReplacements) == 0 {
		return nil
	}
	owned := make(map[string]bool, len(restaurant.Images))
	for _, img := range restaurant.Images {
		if img.Role == model.ImageRoleGallery {
			owned[img.Key] = true
		}
	}
	for key, img := range in.GalleryReplacements {
		if !owned[key] {
			log.Printf("update restaurant %s: ignoring replacement for unknown gallery key %s", restaurant.ID, key)
			continue
		}
		if _, err := s.gateway.Put(ctx, img.Data, img.ContentType, restaurantGalleryFolder, key); err != nil {
			return fmt.Errorf("%w: replace gallery image %s: %v", apperrors.ErrStorageFailure, key, err)
		}
	}
	return nil
}

// Get returns the restaurant with children, read through the cache.
func (s *restaurantService) Get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	if data, _ := s.cache.Get(ctx, restaurantCacheKey(id)); data != nil {
		var cached model.Restaurant
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	restaurant, err := s.restaurants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("%w: find restaurant: %v", apperrors.ErrStoreFailure, err)
	}

	if payload, err := json.Marshal(restaurant); err == nil {
		_ = s.cache.Set(ctx, restaurantCacheKey(id), payload, restaurantCacheTTL)
	}
	return restaurant, nil
}
