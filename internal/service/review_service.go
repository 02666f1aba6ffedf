package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"platefinder/internal/cache"
	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/repository"
	"platefinder/internal/storage"
)

const reviewImageFolder = "reviews"

// ReviewService coordinates review writes: image uploads against the object
// store, then the review row, the one-review-per-account check and the
// restaurant's aggregate rating inside one transactional unit.
type ReviewService interface {
	Create(ctx context.Context, userID, restaurantID uuid.UUID, rating int, body string, images []ImageUpload) (*model.Review, error)
	// Delete removes the account's review of the restaurant. Asset deletes are
	// best-effort per object and never fail the operation.
	Delete(ctx context.Context, userID, restaurantID uuid.UUID) error
}

type reviewService struct {
	tx      repository.TxManager
	reviews repository.ReviewRepository
	gateway storage.Gateway
	cache   *cache.Client
}

// NewReviewService creates a new review service.
func NewReviewService(
	tx repository.TxManager,
	reviews repository.ReviewRepository,
	gateway storage.Gateway,
	cacheClient *cache.Client,
) ReviewService {
	return &reviewService{
		tx:      tx,
		reviews: reviews,
		gateway: gateway,
		cache:   cacheClient,
	}
}

func (s *reviewService) Create(ctx context.Context, userID, restaurantID uuid.UUID, rating int, body string, images []ImageUpload) (*model.Review, error) {
	var uploaded []storage.Object
	var imageRows []model.ReviewImage
	for _, img := range images {
		obj, err := s.gateway.Put(ctx, img.Data, img.ContentType, reviewImageFolder, "")
		if err != nil {
			deleteUploaded(ctx, s.gateway, uploaded)
			return nil, fmt.Errorf("%w: upload review image: %v", apperrors.ErrStorageFailure, err)
		}
		uploaded = append(uploaded, obj)
		imageRows = append(imageRows, model.ReviewImage{Key: obj.Key, URL: obj.URL})
	}

	review := &model.Review{
		UserID:       userID,
		RestaurantID: restaurantID,
		Rating:       rating,
		Body:         body,
		Images:       imageRows,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repos) error {
		if _, err := repos.Restaurants.FindByID(ctx, restaurantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRestaurantNotFound
			}
			return err
		}
		if _, err := repos.Reviews.FindByUserAndRestaurant(ctx, userID, restaurantID); err == nil {
			return apperrors.ErrDuplicateReview
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repos.Reviews.Create(ctx, review); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Composite unique index closed a pre-check race.
				return apperrors.ErrDuplicateReview
			}
			return err
		}

		avg, count, err := repos.Reviews.Aggregate(ctx, restaurantID)
		if err != nil {
			return err
		}
		return repos.Restaurants.UpdateAggregate(ctx, restaurantID, avg, count)
	})
	if err != nil {
		deleteUploaded(ctx, s.gateway, uploaded)
		if errors.Is(err, apperrors.ErrDuplicateReview) || errors.Is(err, apperrors.ErrRestaurantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create review: %v", apperrors.ErrStoreFailure, err)
	}

	_ = s.cache.Delete(ctx, restaurantCacheKey(restaurantID))

	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, userID, restaurantID uuid.UUID) error {
	review, err := s.reviews.FindByUserAndRestaurant(ctx, userID, restaurantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrReviewNotFound
		}
		return fmt.Errorf("%w: find review: %v", apperrors.ErrStoreFailure, err)
	}

	// Asset deletes are best-effort, per object; a failed delete is an
	// eventual orphan in the gateway, not a failed operation.
	for _, img := range review.Images {
		if err := s.gateway.Delete(ctx, img.Key); err != nil {
			log.Printf("delete review %s: asset %s not deleted: %v", review.ID, img.Key, err)
		}
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repos) error {
		if err := repos.Reviews.Delete(ctx, review.ID); err != nil {
			return err
		}
		avg, count, err := repos.Reviews.Aggregate(ctx, restaurantID)
		if err != nil {
			return err
		}
		return repos.Restaurants.UpdateAggregate(ctx, restaurantID, avg, count)
	})
	if err != nil {
		return fmt.Errorf("%w: delete review: %v", apperrors.ErrStoreFailure, err)
	}

	_ = s.cache.Delete(ctx, restaurantCacheKey(restaurantID))

	return nil
}
