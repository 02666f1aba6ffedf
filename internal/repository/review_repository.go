package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"platefinder/internal/model"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByUserAndRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) (*model.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Aggregate computes the average rating and count over all reviews of the
	// restaurant. The average is zero when no reviews exist.
	Aggregate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, int64, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ReviewRepository) error) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository builds a GORM-backed repository.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) FindByUserAndRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Preload("Images").
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete removes the review row; image rows cascade.
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("review_id = ?", id).
		Delete(&model.ReviewImage{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Review{}).Error
}

func (r *reviewRepository) Aggregate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, int64, error) {
	var row struct {
		Avg *float64
		Cnt int64
	}
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS cnt").
		Where("restaurant_id = ?", restaurantID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	if row.Avg == nil {
		return decimal.Zero, 0, nil
	}
	return decimal.NewFromFloat(*row.Avg).Round(2), row.Cnt, nil
}

// WithTransaction executes a function within a database transaction.
func (r *reviewRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo ReviewRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &reviewRepository{db: tx})
	})
}
