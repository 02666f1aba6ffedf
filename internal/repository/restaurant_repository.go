package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"platefinder/internal/model"
)

// RestaurantRepository defines persistence operations for restaurants and
// their child rows.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *model.Restaurant) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Restaurant, error)
	// UpdateScalars replaces the restaurant's own columns, leaving child rows alone.
	UpdateScalars(ctx context.Context, restaurant *model.Restaurant) error
	// Replace* implement full-replace semantics: delete all rows, reinsert.
	ReplaceOpeningHours(ctx context.Context, restaurantID uuid.UUID, hours []model.OpeningHour) error
	ReplaceTags(ctx context.Context, restaurantID uuid.UUID, tags []model.RestaurantTag) error
	ReplaceCategories(ctx context.Context, restaurantID uuid.UUID, categories []model.RestaurantCategory) error
	UpsertContact(ctx context.Context, restaurantID uuid.UUID, contact model.RestaurantContact) error
	// SetProfileImage records a newly minted profile image identifier, both on
	// the restaurant row and as an attached image row with the profile role.
	SetProfileImage(ctx context.Context, restaurantID uuid.UUID, key, url string) error
	UpdateAggregate(ctx context.Context, restaurantID uuid.UUID, avg decimal.Decimal, count int64) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo RestaurantRepository) error) error
}

type restaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository builds a GORM-backed repository.
func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

// Create inserts the restaurant and any populated child slices in one go.
func (r *restaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	err := r.db.WithContext(ctx).
		Preload("OpeningHours").
		Preload("Tags").
		Preload("Categories").
		Preload("Contact").
		Preload("Images").
		Where("id = ?", id).First(&restaurant).Error
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) UpdateScalars(ctx context.Context, restaurant *model.Restaurant) error {
	return r.db.WithContext(ctx).Model(&model.Restaurant{}).
		Where("id = ?", restaurant.ID).
		Updates(map[string]interface{}{
			"name":        restaurant.Name,
			"description": restaurant.Description,
			"address":     restaurant.Address,
			"city":        restaurant.City,
		}).Error
}

func (r *restaurantRepository) ReplaceOpeningHours(ctx context.Context, restaurantID uuid.UUID, hours []model.OpeningHour) error {
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).
		Delete(&model.OpeningHour{}).Error; err != nil {
		return err
	}
	if len(hours) == 0 {
		return nil
	}
	for i := range hours {
		hours[i].ID = 0
		hours[i].RestaurantID = restaurantID
	}
	return r.db.WithContext(ctx).Create(&hours).Error
}

func (r *restaurantRepository) ReplaceTags(ctx context.Context, restaurantID uuid.UUID, tags []model.RestaurantTag) error {
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).
		Delete(&model.RestaurantTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	for i := range tags {
		tags[i].ID = 0
		tags[i].RestaurantID = restaurantID
	}
	return r.db.WithContext(ctx).Create(&tags).Error
}

func (r *restaurantRepository) ReplaceCategories(ctx context.Context, restaurantID uuid.UUID, categories []model.RestaurantCategory) error {
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).
		Delete(&model.RestaurantCategory{}).Error; err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}
	for i := range categories {
		categories[i].ID = 0
		categories[i].RestaurantID = restaurantID
	}
	return r.db.WithContext(ctx).Create(&categories).Error
}

func (r *restaurantRepository) UpsertContact(ctx context.Context, restaurantID uuid.UUID, contact model.RestaurantContact) error {
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).
		Delete(&model.RestaurantContact{}).Error; err != nil {
		return err
	}
	contact.ID = 0
	contact.RestaurantID = restaurantID
	return r.db.WithContext(ctx).Create(&contact).Error
}

func (r *restaurantRepository) SetProfileImage(ctx context.Context, restaurantID uuid.UUID, key, url string) error {
	err := r.db.WithContext(ctx).Model(&model.Restaurant{}).
		Where("id = ?", restaurantID).
		Updates(map[string]interface{}{"profile_image_key": key, "profile_image_url": url}).Error
	if err != nil {
		return err
	}
	// One profile-role image per restaurant.
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND role = ?", restaurantID, model.ImageRoleProfile).
		Delete(&model.RestaurantImage{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model.RestaurantImage{
		RestaurantID: restaurantID,
		Key:          key,
		URL:          url,
		Role:         model.ImageRoleProfile,
	}).Error
}

func (r *restaurantRepository) UpdateAggregate(ctx context.Context, restaurantID uuid.UUID, avg decimal.Decimal, count int64) error {
	return r.db.WithContext(ctx).Model(&model.Restaurant{}).
		Where("id = ?", restaurantID).
		Updates(map[string]interface{}{"rating_avg": avg, "rating_count": count}).Error
}

// WithTransaction executes a function within a database transaction.
func (r *restaurantRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo RestaurantRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &restaurantRepository{db: tx})
	})
}
