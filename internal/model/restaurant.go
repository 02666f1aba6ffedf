package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImageRole tags what an attached asset is for. At most one profile image
// exists per restaurant.
type ImageRole string

const (
	ImageRoleProfile ImageRole = "profile"
	ImageRoleGallery ImageRole = "gallery"
)

// Restaurant is a resource owned by exactly one account. The unique index on
// OwnerID closes the one-restaurant-per-owner race at commit time.
type Restaurant struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:char(36);uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Address     string    `json:"address" gorm:"size:255"`
	City        string    `json:"city" gorm:"size:128;index"`

	ProfileImageKey *string `json:"-" gorm:"size:255"`
	ProfileImageURL *string `json:"profile_image_url,omitempty" gorm:"size:512"`

	// Aggregate over all reviews, recomputed inside the review transaction.
	RatingAvg   decimal.Decimal `json:"rating_avg" gorm:"type:decimal(3,2);default:0"`
	RatingCount int64           `json:"rating_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OpeningHours []OpeningHour        `json:"opening_hours,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Tags         []RestaurantTag      `json:"tags,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Categories   []RestaurantCategory `json:"categories,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Contact      *RestaurantContact   `json:"contact,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Images       []RestaurantImage    `json:"images,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// OpeningHour is one weekday's opening window, weekday 0 (Sunday) through 6.
type OpeningHour struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uuid.UUID `json:"-" gorm:"type:char(36);index;not null;uniqueIndex:idx_hours_day"`
	Weekday      int       `json:"weekday" gorm:"not null;uniqueIndex:idx_hours_day"`
	Opens        string    `json:"opens" gorm:"size:5"`  // "09:00"
	Closes       string    `json:"closes" gorm:"size:5"` // "22:30"
	Closed       bool      `json:"closed" gorm:"default:false"`
}

// RestaurantTag is a service-tag association (delivery, terrace, ...).
type RestaurantTag struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uuid.UUID `json:"-" gorm:"type:char(36);index;not null"`
	Name         string    `json:"name" gorm:"size:64;not null"`
}

// RestaurantCategory is a cuisine-category association.
type RestaurantCategory struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uuid.UUID `json:"-" gorm:"type:char(36);index;not null"`
	Name         string    `json:"name" gorm:"size:64;not null"`
}

// RestaurantContact holds the restaurant's contact record.
type RestaurantContact struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uuid.UUID `json:"-" gorm:"type:char(36);uniqueIndex;not null"`
	Phone        string    `json:"phone" gorm:"size:32"`
	Email        string    `json:"email" gorm:"size:255"`
	Website      string    `json:"website" gorm:"size:255"`
}

// RestaurantImage is an asset attached to a restaurant.
type RestaurantImage struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uuid.UUID `json:"-" gorm:"type:char(36);index;not null"`
	Key          string    `json:"-" gorm:"size:255;not null"`
	URL          string    `json:"url" gorm:"size:512;not null"`
	Role         ImageRole `json:"role" gorm:"size:16;not null"`
}
