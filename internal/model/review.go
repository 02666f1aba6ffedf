package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one account's review of one restaurant. The composite unique index
// enforces at most one review per (user, restaurant) at commit time.
type Review struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_review_user_restaurant"`
	RestaurantID uuid.UUID `json:"restaurant_id" gorm:"type:char(36);not null;uniqueIndex:idx_review_user_restaurant;index"`
	Rating       int       `json:"rating" gorm:"not null"` // 1..5
	Body         string    `json:"body" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Images []ReviewImage `json:"images,omitempty" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReviewImage is an asset attached to a review.
type ReviewImage struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	ReviewID uuid.UUID `json:"-" gorm:"type:char(36);index;not null"`
	Key      string    `json:"-" gorm:"size:255;not null"`
	URL      string    `json:"url" gorm:"size:512;not null"`
}
