package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role distinguishes standard users from restaurant owners.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
)

// User represents an account. PasswordHash is nil for accounts that only
// authenticate through an external identity provider; such accounts cannot use
// password flows.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash *string   `json:"-" gorm:"size:255"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"size:16;default:'user';index"`
	AvatarKey    *string   `json:"-" gorm:"size:255"`
	AvatarURL    *string   `json:"avatar_url,omitempty" gorm:"size:512"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate via password flows.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
