package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository bound to one transaction, for mutations that
// must touch several aggregates atomically (restaurant creation promotes the
// owner's role; review creation writes the restaurant's aggregate rating).
type Repos struct {
	Users       UserRepository
	Restaurants RestaurantRepository
	Reviews     ReviewRepository
}

// TxManager runs a batch of repository operations as one transactional unit.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repos) error) error
}

type txManager struct {
	db *gorm.DB
}

// NewTxManager builds a TxManager over the shared GORM handle.
func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Repos{
			Users:       NewUserRepository(tx),
			Restaurants: NewRestaurantRepository(tx),
			Reviews:     NewReviewRepository(tx),
		})
	})
}
