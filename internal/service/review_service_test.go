package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "platefinder/internal/errors"
	"platefinder/internal/model"
	"platefinder/internal/repository"
)

type reviewFixture struct {
	users       *MockUserRepository
	restaurants *MockRestaurantRepository
	reviews     *MockReviewRepository
	gateway     *fakeGateway
	svc         ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		users:       new(MockUserRepository),
		restaurants: new(MockRestaurantRepository),
		reviews:     new(MockReviewRepository),
		gateway:     newFakeGateway(),
	}
	tx := &fakeTxManager{repos: &repository.Repos{
		Users:       f.users,
		Restaurants: f.restaurants,
		Reviews:     f.reviews,
	}}
	f.svc = NewReviewService(tx, f.reviews, f.gateway, nil)
	return f
}

func reviewImages() []ImageUpload {
	return []ImageUpload{
		{Data: []byte("dish"), ContentType: "image/jpeg"},
		{Data: []byte("menu"), ContentType: "image/png"},
	}
}

func TestCreateReview(t *testing.T) {
	userID := uuid.New()
	restaurantID := uuid.New()

	t.Run("success recomputes the aggregate", func(t *testing.T) {
		f := newReviewFixture()
		f.restaurants.On("FindByID", mock.Anything, restaurantID).
			Return(&model.Restaurant{ID: restaurantID}, nil)
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(nil, gorm.ErrRecordNotFound)
		f.reviews.On("Create", mock.Anything, mock.AnythingOfType("*model.Review")).Return(nil)

		avg := decimal.NewFromFloat(4.33)
		f.reviews.On("Aggregate", mock.Anything, restaurantID).Return(avg, int64(3), nil)
		f.restaurants.On("UpdateAggregate", mock.Anything, restaurantID, avg, int64(3)).Return(nil)

		review, err := f.svc.Create(context.Background(), userID, restaurantID, 5, "great pasta", reviewImages())
		require.NoError(t, err)

		assert.Equal(t, userID, review.UserID)
		assert.Equal(t, 5, review.Rating)
		require.Len(t, review.Images, 2)
		assert.Equal(t, []byte("dish"), f.gateway.content(review.Images[0].Key))
		f.restaurants.AssertExpectations(t)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		f := newReviewFixture()
		f.restaurants.On("FindByID", mock.Anything, restaurantID).Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.Create(context.Background(), userID, restaurantID, 4, "", reviewImages())

		assert.ErrorIs(t, err, apperrors.ErrRestaurantNotFound)
		assert.Equal(t, 0, f.gateway.live())
	})

	t.Run("second review for the same restaurant", func(t *testing.T) {
		f := newReviewFixture()
		f.restaurants.On("FindByID", mock.Anything, restaurantID).
			Return(&model.Restaurant{ID: restaurantID}, nil)
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(&model.Review{ID: uuid.New()}, nil)

		_, err := f.svc.Create(context.Background(), userID, restaurantID, 4, "", reviewImages())

		assert.ErrorIs(t, err, apperrors.ErrDuplicateReview)
		// Uploads compensated, aggregate untouched.
		assert.Equal(t, 0, f.gateway.live())
		f.restaurants.AssertNotCalled(t, "UpdateAggregate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("composite unique constraint closes the pre-check race", func(t *testing.T) {
		f := newReviewFixture()
		f.restaurants.On("FindByID", mock.Anything, restaurantID).
			Return(&model.Restaurant{ID: restaurantID}, nil)
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(nil, gorm.ErrRecordNotFound)
		f.reviews.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

		_, err := f.svc.Create(context.Background(), userID, restaurantID, 4, "", reviewImages())

		assert.ErrorIs(t, err, apperrors.ErrDuplicateReview)
		assert.Equal(t, 0, f.gateway.live())
	})

	t.Run("aggregate write failure rolls everything back", func(t *testing.T) {
		f := newReviewFixture()
		f.restaurants.On("FindByID", mock.Anything, restaurantID).
			Return(&model.Restaurant{ID: restaurantID}, nil)
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(nil, gorm.ErrRecordNotFound)
		f.reviews.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.reviews.On("Aggregate", mock.Anything, restaurantID).
			Return(decimal.Zero, int64(0), assert.AnError)

		_, err := f.svc.Create(context.Background(), userID, restaurantID, 4, "", reviewImages())

		assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
		assert.Equal(t, 0, f.gateway.live())
	})
}

func TestDeleteReview(t *testing.T) {
	userID := uuid.New()
	restaurantID := uuid.New()
	reviewID := uuid.New()

	existing := func() *model.Review {
		return &model.Review{
			ID:           reviewID,
			UserID:       userID,
			RestaurantID: restaurantID,
			Images: []model.ReviewImage{
				{ReviewID: reviewID, Key: "reviews/a"},
				{ReviewID: reviewID, Key: "reviews/b"},
			},
		}
	}

	t.Run("no review to delete", func(t *testing.T) {
		f := newReviewFixture()
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(nil, gorm.ErrRecordNotFound)

		err := f.svc.Delete(context.Background(), userID, restaurantID)
		assert.ErrorIs(t, err, apperrors.ErrReviewNotFound)
	})

	t.Run("deletes row, assets and recomputes aggregate", func(t *testing.T) {
		f := newReviewFixture()
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(existing(), nil)
		f.reviews.On("Delete", mock.Anything, reviewID).Return(nil)
		f.reviews.On("Aggregate", mock.Anything, restaurantID).
			Return(decimal.Zero, int64(0), nil)
		f.restaurants.On("UpdateAggregate", mock.Anything, restaurantID, decimal.Zero, int64(0)).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), userID, restaurantID))
		assert.ElementsMatch(t, []string{"reviews/a", "reviews/b"}, f.gateway.deleted)
	})

	t.Run("a failing asset delete does not fail the operation", func(t *testing.T) {
		f := newReviewFixture()
		f.gateway.failDeleteFor = map[string]bool{"reviews/a": true}
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(existing(), nil)
		f.reviews.On("Delete", mock.Anything, reviewID).Return(nil)
		f.reviews.On("Aggregate", mock.Anything, restaurantID).
			Return(decimal.Zero, int64(0), nil)
		f.restaurants.On("UpdateAggregate", mock.Anything, restaurantID, decimal.Zero, int64(0)).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), userID, restaurantID))
		assert.Equal(t, []string{"reviews/b"}, f.gateway.deleted)
		f.reviews.AssertCalled(t, "Delete", mock.Anything, reviewID)
	})

	t.Run("row delete failure surfaces", func(t *testing.T) {
		f := newReviewFixture()
		f.reviews.On("FindByUserAndRestaurant", mock.Anything, userID, restaurantID).
			Return(existing(), nil)
		f.reviews.On("Delete", mock.Anything, reviewID).Return(assert.AnError)

		err := f.svc.Delete(context.Background(), userID, restaurantID)
		assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
	})
}
