package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"platefinder/internal/auth"
	"platefinder/internal/model"
	"platefinder/internal/repository"
	"platefinder/internal/storage"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
// WithTransaction runs the callback against the same mock so transactional
// paths can be scripted like any other call.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) IdentityAvailable(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, key, url string) error {
	args := m.Called(ctx, id, key, url)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.UserRepository) error) error {
	return fn(ctx, m)
}

// MockRestaurantRepository is a mock implementation of repository.RestaurantRepository.
type MockRestaurantRepository struct {
	mock.Mock
}

func (m *MockRestaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	args := m.Called(ctx, restaurant)
	return args.Error(0)
}

func (m *MockRestaurantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Restaurant, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepository) UpdateScalars(ctx context.Context, restaurant *model.Restaurant) error {
	args := m.Called(ctx, restaurant)
	return args.Error(0)
}

func (m *MockRestaurantRepository) ReplaceOpeningHours(ctx context.Context, restaurantID uuid.UUID, hours []model.OpeningHour) error {
	args := m.Called(ctx, restaurantID, hours)
	return args.Error(0)
}

func (m *MockRestaurantRepository) ReplaceTags(ctx context.Context, restaurantID uuid.UUID, tags []model.RestaurantTag) error {
	args := m.Called(ctx, restaurantID, tags)
	return args.Error(0)
}

func (m *MockRestaurantRepository) ReplaceCategories(ctx context.Context, restaurantID uuid.UUID, categories []model.RestaurantCategory) error {
	args := m.Called(ctx, restaurantID, categories)
	return args.Error(0)
}

func (m *MockRestaurantRepository) UpsertContact(ctx context.Context, restaurantID uuid.UUID, contact model.RestaurantContact) error {
	args := m.Called(ctx, restaurantID, contact)
	return args.Error(0)
}

func (m *MockRestaurantRepository) SetProfileImage(ctx context.Context, restaurantID uuid.UUID, key, url string) error {
	args := m.Called(ctx, restaurantID, key, url)
	return args.Error(0)
}

func (m *MockRestaurantRepository) UpdateAggregate(ctx context.Context, restaurantID uuid.UUID, avg decimal.Decimal, count int64) error {
	args := m.Called(ctx, restaurantID, avg, count)
	return args.Error(0)
}

func (m *MockRestaurantRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.RestaurantRepository) error) error {
	return fn(ctx, m)
}

// MockReviewRepository is a mock implementation of repository.ReviewRepository.
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *model.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) FindByUserAndRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) (*model.Review, error) {
	args := m.Called(ctx, userID, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) Aggregate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, int64, error) {
	args := m.Called(ctx, restaurantID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.ReviewRepository) error) error {
	return fn(ctx, m)
}

// fakeTxManager runs the transactional callback against mock repositories.
// A non-nil beginErr simulates a transaction that cannot even start.
type fakeTxManager struct {
	repos    *repository.Repos
	beginErr error
}

func (f *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos *repository.Repos) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(ctx, f.repos)
}

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

var _ auth.TokenStoreInterface = (*MockTokenStore)(nil)

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, accountID, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) RefreshTokenValid(ctx context.Context, accountID uuid.UUID, tokenID string) (bool, error) {
	args := m.Called(ctx, accountID, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string) error {
	args := m.Called(ctx, accountID, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of notify.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// memStore is an in-memory session.Store for flow tests.
type memStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, sid, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kv, ok := s.data[sid]; ok {
		if v, ok := kv[key]; ok {
			out := make([]byte, len(v))
			copy(out, v)
			return out, nil
		}
	}
	return nil, nil
}

func (s *memStore) Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[sid] == nil {
		s.data[sid] = make(map[string][]byte)
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[sid][key] = v
	return nil
}

func (s *memStore) Delete(ctx context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kv, ok := s.data[sid]; ok {
		delete(kv, key)
	}
	return nil
}

func (s *memStore) Destroy(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sid)
	return nil
}

func (s *memStore) empty(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[sid]) == 0
}

// fakeGateway is an in-memory storage.Gateway recording puts and deletes.
type fakeGateway struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	deleted []string
	seq     int

	failPutAfter  int             // fail the Nth put and later ones; 0 disables
	failDeleteFor map[string]bool // keys whose delete fails
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: make(map[string][]byte)}
}

func (g *fakeGateway) Put(ctx context.Context, data []byte, contentType, folder, overwriteKey string) (storage.Object, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	if g.failPutAfter > 0 && g.seq >= g.failPutAfter {
		return storage.Object{}, fmt.Errorf("gateway unavailable")
	}
	key := overwriteKey
	if key == "" {
		key = fmt.Sprintf("%s/obj-%d", folder, g.seq)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	g.objects[key] = stored
	g.puts = append(g.puts, key)
	return storage.Object{Key: key, URL: "https://assets.test/" + key}, nil
}

func (g *fakeGateway) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDeleteFor[key] {
		return fmt.Errorf("gateway unavailable")
	}
	delete(g.objects, key)
	g.deleted = append(g.deleted, key)
	return nil
}

func (g *fakeGateway) content(key string) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.objects[key]
}

func (g *fakeGateway) live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}
