package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platefinder/internal/otp"
)

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
		return kv[key], nil
	}
	return nil, nil
}

func (s *memStore) Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[sid] == nil {
		s.data[sid] = make(map[string][]byte)
	}
	s.data[sid][key] = value
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

func TestFlowsRoundTrip(t *testing.T) {
	flows := NewFlows(newMemStore())
	ctx := context.Background()

	flow, err := flows.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, flow.Empty())

	saved := &Flow{
		Kind:         KindRegistration,
		Registration: &PendingRegistration{Username: "alice", Email: "a@x.com", PasswordHash: "$2a$10$x"},
		Challenge:    &otp.Challenge{Hash: "$2a$10$y", Purpose: otp.PurposeRegistration, ExpiresAt: time.Now().Add(time.Minute)},
	}
	require.NoError(t, flows.Save(ctx, "sid-1", saved))

	loaded, err := flows.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, KindRegistration, loaded.Kind)
	require.NotNil(t, loaded.Registration)
	assert.Equal(t, "alice", loaded.Registration.Username)
	assert.Nil(t, loaded.Reset)
	assert.Nil(t, loaded.Refresh)
	assert.Equal(t, "a@x.com", loaded.Destination())

	require.NoError(t, flows.Clear(ctx, "sid-1"))
	flow, err = flows.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, flow.Empty())
}

func TestVerifiedMarker(t *testing.T) {
	var nilMarker *VerifiedMarker
	assert.True(t, nilMarker.Expired())

	assert.False(t, NewVerifiedMarker().Expired())
	assert.True(t, (&VerifiedMarker{ExpiresAt: time.Now().Add(-time.Second)}).Expired())
}

func TestFlowsAreIsolatedBySession(t *testing.T) {
	flows := NewFlows(newMemStore())
	ctx := context.Background()

	require.NoError(t, flows.Save(ctx, "sid-1", &Flow{Kind: KindPasswordReset, Reset: &PendingReset{Email: "a@x.com"}}))

	other, err := flows.Load(ctx, "sid-2")
	require.NoError(t, err)
	assert.True(t, other.Empty())
}
