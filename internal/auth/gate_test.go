package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/model"
)

type fakeStore struct {
	keys  []model.ApiKey
	users map[uuid.UUID]*model.User
}

func (f *fakeStore) FindCandidatesByPrefix(_ context.Context, prefix string) ([]model.ApiKey, error) {
	var out []model.ApiKey
	for _, k := range f.keys {
		out = append(out, k)
	}
	_ = prefix
	return out, nil
}

func (f *fakeStore) FindUser(_ context.Context, userID uuid.UUID) (*model.User, error) {
	return f.users[userID], nil
}

type alwaysAllow struct{}

func (alwaysAllow) Allow(context.Context, string, int) (bool, time.Duration, error) {
	return true, 0, nil
}

func TestAuthGate_AcceptsValidActiveKey(t *testing.T) {
	secret := "hea_0123456789abcdef0123456789abcdef"
	hash, err := HashSecret(secret, testAuthCfg)
	require.NoError(t, err)

	userID := uuid.New()
	keyID := uuid.New()
	store := &fakeStore{
		keys: []model.ApiKey{{ID: keyID, UserID: userID, SecretHash: hash, Active: true}},
		users: map[uuid.UUID]*model.User{
			userID: {ID: userID, Active: true},
		},
	}
	gate := NewAuthGate(store, alwaysAllow{}, NewAuditLogger(logrus.New(), false), config.AuthConfig{DefaultRateLimitPerHour: 100}, nil)

	key, err := gate.Authenticate(context.Background(), "Bearer "+secret)
	require.NoError(t, err)
	assert.Equal(t, keyID, key.ID)
}

func TestAuthGate_RejectsMalformedHeader(t *testing.T) {
	gate := NewAuthGate(&fakeStore{}, alwaysAllow{}, NewAuditLogger(logrus.New(), false), config.AuthConfig{}, nil)
	_, err := gate.Authenticate(context.Background(), "not-a-bearer-token")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestAuthGate_RejectsInactiveKey(t *testing.T) {
	secret := "hea_0123456789abcdef0123456789abcdef"
	hash, _ := HashSecret(secret, testAuthCfg)
	userID := uuid.New()
	store := &fakeStore{
		keys:  []model.ApiKey{{ID: uuid.New(), UserID: userID, SecretHash: hash, Active: false}},
		users: map[uuid.UUID]*model.User{userID: {ID: userID, Active: true}},
	}
	gate := NewAuthGate(store, alwaysAllow{}, NewAuditLogger(logrus.New(), false), config.AuthConfig{}, nil)

	_, err := gate.Authenticate(context.Background(), "Bearer "+secret)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestAuthGate_RejectsInactiveOwningUser(t *testing.T) {
	secret := "hea_0123456789abcdef0123456789abcdef"
	hash, _ := HashSecret(secret, testAuthCfg)
	userID := uuid.New()
	store := &fakeStore{
		keys:  []model.ApiKey{{ID: uuid.New(), UserID: userID, SecretHash: hash, Active: true}},
		users: map[uuid.UUID]*model.User{userID: {ID: userID, Active: false}},
	}
	gate := NewAuthGate(store, alwaysAllow{}, NewAuditLogger(logrus.New(), false), config.AuthConfig{}, nil)

	_, err := gate.Authenticate(context.Background(), "Bearer "+secret)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}
