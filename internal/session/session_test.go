package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bukubesar/internal/model"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var budi = model.User{ID: 7, Username: "budi", Role: model.RoleAccountant}

func TestCreateValidateRevoke(t *testing.T) {
	s := openTestStore(t, time.Hour)

	sess, err := s.Create(budi)
	require.NoError(t, err)
	_, err = uuid.Parse(sess.Token)
	assert.NoError(t, err)

	got, ok, err := s.Validate(sess.Token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "budi", got.Username)
	assert.Equal(t, model.RoleAccountant, got.Role)

	require.NoError(t, s.Revoke(sess.Token))
	_, ok, err = s.Validate(sess.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Revoke("no-such-token"))
}

func TestUnknownToken(t *testing.T) {
	s := openTestStore(t, 0)
	assert.Equal(t, DefaultTTL, s.ttl)

	_, ok, err := s.Validate("")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Validate(uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	s := openTestStore(t, time.Hour)
	now := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old, err := s.Create(budi)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	fresh, err := s.Create(budi)
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, ok, err := s.Validate(old.Token)
	require.NoError(t, err)
	assert.False(t, ok, "expired after TTL")

	_, ok, err = s.Validate(fresh.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	n, err := s.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "old was already removed by Validate")
}

func TestRevokeUser(t *testing.T) {
	s := openTestStore(t, time.Hour)

	a, err := s.Create(budi)
	require.NoError(t, err)
	_, err = s.Create(budi)
	require.NoError(t, err)
	other, err := s.Create(model.User{ID: 8, Username: "ani", Role: model.RoleViewer})
	require.NoError(t, err)

	n, err := s.RevokeUser(budi.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := s.Validate(a.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Validate(other.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}
