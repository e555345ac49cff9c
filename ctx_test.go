package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	identity "github.com/smartlocal/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	user := &identity.User{ID: uuid.New(), Email: "ada@example.com"}

	ctx := identity.WithUserContext(context.Background(), user)

	got, ok := identity.UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)
}

func TestUserFromContextMissing(t *testing.T) {
	got, ok := identity.UserFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSnapshotContextRoundTrip(t *testing.T) {
	userID := uuid.New()
	snap := identity.Snapshot{
		Session: newSession(userID, "ada@example.com"),
		User:    &identity.User{ID: userID, Email: "ada@example.com"},
	}

	ctx := identity.WithSnapshotContext(context.Background(), snap)

	got, ok := identity.SnapshotFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, snap, got)
	assert.True(t, got.Authenticated())
}

func TestSnapshotFromContextMissing(t *testing.T) {
	_, ok := identity.SnapshotFromContext(context.Background())
	assert.False(t, ok)
}
