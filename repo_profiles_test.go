package identity_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	identity "github.com/smartlocal/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateProfiles = `CREATE TABLE profiles (
    id TEXT NOT NULL PRIMARY KEY,
    display_name TEXT,
    avatar_url TEXT,
    credits INTEGER NOT NULL,
    is_verified INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
	sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_email_verified INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec(sqliteCreateProfiles)
	require.NoError(t, err)
	_, err = db.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})

	return db
}

func TestProfilesRepository_GetByUserIDNotFound(t *testing.T) {
	repo := identity.NewProfilesRepository(setupTestDB(t))

	_, err := repo.GetByUserID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, identity.IsProfileNotFound(err))
}

func TestProfilesRepository_ProvisionCreatesDefaultRow(t *testing.T) {
	repo := identity.NewProfilesRepository(setupTestDB(t))
	userID := uuid.New()

	profile, err := repo.Provision(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, identity.DefaultCredits, profile.Credits)
	assert.False(t, profile.Verified)

	found, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.ID)
	assert.Equal(t, identity.DefaultCredits, found.Credits)
}

func TestProfilesRepository_ProvisionIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := identity.NewProfilesRepository(db)
	userID := uuid.New()

	first, err := repo.Provision(context.Background(), userID)
	require.NoError(t, err)

	// Simulate a profile the user has since customized.
	_, err = db.NewUpdate().
		Model((*identity.Profile)(nil)).
		Set("display_name = ?", "Ada").
		Set("credits = ?", 7).
		Where("id = ?", userID).
		Exec(context.Background())
	require.NoError(t, err)

	second, err := repo.Provision(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.DisplayName, "provision must return the existing row untouched")
	assert.Equal(t, 7, second.Credits, "provision must not reset credits")

	count, err := db.NewSelect().Model((*identity.Profile)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
