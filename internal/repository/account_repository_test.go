package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormAccounts(t *testing.T) *GormAccounts {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "accounts.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo, err := NewGormAccounts(db)
	require.NoError(t, err)
	return repo
}

func repositories(t *testing.T) map[string]AccountRepository {
	return map[string]AccountRepository{
		"store": NewStoreAccounts(store.New(store.NewMemoryBackend())),
		"gorm":  newGormAccounts(t),
	}
}

func TestUsers(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.FindUserByEmail(ctx, "a@example.com")
			assert.ErrorIs(t, err, ErrNotFound)

			a, err := repo.CreateUser(ctx, model.User{Email: "a@example.com", Name: "A", Role: model.RoleStaff, Base: model.Base{CompanyID: "c1"}})
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			_, err = repo.CreateUser(ctx, model.User{Email: "b@example.com", Name: "B", Role: model.RoleSuperAdmin})
			require.NoError(t, err)

			got, err := repo.FindUserByEmail(ctx, "A@Example.com")
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)

			byID, err := repo.FindUser(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, "A", byID.Name)

			_, err = repo.FindUser(ctx, "user-missing")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := repo.ListUsers(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 2)

			scoped, err := repo.ListUsers(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, scoped, 1)
			assert.Equal(t, a.ID, scoped[0].ID)
		})
	}
}

func TestCompanies(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			c, err := repo.CreateCompany(ctx, model.Company{Name: "Acme", Domain: "acme.test", Status: model.CompanyActive})
			require.NoError(t, err)

			got, err := repo.FindCompany(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, "Acme", got.Name)

			byDomain, err := repo.FindCompanyByDomain(ctx, "ACME.test")
			require.NoError(t, err)
			assert.Equal(t, c.ID, byDomain.ID)

			_, err = repo.FindCompanyByDomain(ctx, "other.test")
			assert.ErrorIs(t, err, ErrNotFound)

			list, err := repo.ListCompanies(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestGormListsNewestFirst(t *testing.T) {
	repo := newGormAccounts(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	for i, email := range []string{"old@example.com", "new@example.com"} {
		at := base.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return at }
		_, err := repo.CreateUser(ctx, model.User{Email: email, Role: model.RoleStaff})
		require.NoError(t, err)
	}

	users, err := repo.ListUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "new@example.com", users[0].Email)
}
