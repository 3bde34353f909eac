package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := Open(&config.DBConfig{
		Driver:          "sqlite",
		SQLitePath:      path,
		ConnMaxLifetime: time.Hour,
		LogLevel:        logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db, &widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
