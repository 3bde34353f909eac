package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("properties")
	require.NoError(t, err)

	assert.Equal(t, "properties", cfg.ServiceName)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "auth-token", cfg.Auth.CookieName)
	assert.Equal(t, "guest-access", cfg.Auth.GuestCookieName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.GuestTTL)
	assert.Equal(t, 168, cfg.JWT.ExpirationHours)
	assert.False(t, cfg.Auth.SecureCookies)
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoadProductionSecuresCookies(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("properties")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.SecureCookies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sql")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("GUEST_TTL", "2h")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("properties")
	require.NoError(t, err)

	assert.True(t, cfg.NeedsDatabase())
	assert.Equal(t, 2*time.Hour, cfg.Auth.GuestTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowOrigins)
	assert.Contains(t, cfg.DB.GetDSN(), "sslmode=disable")
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"storage", "STORAGE_DRIVER", "redis"},
		{"accounts", "ACCOUNTS_BACKEND", "ldap"},
		{"database", "DB_DRIVER", "mysql"},
		{"upload", "UPLOAD_DRIVER", "ftp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("properties")
			assert.Error(t, err)
		})
	}
}

func TestS3UploadRequiresBucket(t *testing.T) {
	t.Setenv("UPLOAD_DRIVER", "s3")
	_, err := Load("properties")
	assert.Error(t, err)

	t.Setenv("S3_BUCKET", "images")
	cfg, err := Load("properties")
	require.NoError(t, err)
	assert.Equal(t, "images", cfg.Upload.S3Bucket)
}
