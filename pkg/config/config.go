package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	StaticDir       string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// AuthConfig holds session cookie settings
type AuthConfig struct {
	CookieName      string
	GuestCookieName string
	GuestTTL        time.Duration
	SecureCookies   bool
	AdminEmail      string
	AdminPassword   string
	BcryptCost      int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// StorageConfig selects where record collections live
type StorageConfig struct {
	Driver          string // memory, file or sql
	FilePath        string
	SeedFile        string
	AccountsBackend string // store or sql
}

// UploadConfig selects where uploaded images are written
type UploadConfig struct {
	Driver       string // fs or s3
	Dir          string
	PublicPrefix string
	MaxBytes     int64
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3PathStyle  bool
	S3AccessKey  string
	S3SecretKey  string
	S3PublicURL  string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Auth        AuthConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Storage     StorageConfig
	Upload      UploadConfig
}

// Load loads configuration from the environment, reading .env first when present
func Load(serviceName string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", serviceName),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", ".data/properties.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             env,
			StaticDir:       getEnv("STATIC_DIR", "web"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowOrigins:    getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 7*24),
		},
		Auth: AuthConfig{
			CookieName:      getEnv("AUTH_COOKIE_NAME", "auth-token"),
			GuestCookieName: getEnv("GUEST_COOKIE_NAME", "guest-access"),
			GuestTTL:        getEnvAsDuration("GUEST_TTL", 24*time.Hour),
			SecureCookies:   getEnvAsBool("AUTH_SECURE_COOKIES", env == "production"),
			AdminEmail:      getEnv("ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:   getEnv("ADMIN_PASSWORD", "admin123"),
			BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", serviceName),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "file"),
			FilePath:        getEnv("STORAGE_FILE_PATH", ".data/storage.json"),
			SeedFile:        getEnv("STORAGE_SEED_FILE", ""),
			AccountsBackend: getEnv("ACCOUNTS_BACKEND", "store"),
		},
		Upload: UploadConfig{
			Driver:       getEnv("UPLOAD_DRIVER", "fs"),
			Dir:          getEnv("UPLOAD_DIR", "public/uploads"),
			PublicPrefix: getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads"),
			MaxBytes:     int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
			S3Bucket:     getEnv("S3_BUCKET", ""),
			S3Region:     getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:   getEnv("S3_ENDPOINT", ""),
			S3PathStyle:  getEnvAsBool("S3_PATH_STYLE", false),
			S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
			S3PublicURL:  getEnv("S3_PUBLIC_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects driver selections the service cannot honour
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "sql":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Storage.AccountsBackend {
	case "store", "sql":
	default:
		return fmt.Errorf("unsupported ACCOUNTS_BACKEND %q", c.Storage.AccountsBackend)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Upload.Driver {
	case "fs":
	case "s3":
		if c.Upload.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when UPLOAD_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_DRIVER %q", c.Upload.Driver)
	}
	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive")
	}
	return nil
}

// NeedsDatabase reports whether any component is configured to use SQL
func (c *Config) NeedsDatabase() bool {
	return c.Storage.Driver == "sql" || c.Storage.AccountsBackend == "sql"
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("storage_driver", c.Storage.Driver),
		zap.String("accounts_backend", c.Storage.AccountsBackend),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.String("upload_driver", c.Upload.Driver),
		zap.Bool("secure_cookies", c.Auth.SecureCookies),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	switch getEnv(key, "") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
