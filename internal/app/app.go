package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/events"
	"github.com/infotcjeff2-droid/properties2/internal/repository"
	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/infotcjeff2-droid/properties2/internal/upload"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/database"
	"github.com/infotcjeff2-droid/properties2/pkg/jwtutil"
	"github.com/infotcjeff2-droid/properties2/pkg/metrics"
	"github.com/infotcjeff2-droid/properties2/prometheus"
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds every long-lived component of the service
type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB       *gorm.DB
	Bus      *events.Bus
	Store    *store.Store
	Accounts repository.AccountRepository
	Uploads  upload.Store
	JWT      *jwtutil.JWTUtil

	Auth      *service.AuthService
	Users     *service.UserService
	Companies *service.CompanyService
	Dashboard *service.DashboardService

	Registry    *promclient.Registry
	Metrics     *prometheus.Metrics
	HTTPMetrics *metrics.HTTPMetrics
}

// New opens storage and builds the services described by cfg
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log, Registry: promclient.NewRegistry()}
	a.Metrics = prometheus.NewMetrics(cfg.Metrics.Prefix, a.Registry)
	a.HTTPMetrics = metrics.NewHTTPMetrics(cfg.ServiceName, a.Registry)
	a.Bus = events.NewBus(log).WithCounter(a.Metrics)

	if cfg.NeedsDatabase() {
		db, err := database.Open(&cfg.DB)
		if err != nil {
			return nil, err
		}
		a.DB = db
		log.Info("Database connection established", zap.String("driver", cfg.DB.Driver))
	}

	backend, err := a.openBackend()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store.New(backend,
		store.WithLogger(log),
		store.WithBus(a.Bus),
		store.WithRecorder(a.Metrics),
	)

	switch cfg.Storage.AccountsBackend {
	case "sql":
		accounts, err := repository.NewGormAccounts(a.DB)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("migrate account tables: %w", err)
		}
		a.Accounts = accounts
	default:
		a.Accounts = repository.NewStoreAccounts(a.Store)
	}

	a.Uploads, err = upload.Open(ctx, &cfg.Upload)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open upload store: %w", err)
	}

	a.JWT = jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	a.Auth = service.NewAuthService(a.Accounts, a.JWT, &cfg.Auth)
	a.Users = service.NewUserService(a.Accounts, a.Auth)
	a.Companies = service.NewCompanyService(a.Accounts, a.Store)
	a.Dashboard = service.NewDashboardService(a.Store)
	return a, nil
}

func (a *App) openBackend() (store.Backend, error) {
	switch a.Config.Storage.Driver {
	case "memory":
		return store.NewMemoryBackend(), nil
	case "sql":
		return store.NewSQLBackend(a.DB)
	default:
		return store.NewFileBackend(a.Config.Storage.FilePath, a.Log)
	}
}

// Init prepares the collections and the default administrator.
// Nothing is created once the user has cleared the data.
func (a *App) Init(ctx context.Context) error {
	if a.Config.Storage.AccountsBackend != "sql" {
		return a.Store.Init(ctx, a.Auth.DefaultAdmin)
	}

	if err := a.Store.Init(ctx, nil); err != nil {
		return err
	}
	cleared, err := a.Store.ClearedByUser(ctx)
	if err != nil || cleared {
		return err
	}
	admin, created, err := a.Auth.EnsureAdmin(ctx)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		a.Log.Info("Created default administrator", zap.String("email", admin.Email))
	}
	return nil
}

// SessionTTL is how long login cookies live
func (a *App) SessionTTL() time.Duration { return a.JWT.TTL() }

// Close releases storage
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
