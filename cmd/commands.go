package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/app"
	"github.com/infotcjeff2-droid/properties2/internal/middleware"
	"github.com/infotcjeff2-droid/properties2/internal/routes"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// bootstrap loads configuration, sets up logging and opens the application
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.GetLogger()
	log.Info("Configuration loaded", cfg.LogConfig()...)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.Log

			if err := a.Init(ctx); err != nil {
				return fmt.Errorf("initialise storage: %w", err)
			}

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			// order matters: request ids must exist before the request logger runs
			e.Use(echomiddleware.Recover())
			e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
				AllowOrigins:     a.Config.Server.AllowOrigins,
				AllowCredentials: true,
			}))
			e.Use(middleware.RequestID)
			e.Use(logger.Middleware())
			e.Use(a.HTTPMetrics.Middleware())

			routes.Register(e, a)

			e.Server.ReadHeaderTimeout = 10 * time.Second
			e.Server.ReadTimeout = 30 * time.Second
			e.Server.WriteTimeout = 60 * time.Second

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting server", zap.String("port", a.Config.Server.Port))
				if err := e.Start(":" + a.Config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("start server: %w", err)
				}
			case <-ctx.Done():
			}

			log.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Error("Graceful shutdown failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func InitAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-admin",
		Short: "Create the default administrator if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Init(ctx, nil); err != nil {
				return err
			}
			admin, created, err := a.Auth.EnsureAdmin(ctx)
			if err != nil {
				return fmt.Errorf("ensure admin: %w", err)
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "Administrator %s already exists\n", admin.Email)
				return nil
			}
			_, password := a.Auth.AdminCredentials()
			fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s with password %s\n", admin.Email, password)
			return nil
		},
	}
}

func SeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample data unless the store was cleared",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				file = a.Config.Storage.SeedFile
			}
			data, err := store.LoadSeedFile(file)
			if err != nil {
				return err
			}
			if err := a.Init(ctx); err != nil {
				return err
			}
			if err := a.Store.Seed(ctx, data); err != nil {
				if errors.Is(err, store.ErrSeedSuppressed) {
					fmt.Fprintln(cmd.OutOrStdout(), "Data was cleared by a user, sample data not loaded")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sample data loaded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (JSONC); defaults to STORAGE_SEED_FILE or the bundled sample")
	return cmd
}

func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all property data and stop sample data from loading again",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Init(ctx, nil); err != nil {
				return err
			}
			if err := a.Store.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Property data cleared")
			return nil
		},
	}
}
