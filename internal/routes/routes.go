package routes

import (
	"fmt"
	"os"

	"github.com/infotcjeff2-droid/properties2/internal/app"
	"github.com/infotcjeff2-droid/properties2/internal/handler"
	mid "github.com/infotcjeff2-droid/properties2/internal/middleware"
	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Register mounts every route of the service on e
func Register(e *echo.Echo, a *app.App) {
	cfg := a.Config
	gate := mid.NewGate(a.JWT, &cfg.Auth, a.Metrics)
	admins := mid.RequireRole(model.RoleSuperAdmin, model.RoleCompanyAdmin)
	superAdmin := mid.RequireRole(model.RoleSuperAdmin)

	e.Use(gate.Pages())

	e.GET("/health", handler.HealthCheck(cfg.ServiceName, cfg.Storage.Driver))
	e.GET("/metrics", echo.WrapHandler(a.HTTPMetrics.Handler()))

	authHandler := handler.NewAuthHandler(a.Auth, &cfg.Auth, a.SessionTTL(), a.Metrics)
	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/guest-login", authHandler.GuestLogin)
	auth.POST("/guest-access", authHandler.GuestAccess)
	auth.POST("/init-admin", authHandler.InitAdmin)
	auth.GET("/me", authHandler.Me, gate.API())

	api := e.Group("/api", gate.API())

	users := handler.NewUserHandler(a.Users)
	api.GET("/users", users.List, admins)
	api.POST("/users", users.Create, admins)

	companies := handler.NewCompanyHandler(a.Companies)
	api.GET("/companies", companies.List, superAdmin)
	api.POST("/companies", companies.Create, superAdmin)

	data := handler.NewDataHandler(a.Store, a.Dashboard, cfg.Storage.SeedFile)
	api.POST("/properties/clear", data.ClearProperties, admins)
	api.GET("/contracts/expiring", data.ExpiringContracts)
	api.GET("/dashboard/stats", data.Stats)
	api.GET("/dashboard/financial", data.Financial)
	api.GET("/storage/stats", data.Stats)
	api.POST("/storage/stats", data.Stats)
	api.POST("/init-data", data.InitData, admins)

	s := a.Store
	handler.NewRecordHandler(s.Properties).Register(api.Group("/properties"))
	handler.NewRecordHandler(s.Tenants).Register(api.Group("/tenants"))
	handler.NewRecordHandler(s.Contracts).Register(api.Group("/contracts"))
	handler.NewRecordHandler(s.MaintenanceOrders).Register(api.Group("/maintenance-orders"))
	handler.NewRecordHandler(s.Transactions).Register(api.Group("/transactions"))
	handler.NewRecordHandler(s.Proprietors).Register(api.Group("/proprietors"))
	handler.NewRecordHandler(s.RentingRecords).Register(api.Group("/renting-records"))
	handler.NewRecordHandler(s.RentOutRecords).Register(api.Group("/rent-out-records"))
	handler.NewRecordHandler(s.Notifications).Register(api.Group("/notifications"))

	uploads := handler.NewUploadHandler(a.Uploads, cfg.Upload.MaxBytes, a.Metrics)
	if cfg.Upload.MaxBytes > 0 {
		// leave room for the multipart envelope around the file
		api.POST("/upload", uploads.Upload, middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: formatLimit(cfg.Upload.MaxBytes + 1<<20),
		}))
	} else {
		api.POST("/upload", uploads.Upload)
	}

	feed := handler.NewFeedHandler(a.Bus, cfg.Server.AllowOrigins, a.Metrics)
	api.GET("/events/ws", feed.Serve)

	if cfg.Upload.Driver == "fs" {
		// uploaded files are never rendered as documents of this origin
		files := e.Group(cfg.Upload.PublicPrefix, middleware.SecureWithConfig(middleware.SecureConfig{
			ContentTypeNosniff:    "nosniff",
			ContentSecurityPolicy: "default-src 'none'; style-src 'unsafe-inline'; sandbox",
		}))
		files.Static("/", cfg.Upload.Dir)
	}
	if dir := cfg.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			e.Static("/", dir)
		}
	}
}

// formatLimit renders n bytes the way BodyLimit expects, rounded up to KiB
func formatLimit(n int64) string {
	return fmt.Sprintf("%dK", (n+1023)/1024)
}
