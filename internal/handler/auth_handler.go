package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/infotcjeff2-droid/properties2/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth       *service.AuthService
	cfg        *config.AuthConfig
	sessionTTL time.Duration
	metrics    *prometheus.Metrics
}

func NewAuthHandler(auth *service.AuthService, cfg *config.AuthConfig, sessionTTL time.Duration, m *prometheus.Metrics) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg, sessionTTL: sessionTTL, metrics: m}
}

// Login verifies email and password and sets the session cookie
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		h.metrics.RecordAuthError("invalid_request")
		return errorJSON(c, http.StatusBadRequest, service.ErrMissingCredentials.Error())
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case service.IsValidation(err):
		h.metrics.RecordAuthError("incomplete_credentials")
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Warn("Login rejected", zap.String("email", req.Email))
		h.metrics.RecordAuthError("invalid_credentials")
		return errorJSON(c, http.StatusUnauthorized, err.Error())
	default:
		log.Error("Login failed", zap.String("email", req.Email), zap.Error(err))
		h.metrics.RecordAuthError("login_failed")
		return errorJSON(c, http.StatusInternalServerError, "登入失敗，請稍後再試")
	}

	h.setSession(c, session.Token)
	h.metrics.RecordLogin()
	log.Info("User logged in",
		zap.String("user_id", session.User.ID),
		zap.String("role", string(session.User.Role)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": session.User})
}

// GuestLogin signs in as the shared guest account
func (h *AuthHandler) GuestLogin(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := h.auth.GuestLogin(c.Request().Context())
	if err != nil {
		log.Error("Guest login failed", zap.Error(err))
		h.metrics.RecordAuthError("guest_login_failed")
		return errorJSON(c, http.StatusInternalServerError, "訪客登入失敗，請稍後再試")
	}

	h.setSession(c, session.Token)
	h.metrics.RecordLogin()
	log.Info("Guest logged in", zap.String("user_id", session.User.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": session.User})
}

// GuestAccess sets the read-only guest marker cookie
func (h *AuthHandler) GuestAccess(c echo.Context) error {
	redirect := c.QueryParam("redirect")
	if redirect == "" {
		redirect = "/properties"
	}
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.GuestCookieName,
		Value:    "true",
		Path:     "/",
		MaxAge:   int(h.cfg.GuestTTL / time.Second),
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "redirect": redirect})
}

// Logout clears the session and guest cookies
func (h *AuthHandler) Logout(c echo.Context) error {
	for _, name := range []string{h.cfg.CookieName, h.cfg.GuestCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the verified session claims
func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok || actor.Guest {
		return errorJSON(c, http.StatusUnauthorized, msgUnauthorized)
	}
	var companyID *string
	if actor.CompanyID != "" {
		companyID = &actor.CompanyID
	}
	return c.JSON(http.StatusOK, echo.Map{"user": echo.Map{
		"userId":    actor.UserID,
		"email":     actor.Email,
		"role":      actor.Role,
		"companyId": companyID,
	}})
}

// InitAdmin creates the default administrator when it does not exist yet
func (h *AuthHandler) InitAdmin(c echo.Context) error {
	log := logger.FromEcho(c)

	admin, created, err := h.auth.EnsureAdmin(c.Request().Context())
	if err != nil {
		log.Error("Failed to create administrator", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "創建管理員失敗: "+err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "管理員已存在", "email": admin.Email})
	}

	log.Info("Default administrator created", zap.String("email", admin.Email))
	_, password := h.auth.AdminCredentials()
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "管理員創建成功",
		"email":    admin.Email,
		"password": password,
	})
}

func (h *AuthHandler) setSession(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
