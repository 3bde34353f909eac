package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/jwtutil"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const actorKey = "actor"

// ErrorRecorder counts rejected requests by reason
type ErrorRecorder interface {
	RecordAuthError(errorType string)
}

var (
	adminPaths  = []string{"/admin", "/dashboard"}
	publicPages = []string{"/login", "/api/", "/uploads/", "/_next/", "/static/", "/favicon.ico", "/health", "/metrics"}
)

// Gate verifies session cookies for pages and API routes
type Gate struct {
	jwt         *jwtutil.JWTUtil
	cookie      string
	guestCookie string
	secure      bool
	errors      ErrorRecorder
}

func NewGate(jwt *jwtutil.JWTUtil, cfg *config.AuthConfig, errors ErrorRecorder) *Gate {
	return &Gate{
		jwt:         jwt,
		cookie:      cfg.CookieName,
		guestCookie: cfg.GuestCookieName,
		secure:      cfg.SecureCookies,
		errors:      errors,
	}
}

func isAdminPath(path string) bool {
	for _, p := range adminPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isPublicPage(path string) bool {
	for _, p := range publicPages {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Pages guards browser page routes. Unauthenticated visitors are sent to the
// login page with the requested path preserved; only super admins reach admin pages.
func (g *Gate) Pages() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if isPublicPage(path) {
				return next(c)
			}
			log := logger.FromEcho(c)

			actor, state := g.authenticate(c)
			switch state {
			case sessionValid:
				if isAdminPath(path) && actor.Role != model.RoleSuperAdmin {
					log.Info("Non-admin redirected from admin page",
						zap.String("path", path),
						zap.String("role", string(actor.Role)))
					return c.Redirect(http.StatusFound, "/properties")
				}
				setActor(c, actor)
				return next(c)
			case sessionGuest:
				if isAdminPath(path) {
					return redirectToLogin(c, path)
				}
				setActor(c, actor)
				return next(c)
			default:
				return redirectToLogin(c, path)
			}
		}
	}
}

// API guards JSON routes. Failures are 401; a guest may only read.
func (g *Gate) API() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, state := g.authenticate(c)
			switch state {
			case sessionValid, sessionGuest:
				method := c.Request().Method
				if !actor.CanWrite() && method != http.MethodGet && method != http.MethodHead {
					g.record("guest_write")
					return c.JSON(http.StatusForbidden, echo.Map{"error": service.ErrForbidden.Error()})
				}
				setActor(c, actor)
				return next(c)
			default:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "未授權"})
			}
		}
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := CurrentActor(c)
			if ok && !actor.Guest {
				for _, r := range roles {
					if actor.Role == r {
						return next(c)
					}
				}
			}
			logger.FromEcho(c).Warn("Role not permitted",
				zap.String("path", c.Path()),
				zap.String("role", string(actor.Role)))
			return c.JSON(http.StatusForbidden, echo.Map{"error": service.ErrForbidden.Error()})
		}
	}
}

// CurrentActor returns the caller set by the gate
func CurrentActor(c echo.Context) (service.Actor, bool) {
	a, ok := c.Get(actorKey).(service.Actor)
	return a, ok
}

type sessionState int

const (
	sessionNone sessionState = iota
	sessionValid
	sessionGuest
)

// identityHeaders are set from a verified session only; client-sent values are dropped
var identityHeaders = []string{"X-User-Id", "X-User-Role", "X-Company-Id"}

// authenticate reads the session cookie, or a bearer token, and falls back to the guest cookie.
// An invalid session cookie is cleared.
func (g *Gate) authenticate(c echo.Context) (service.Actor, sessionState) {
	log := logger.FromEcho(c)
	req := c.Request()
	for _, h := range identityHeaders {
		req.Header.Del(h)
	}

	token, fromCookie := "", false
	if ck, err := c.Cookie(g.cookie); err == nil && ck.Value != "" {
		token, fromCookie = ck.Value, true
	} else if h := req.Header.Get(echo.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}

	if token != "" {
		claims, err := g.jwt.ValidateToken(token)
		if err == nil {
			actor := service.Actor{
				UserID:    claims.UserID,
				Email:     claims.Email,
				Role:      model.Role(claims.Role),
				CompanyID: claims.Company(),
				ReadOnly:  claims.ReadOnly,
			}
			req.Header.Set("X-User-Id", actor.UserID)
			req.Header.Set("X-User-Role", string(actor.Role))
			req.Header.Set("X-Company-Id", actor.CompanyID)
			return actor, sessionValid
		}
		log.Warn("Invalid session token", zap.Error(err))
		g.record("invalid_token")
		if fromCookie {
			g.clearCookie(c)
		}
	}

	if ck, err := c.Cookie(g.guestCookie); err == nil && ck.Value == "true" {
		return service.Actor{Guest: true}, sessionGuest
	}
	if token == "" {
		g.record("missing_token")
	}
	return service.Actor{}, sessionNone
}

func (g *Gate) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     g.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *Gate) record(reason string) {
	if g.errors != nil {
		g.errors.RecordAuthError(reason)
	}
}

func setActor(c echo.Context, a service.Actor) {
	c.Set(actorKey, a)
}

func redirectToLogin(c echo.Context, path string) error {
	return c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(path))
}
