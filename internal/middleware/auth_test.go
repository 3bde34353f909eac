package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/jwtutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct{ reasons []string }

func (r *countingRecorder) RecordAuthError(reason string) { r.reasons = append(r.reasons, reason) }

func newGate(t *testing.T) (*Gate, *jwtutil.JWTUtil, *countingRecorder) {
	t.Helper()
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "gate-secret", ExpirationHours: 1})
	rec := &countingRecorder{}
	gate := NewGate(jwt, &config.AuthConfig{CookieName: "auth-token", GuestCookieName: "guest-access"}, rec)
	return gate, jwt, rec
}

func newServer(gate *Gate) *echo.Echo {
	e := echo.New()
	e.Use(gate.Pages())
	ok := func(c echo.Context) error {
		actor, _ := CurrentActor(c)
		return c.JSON(http.StatusOK, echo.Map{
			"role":    actor.Role,
			"guest":   actor.Guest,
			"company": c.Request().Header.Get("X-Company-Id"),
		})
	}
	e.GET("/properties", ok)
	e.GET("/admin/users", ok)
	e.GET("/login", ok)

	api := e.Group("/api", gate.API())
	api.GET("/tenants", ok)
	api.POST("/tenants", ok)
	api.GET("/users", ok, RequireRole(model.RoleSuperAdmin, model.RoleCompanyAdmin))
	return e
}

func do(e *echo.Echo, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, jwt *jwtutil.JWTUtil, role model.Role, company string) *http.Cookie {
	t.Helper()
	var companyID *string
	if company != "" {
		companyID = &company
	}
	tok, err := jwt.GenerateToken("user-1", "u@example.com", string(role), companyID)
	require.NoError(t, err)
	return &http.Cookie{Name: "auth-token", Value: tok}
}

var guest = &http.Cookie{Name: "guest-access", Value: "true"}

func TestPagesRedirectAnonymousToLogin(t *testing.T) {
	gate, _, rec := newGate(t)
	e := newServer(gate)

	res := do(e, http.MethodGet, "/properties")
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, "/login?redirect=%2Fproperties", res.Header().Get(echo.HeaderLocation))
	assert.Contains(t, rec.reasons, "missing_token")

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/login").Code)
}

func TestPagesAdminPaths(t *testing.T) {
	gate, jwt, _ := newGate(t)
	e := newServer(gate)

	res := do(e, http.MethodGet, "/admin/users", token(t, jwt, model.RoleStaff, "c1"))
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, "/properties", res.Header().Get(echo.HeaderLocation))

	res = do(e, http.MethodGet, "/admin/users", token(t, jwt, model.RoleSuperAdmin, ""))
	assert.Equal(t, http.StatusOK, res.Code)

	res = do(e, http.MethodGet, "/admin/users", guest)
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Fusers", res.Header().Get(echo.HeaderLocation))
}

func TestPagesValidSessionSetsHeaders(t *testing.T) {
	gate, jwt, _ := newGate(t)
	e := newServer(gate)

	res := do(e, http.MethodGet, "/properties", token(t, jwt, model.RoleCompanyAdmin, "c1"))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"role":"COMPANY_ADMIN","guest":false,"company":"c1"}`, res.Body.String())
}

func TestPagesGuestAllowed(t *testing.T) {
	gate, _, _ := newGate(t)
	e := newServer(gate)

	res := do(e, http.MethodGet, "/properties", guest)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestInvalidCookieIsClearedAndRedirected(t *testing.T) {
	gate, _, rec := newGate(t)
	e := newServer(gate)

	res := do(e, http.MethodGet, "/properties", &http.Cookie{Name: "auth-token", Value: "garbage"})
	assert.Equal(t, http.StatusFound, res.Code)
	assert.Contains(t, res.Header().Get("Set-Cookie"), "auth-token=;")
	assert.Contains(t, rec.reasons, "invalid_token")
}

func TestAPI(t *testing.T) {
	gate, jwt, _ := newGate(t)
	e := newServer(gate)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/tenants").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/tenants", guest).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/tenants", guest).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/api/users", guest).Code)

	staff := token(t, jwt, model.RoleStaff, "c1")
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/tenants", staff).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/api/users", staff).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/users", token(t, jwt, model.RoleCompanyAdmin, "c1")).Code)
}

func TestAPIAcceptsBearerToken(t *testing.T) {
	gate, jwt, _ := newGate(t)
	e := newServer(gate)

	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, jwt, model.RoleStaff, "").Value)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestReadOnlySessionCannotWrite(t *testing.T) {
	gate, jwt, rec := newGate(t)
	e := newServer(gate)

	tok, err := jwt.GenerateReadOnlyToken("user-guest", "guest@example.com", string(model.RoleStaff), nil)
	require.NoError(t, err)
	session := &http.Cookie{Name: "auth-token", Value: tok}

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/tenants", session).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/tenants", session).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/properties", session).Code)
	assert.Contains(t, rec.reasons, "guest_write")
}

func TestClientIdentityHeadersAreDropped(t *testing.T) {
	gate, _, _ := newGate(t)
	e := newServer(gate)

	for _, path := range []string{"/properties", "/api/tenants"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(guest)
		req.Header.Set("X-User-Id", "user-forged")
		req.Header.Set("X-User-Role", "SUPER_ADMIN")
		req.Header.Set("X-Company-Id", "company-forged")
		res := httptest.NewRecorder()
		e.ServeHTTP(res, req)

		require.Equal(t, http.StatusOK, res.Code, path)
		assert.JSONEq(t, `{"role":"","guest":true,"company":""}`, res.Body.String(), path)
		assert.Empty(t, req.Header.Get("X-User-Id"), path)
		assert.Empty(t, req.Header.Get("X-User-Role"), path)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestID)
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, c.Get(RequestIDKey).(string)) })

	res := do(e, http.MethodGet, "/")
	assert.NotEmpty(t, res.Header().Get(RequestIDKey))
	assert.Equal(t, res.Header().Get(RequestIDKey), res.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDKey, "fixed")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "fixed", rec.Body.String())
}
