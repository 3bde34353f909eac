package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/app"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t *testing.T
	e *echo.Echo
	a *app.App
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{
		ServiceName: "properties-test",
		Server:      config.ServerConfig{Env: "test", AllowOrigins: []string{"*"}},
		JWT:         config.JWTConfig{SigningKey: "routes-secret", ExpirationHours: 1},
		Auth: config.AuthConfig{
			CookieName:      "auth-token",
			GuestCookieName: "guest-access",
			GuestTTL:        time.Hour,
			AdminEmail:      "admin@example.com",
			AdminPassword:   "admin123",
			BcryptCost:      4,
		},
		Metrics: config.MetricsConfig{Prefix: "properties_test"},
		Storage: config.StorageConfig{Driver: "memory", AccountsBackend: "store"},
		Upload: config.UploadConfig{
			Driver:       "fs",
			Dir:          t.TempDir(),
			PublicPrefix: "/uploads",
			MaxBytes:     1 << 20,
		},
	}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Init(context.Background()))

	e := echo.New()
	Register(e, a)
	return &server{t: t, e: e, a: a}
}

func (s *server) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(email, password string) *http.Cookie {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth-token" {
			assert.True(s.t, c.HttpOnly)
			return c
		}
	}
	s.t.Fatal("no session cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"memory"`)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	admin := s.login("admin@example.com", "admin123")
	rec = s.do(http.MethodGet, "/api/auth/me", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User struct {
			Email     string  `json:"email"`
			Role      string  `json:"role"`
			CompanyID *string `json:"companyId"`
		} `json:"user"`
	}
	decode(t, rec, &me)
	assert.Equal(t, "SUPER_ADMIN", me.User.Role)
	assert.Nil(t, me.User.CompanyID)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil).Code)

	rec = s.do(http.MethodPost, "/api/auth/init-admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "管理員已存在")

	rec = s.do(http.MethodPost, "/api/auth/logout", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		cleared[c.Name] = c.MaxAge < 0
	}
	assert.True(t, cleared["auth-token"])
	assert.True(t, cleared["guest-access"])
}

func TestGuestAccessIsReadOnly(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/auth/guest-access?redirect=/contracts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/contracts"`)
	var guest *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "guest-access" {
			guest = c
		}
	}
	require.NotNil(t, guest)
	assert.False(t, guest.HttpOnly)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/properties", nil, guest).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/properties", map[string]string{"name": "x"}, guest).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/users", nil, guest).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/properties", nil).Code)
}

func TestGuestLogin(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/auth/guest-login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"guest@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth-token" {
			session = c
		}
	}
	require.NotNil(t, session)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/properties", nil, session).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/auth/me", nil, session).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/properties", map[string]string{"name": "x"}, session).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/properties/clear", nil, session).Code)
}

func TestCompanyScopedRecords(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	rec := s.do(http.MethodPost, "/api/companies", map[string]string{"name": "Acme", "domain": "acme.test"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		Company struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"company"`
	}
	decode(t, rec, &created)
	acme := created.Company.ID
	assert.Equal(t, "ACTIVE", created.Company.Status)

	rec = s.do(http.MethodPost, "/api/users", map[string]string{
		"email": "ca@example.com", "password": "pw", "name": "CA", "role": "COMPANY_ADMIN", "companyId": acme,
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	companyAdmin := s.login("ca@example.com", "pw")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/companies", nil, companyAdmin).Code)

	rec = s.do(http.MethodPost, "/api/properties", map[string]any{"name": "Tower A", "status": "HOLDING", "companyId": "company-other", "floorPlan": "3F"}, companyAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tower map[string]any
	decode(t, rec, &tower)
	assert.Equal(t, acme, tower["companyId"])
	assert.Equal(t, "3F", tower["floorPlan"])
	towerID := tower["id"].(string)

	rec = s.do(http.MethodPost, "/api/properties", map[string]any{"name": "Other", "companyId": "company-other"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/properties", nil, companyAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, towerID, list[0]["id"])

	rec = s.do(http.MethodGet, "/api/properties", nil, admin)
	decode(t, rec, &list)
	assert.Len(t, list, 2)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/properties/Other", nil, companyAdmin).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/properties/Tower%20A", nil, companyAdmin).Code)

	rec = s.do(http.MethodPatch, "/api/properties/"+towerID, map[string]any{"status": "SOLD", "companyId": "company-other"}, companyAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched map[string]any
	decode(t, rec, &patched)
	assert.Equal(t, "SOLD", patched["status"])
	assert.Equal(t, acme, patched["companyId"])
	assert.Equal(t, "3F", patched["floorPlan"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/properties/"+towerID, nil, companyAdmin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/properties/"+towerID, nil, companyAdmin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/properties/"+towerID, nil, companyAdmin).Code)

	rec = s.do(http.MethodGet, "/api/users", nil, companyAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var users struct {
		Users []map[string]any `json:"users"`
	}
	decode(t, rec, &users)
	assert.Len(t, users.Users, 1)
}

func TestInvalidBody(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	req := httptest.NewRequest(http.MethodPost, "/api/tenants", bytes.NewBufferString("[1,2"))
	req.AddCookie(admin)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearThenInitData(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	rec := s.do(http.MethodPost, "/api/init-data", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/properties", nil, admin)
	var list []map[string]any
	decode(t, rec, &list)
	assert.NotEmpty(t, list)

	rec = s.do(http.MethodPost, "/api/properties/clear", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/properties", nil, admin)
	decode(t, rec, &list)
	assert.Empty(t, list)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/init-data", nil, admin).Code)
}

func TestDashboard(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	rec := s.do(http.MethodGet, "/api/dashboard/stats", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"occupancyRate"`)

	rec = s.do(http.MethodPost, "/api/storage/stats", map[string]string{"companyId": "c1"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/dashboard/financial?period=day", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"period":"day"`)

	rec = s.do(http.MethodGet, "/api/contracts/expiring?days=x", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/api/contracts/expiring", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartFile(t *testing.T, contentType, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("type", "property"))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	upload := func(contentType, filename string) *httptest.ResponseRecorder {
		body, ct := multipartFile(t, contentType, filename, []byte("fake image"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set(echo.HeaderContentType, ct)
		req.AddCookie(admin)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image/png", "photo.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Success  bool   `json:"success"`
		URL      string `json:"url"`
		FileName string `json:"fileName"`
		Size     int64  `json:"size"`
		Type     string `json:"type"`
	}
	decode(t, rec, &res)
	assert.True(t, res.Success)
	assert.Regexp(t, `^/uploads/property-\d+-[0-9a-z]{7}\.png$`, res.URL)
	assert.Equal(t, int64(10), res.Size)
	assert.Equal(t, "image/png", res.Type)

	served := s.do(http.MethodGet, res.URL, nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "fake image", served.Body.String())
	assert.Equal(t, "nosniff", served.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, served.Header().Get("Content-Security-Policy"), "sandbox")

	rec = upload("image/png", "evil.html")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Regexp(t, `\.png$`, res.URL)
	assert.NotContains(t, res.FileName, "html")

	rec = upload("application/pdf", "doc.pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "不支持的文件格式")

	rec = s.do(http.MethodPost, "/api/upload", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "沒有上傳文件")
}

func TestPagesRedirect(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.login("admin@example.com", "admin123")

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "properties_test_")
}

// companyAdmin creates a company with its own admin and returns the company id and session
func (s *server) companyAdmin(admin *http.Cookie, name string) (string, *http.Cookie) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/companies", map[string]string{"name": name, "domain": name + ".test"}, admin)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		Company struct {
			ID string `json:"id"`
		} `json:"company"`
	}
	decode(s.t, rec, &created)

	email := name + "-admin@example.com"
	rec = s.do(http.MethodPost, "/api/users", map[string]string{
		"email": email, "password": "pw", "name": name, "role": "COMPANY_ADMIN", "companyId": created.Company.ID,
	}, admin)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return created.Company.ID, s.login(email, "pw")
}

func TestCompanyClearKeepsOtherCompanies(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")
	_, adminA := s.companyAdmin(admin, "alpha")
	companyB, adminB := s.companyAdmin(admin, "beta")

	for _, session := range []*http.Cookie{adminA, adminB} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/properties", map[string]any{"name": "Tower"}, session).Code)
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/contracts", map[string]any{"status": "ACTIVE"}, session).Code)
	}

	rec := s.do(http.MethodPost, "/api/properties/clear", nil, adminA)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"removed":2`)

	var list []map[string]any
	decode(t, s.do(http.MethodGet, "/api/properties", nil, adminA), &list)
	assert.Empty(t, list)

	decode(t, s.do(http.MethodGet, "/api/properties", nil, adminB), &list)
	require.Len(t, list, 1)
	assert.Equal(t, companyB, list[0]["companyId"])
	decode(t, s.do(http.MethodGet, "/api/contracts", nil, adminB), &list)
	assert.Len(t, list, 1)

	// a company clear does not stop sample data for everyone
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/init-data", nil, admin).Code)
}

func TestFormShapedRecords(t *testing.T) {
	s := newServer(t)
	admin := s.login("admin@example.com", "admin123")

	rec := s.do(http.MethodPost, "/api/properties", map[string]any{
		"name": "Harbour View", "status": "HOLDING", "geoMap": map[string]string{"url": "/uploads/map.png"}, "area": "",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	decode(t, rec, &created)
	assert.Equal(t, map[string]any{"url": "/uploads/map.png"}, created["geoMap"])

	rec = s.do(http.MethodPost, "/api/contracts", map[string]any{
		"status": "ACTIVE", "endDate": time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"), "rentAmount": "",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/properties/Harbour%20View", nil, admin).Code)

	rec = s.do(http.MethodGet, "/api/dashboard/stats", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats struct {
			OccupancyRate struct {
				Total int `json:"total"`
			} `json:"occupancyRate"`
			ExpiringContracts struct {
				Count int `json:"count"`
			} `json:"expiringContracts"`
		} `json:"stats"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Stats.OccupancyRate.Total)
	assert.Equal(t, 1, stats.Stats.ExpiringContracts.Count)

	rec = s.do(http.MethodGet, "/api/contracts/expiring", nil, admin)
	var expiring []map[string]any
	decode(t, rec, &expiring)
	assert.Len(t, expiring, 1)

	rec = s.do(http.MethodPost, "/api/transactions", map[string]any{"type": "INCOME", "amount": "lots"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var txs []map[string]any
	decode(t, s.do(http.MethodGet, "/api/transactions", nil, admin), &txs)
	assert.Empty(t, txs)
}
