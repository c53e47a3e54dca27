package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/http/handlers"
	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
	"signaltracker/backend/services/dashboard-gateway/internal/password"
	redisstore "signaltracker/backend/services/dashboard-gateway/internal/redis"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

type fakeBackend struct {
	logCalls     atomic.Int32
	cookieOnLogs atomic.Value
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/Home/UserLogin":
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "field-pass" {
			_, _ = w.Write([]byte(`{"success":false,"message":"Wrong password"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "upstream-1"})
		_, _ = w.Write([]byte(`{"success":true,"user":{"id":42,"name":"Field Lead","user_type":"admin","email":"lead@example.com"}}`))
	case "/Home/Logout":
		_, _ = w.Write([]byte(`{}`))
	case "/api/Setting/CheckSession":
		if _, err := r.Cookie("ASP.NET_SessionId"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Session expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"Status":1}`))
	case "/api/auth/status":
		_, _ = w.Write([]byte(`{"authenticated":true}`))
	case "/Home/GetStateIformation":
		_, _ = w.Write([]byte(`[{"id":7,"name":"Delhi"}]`))
	case "/api/MapView/GetLogsByDateRange":
		b.logCalls.Add(1)
		if ck, err := r.Cookie("ASP.NET_SessionId"); err == nil {
			b.cookieOnLogs.Store(ck.Value)
		}
		_, _ = w.Write([]byte(`{"Data":[
			{"session_id":1,"lat":28.61,"lon":77.20,"rsrp":-80,"m_alpha_long":"Jio"},
			{"session_id":1,"lat":28.62,"lon":77.21,"rsrp":-112,"m_alpha_long":"Jio"},
			{"session_id":1,"lon":77.22,"rsrp":-90}
		]}`))
	case "/api/Setting/GetThresholdSettings":
		_, _ = w.Write([]byte(`{"Data":null}`))
	case "/Admin/GetSessions":
		_, _ = w.Write([]byte(`[{"id":1},{"id":2},{"id":3}]`))
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	handler http.Handler
	backend *fakeBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	backend := &fakeBackend{}
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	base := clients.NewBaseClient(upstream.URL, upstream.Client())
	home := clients.NewHomeClient(base)
	mapClient := clients.NewMapViewClient(base)
	admin := clients.NewAdminClient(base)

	hasher := password.NewBcryptHasher(4)
	hash, err := hasher.Hash("static-pass")
	require.NoError(t, err)

	auth := service.NewAuthService(home, mapClient, redisstore.NewSessionStore(rdb, time.Hour),
		service.NewTokenService("test-secret", time.Hour), hasher,
		[]service.StaticAccount{{ID: 1, Email: "ops@example.com", Name: "Ops", UserType: "admin", PasswordHash: hash}},
		logger)
	settings := service.NewSettingsService(clients.NewSettingsClient(base), nil, logger)
	legends, err := render.NewLegendRenderer()
	require.NoError(t, err)
	maps := service.NewMapService(mapClient, settings, nil, nil, legends, logger)

	router := NewRouter(RouterDeps{
		AuthHandlers:      handlers.NewAuthHandlers(auth, time.Hour, false, logger),
		AccountHandlers:   handlers.NewAccountHandlers(service.NewAccountService(home, clients.NewSettingsClient(base), logger), logger),
		DashboardHandlers: handlers.NewDashboardHandlers(service.NewDashboardService(admin, nil, logger), logger),
		MapHandlers:       handlers.NewMapHandlers(maps, logger),
		AdminHandlers:     handlers.NewAdminHandlers(service.NewAdminService(admin, logger), logger),
		UploadHandlers:    handlers.NewUploadHandlers(service.NewUploadService(clients.NewExcelClient(base), logger), logger),
		SettingsHandlers:  handlers.NewSettingsHandlers(settings, logger),
		HealthHandler:     handlers.NewHealthHandler(nil),
	}, middleware.AuthMiddleware(auth, logger))

	return &testEnv{handler: router, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func (e *testEnv) login(t *testing.T, email, pass string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", `{"Email":"`+email+`","Password":"`+pass+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestHealthAndMethodGuard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/auth/login", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec = env.do(t, http.MethodPut, "/api/map/views", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPrivateRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/map/logs", "/api/dashboard", "/api/admin/sessions", "/api/auth/me"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Zero(t, env.backend.logCalls.Load())
}

func TestBackendLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"Email":"lead@example.com","Password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Wrong password"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/login", `{"Email":"Lead@Example.com","Password":"field-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// the cookie alone authenticates
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	env.handler.ServeHTTP(me, r)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"Field Lead"`)

	rec = env.do(t, http.MethodGet, "/api/map/logs?metric=rsrp&provider=ALL", "", cookies[0].Value)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var logs service.LogsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs.Points, 2)
	assert.Equal(t, "rsrp", logs.Metric.Key)
	assert.Equal(t, "upstream-1", env.backend.cookieOnLogs.Load())

	rec = env.do(t, http.MethodPost, "/api/auth/logout", "", cookies[0].Value)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/auth/me", "", cookies[0].Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWithLiveSessionReturnsUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ops@example.com", "static-pass")

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Contains(t, rec.Body.String(), `"ops@example.com"`)
}

func TestMapRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ops@example.com", "static-pass")

	rec := env.do(t, http.MethodGet, "/api/map/views", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"default"`)

	rec = env.do(t, http.MethodPost, "/api/map/views", `{"name":"north","lat":28.7,"lng":77.1,"zoom":13}`, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/map/sessions/abc/logs", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/map/overlay.png?south=28.5&west=77.0&north=28.7", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/map/overlay.png?south=28.5&west=77.0&north=28.7&east=77.4&zoom=12&width=256&height=256", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Overlay-Drawn"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = env.do(t, http.MethodGet, "/api/map/legend.png?metric=rsrp", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ops@example.com", "static-pass")

	rec := env.do(t, http.MethodGet, "/api/admin/sessions?page=2&pageSize=2", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.SessionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 1)

	rec = env.do(t, http.MethodDelete, "/api/admin/sessions/0", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/sessions/3", "", token)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUploadSessionsValidatesDates(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ops@example.com", "static-pass")

	rec := env.do(t, http.MethodGet, "/api/upload/sessions?from=yesterday&to=2024-01-02", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/upload/template?fileType=9", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStatusAndLookups(t *testing.T) {
	env := newTestEnv(t)

	static := env.login(t, "ops@example.com", "static-pass")
	rec := env.do(t, http.MethodGet, "/api/auth/status", "", static)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"static":true,"backend_session":false,"user_id":1}`, rec.Body.String())

	field := env.login(t, "lead@example.com", "field-pass")
	rec = env.do(t, http.MethodGet, "/api/auth/status", "", field)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"static":false,"backend_session":true,"user_id":42,"detail":{"authenticated":true}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/lookups/states", "", field)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":7,"name":"Delhi"}]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/map/sessions/end", `{"imei":"1"}`, field)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
