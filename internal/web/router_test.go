package web_test

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"onehandcoder/internal/account"
	"onehandcoder/internal/api"
	"onehandcoder/internal/auth"
	"onehandcoder/internal/metrics"
	"onehandcoder/internal/settings"
	"onehandcoder/internal/testutil"
	"onehandcoder/internal/web"
	"onehandcoder/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope map[string]interface{}

func setupServer(t *testing.T) *testutil.TestServer {
	t.Helper()
	cfg := testutil.GetTestConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := testutil.SetupTestUserRepository(t)
	manager := testutil.SetupTestDBManager(t)
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	tokens := auth.NewTokenService(cfg.JwtKey, cfg.TokenTTL)
	m := metrics.New()
	writer := &api.Writer{Logger: logger}

	server := &web.Server{
		Account:     account.NewAccountHandlers(account.NewAccountService(repo, manager, hasher, tokens, m), writer),
		Settings:    settings.NewSettingsHandlers(settings.NewSettingsService(repo, manager, hasher), writer),
		Auth:        middleware.NewMiddleware(tokens, writer),
		Metrics:     m,
		Store:       repo,
		Errors:      writer,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	}
	return testutil.NewTestServer(t, server.SetupRoutes())
}

func register(t *testing.T, ts *testutil.TestServer, username, password string) string {
	t.Helper()
	var body envelope
	resp := ts.POST("/api/auth/register", "", map[string]string{"username": username, "password": password})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &body)
	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestEndToEnd_AccountLifecycle(t *testing.T) {
	ts := setupServer(t)

	register(t, ts, "alice", "pw123")

	var login envelope
	resp := ts.POST("/api/auth/login", "", map[string]string{"username": "alice", "password": "pw123"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &login)
	assert.Equal(t, true, login["success"])
	token := login["token"].(string)

	var settingsBody envelope
	testutil.AssertJSONResponse(t, ts.GET("/api/settings", token), http.StatusOK, &settingsBody)
	assert.Equal(t, "alice", settingsBody["username"])
	assert.Equal(t, "Free", settingsBody["subscription"])
	assert.Equal(t, 0.0, settingsBody["usedStorageMB"])
	assert.Equal(t, 500.0, settingsBody["maxStorageMB"])

	var saved envelope
	resp = ts.POST("/api/save-program", token, map[string]string{"title": "t", "content": "c"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &saved)
	assert.Len(t, saved["savedPrograms"], 1)

	var progress envelope
	resp = ts.POST("/api/progress", token, map[string]interface{}{"code": "x = 1", "progress": 40})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &progress)
	assert.Equal(t, 40.0, progress["progress"])

	testutil.AssertJSONResponse(t, ts.POST("/api/settings/reset-progress", token, nil), http.StatusOK, nil)

	var profile envelope
	testutil.AssertJSONResponse(t, ts.GET("/api/profile", token), http.StatusOK, &profile)
	assert.Equal(t, 0.0, profile["progress"])
	assert.Equal(t, []interface{}{}, profile["history"])
	assert.Len(t, profile["savedPrograms"], 1)
	assert.NotContains(t, profile, "password")
}

func TestEndToEnd_DuplicateUsername(t *testing.T) {
	ts := setupServer(t)
	register(t, ts, "alice", "pw123")

	resp := ts.POST("/api/auth/register", "", map[string]string{"username": "alice", "password": "other"})
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Username already taken")
}

func TestEndToEnd_InvalidCredentials(t *testing.T) {
	ts := setupServer(t)
	register(t, ts, "alice", "pw123")

	resp := ts.POST("/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid credentials")

	resp = ts.POST("/api/auth/login", "", map[string]string{"username": "nobody", "password": "pw123"})
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid credentials")
}

func TestEndToEnd_ProgressIsClamped(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	for input, want := range map[float64]float64{-50: 0, 150: 100} {
		var body envelope
		resp := ts.POST("/api/progress", token, map[string]interface{}{"progress": input})
		testutil.AssertJSONResponse(t, resp, http.StatusOK, &body)
		assert.Equal(t, want, body["progress"])
	}

	var profile envelope
	testutil.AssertJSONResponse(t, ts.GET("/api/profile", token), http.StatusOK, &profile)
	assert.Len(t, profile["history"], 2)
}

func TestEndToEnd_ProgressRejectsNonNumber(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	resp := ts.POST("/api/progress", token, map[string]interface{}{"progress": "lots"})
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid request format")
}

func TestEndToEnd_CompleteCourseTwice(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	for i := 0; i < 2; i++ {
		var body envelope
		resp := ts.POST("/api/complete-course", token, map[string]string{"courseName": "Intro"})
		testutil.AssertJSONResponse(t, resp, http.StatusOK, &body)
		assert.Equal(t, []interface{}{"Intro"}, body["completedCourses"])
	}
}

func TestEndToEnd_SettingsUpdateEmailOnly(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	var updated envelope
	resp := ts.POST("/api/settings/update", token, map[string]string{"email": "a@b.c"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &updated)
	assert.Equal(t, "Account updated", updated["message"])

	var settingsBody envelope
	testutil.AssertJSONResponse(t, ts.GET("/api/settings", token), http.StatusOK, &settingsBody)
	assert.Equal(t, "alice", settingsBody["username"])
	assert.Equal(t, "a@b.c", settingsBody["email"])

	resp = ts.POST("/api/auth/login", "", map[string]string{"username": "alice", "password": "pw123"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)
}

func TestEndToEnd_SettingsUpdatePassword(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	resp := ts.POST("/api/settings/update", token, map[string]string{"password": "newpass"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)

	resp = ts.POST("/api/auth/login", "", map[string]string{"username": "alice", "password": "pw123"})
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid credentials")
	resp = ts.POST("/api/auth/login", "", map[string]string{"username": "alice", "password": "newpass"})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)
}

func TestEndToEnd_TokenRequired(t *testing.T) {
	ts := setupServer(t)

	testutil.AssertErrorResponse(t, ts.GET("/api/profile", ""), http.StatusUnauthorized, "Unauthorized: token missing")
	testutil.AssertErrorResponse(t, ts.GET("/api/settings", "garbage"), http.StatusUnauthorized, "Unauthorized: invalid token")
}

func TestEndToEnd_ExpiredToken(t *testing.T) {
	ts := setupServer(t)
	register(t, ts, "alice", "pw123")

	expired, err := auth.NewTokenService(testutil.GetTestConfig().JwtKey, -time.Minute).Issue("someone")
	require.NoError(t, err)

	resp := ts.GET("/api/profile", expired)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthorized: invalid token")
}

func TestEndToEnd_TokenForDeletedUser(t *testing.T) {
	ts := setupServer(t)

	token, err := auth.NewTokenService(testutil.GetTestConfig().JwtKey, time.Hour).Issue("no-such-user")
	require.NoError(t, err)

	testutil.AssertErrorResponse(t, ts.GET("/api/profile", token), http.StatusNotFound, "User not found")
}

func TestRouter_TokenInBodyAndQuery(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")

	resp := ts.POST("/api/profile", "", map[string]string{"token": token})
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)

	resp = ts.GET("/api/settings?token="+token, "")
	testutil.AssertJSONResponse(t, resp, http.StatusOK, nil)
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	ts := setupServer(t)

	testutil.AssertErrorResponse(t, ts.GET("/api/nope", ""), http.StatusNotFound, "Route not found")
	testutil.AssertErrorResponse(t, ts.GET("/api/auth/login", ""), http.StatusMethodNotAllowed, "Method not allowed")
	testutil.AssertErrorResponse(t, ts.POST("/api/settings", "", nil), http.StatusMethodNotAllowed, "Method not allowed")
	testutil.AssertErrorResponse(t, ts.Do(http.MethodDelete, "/api/profile", "", nil), http.StatusMethodNotAllowed, "Method not allowed")
}

func TestRouter_OversizedBodies(t *testing.T) {
	ts := setupServer(t)
	token := register(t, ts, "alice", "pw123")
	content := strings.Repeat("x", api.MaxBodyBytes)

	resp := ts.POST("/api/save-program", token, map[string]string{"title": "big", "content": content})
	testutil.AssertErrorResponse(t, resp, http.StatusRequestEntityTooLarge, "Request body too large")

	resp = ts.POST("/api/auth/register", "", map[string]string{"username": "bob", "password": "pw", "email": content})
	testutil.AssertErrorResponse(t, resp, http.StatusRequestEntityTooLarge, "Request body too large")

	var profile envelope
	testutil.AssertJSONResponse(t, ts.GET("/api/profile", token), http.StatusOK, &profile)
	assert.Empty(t, profile["savedPrograms"])
}

func TestRouter_PreflightAndHeaders(t *testing.T) {
	ts := setupServer(t)

	resp := ts.Do(http.MethodOptions, "/api/progress", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := setupServer(t)
	register(t, ts, "alice", "pw123")

	var health envelope
	testutil.AssertJSONResponse(t, ts.GET("/healthz", ""), http.StatusOK, &health)
	assert.Equal(t, true, health["success"])

	resp := ts.GET("/metrics", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.True(t, strings.Contains(text, "onehandcoder_accounts_registered_total 1"))
	assert.True(t, strings.Contains(text, `route="/api/auth/register"`))
}
