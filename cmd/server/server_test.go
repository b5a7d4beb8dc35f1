package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/campus-pulse/internal/auth"
	"github.com/ZanzyTHEbar/campus-pulse/internal/config"
	"github.com/ZanzyTHEbar/campus-pulse/internal/database"
	"github.com/ZanzyTHEbar/campus-pulse/internal/monitoring"
)

const testSecret = "server-test-secret-0123456789"

// seeded ids: students are 1..15, the admin is 16, the bots are 17 and 18
const (
	studentID = int64(1)
	adminID   = int64(16)
)

func testConfig(t *testing.T, seed bool) *config.Config {
	return &config.Config{
		Port:                 "0",
		Mode:                 gin.TestMode,
		DBDriver:             database.DriverSQLite,
		DataDir:              t.TempDir(),
		JWTSecret:            testSecret,
		IPRateLimitPerMin:    10000,
		AdminRateLimitPerMin: 100,
		AnalyticsWorkers:     2,
		FitTimeout:           10 * time.Second,
		SeedDemoData:         seed,
		SeedValue:            42,
		LogLevel:             "error",
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*app, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a, err := newApp(context.Background(), cfg, monitoring.NewLoggerWithWriter(io.Discard, slog.LevelError))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, a.router()
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := auth.IssueToken([]byte(testSecret), userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, false))

	w := do(r, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(monitoring.RequestIDHeader))

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])

	deps := body["dependencies"].(map[string]interface{})
	assert.Contains(t, deps, "database")
	assert.NotContains(t, deps, "redis")

	pools := body["pools"].(map[string]interface{})
	assert.Equal(t, database.DriverSQLite, pools["database"].(map[string]interface{})["driver"])
	assert.Equal(t, false, pools["redis"].(map[string]interface{})["enabled"])
	assert.Contains(t, pools, "compression")

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run("method_"+method+"_not_routed", func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, do(r, method, "/health", "", "").Code)
		})
	}
}

func TestMetricsAndDocs(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, false))

	do(r, http.MethodGet, "/health", "", "")

	w := do(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `campus_http_requests_total{method="GET",route="/health",status="200"} 1`)

	w = do(r, http.MethodGet, "/swagger/doc.json", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/predict_attendance_risk/{user_id}")
}

func TestAPIRequiresAuth(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, true))

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/projects", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/projects", "Bearer nope", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/projects", token(t, 999), "").Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, true))
	student, admin := token(t, studentID), token(t, adminID)

	tests := []struct {
		name   string
		method string
		path   string
		authz  string
		body   string
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "recommendations", method: http.MethodGet, path: "/api/recommend_students", authz: student, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				recs := body["recommendations"].([]interface{})
				assert.LessOrEqual(t, len(recs), 5)
			},
		},
		{
			name: "trust score", method: http.MethodGet, path: "/api/trust_score/1", authz: student, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				score := body["trust_score"].(float64)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			},
		},
		{name: "trust score unknown user", method: http.MethodGet, path: "/api/trust_score/999", authz: student, status: http.StatusNotFound},
		{name: "trust score bad id", method: http.MethodGet, path: "/api/trust_score/abc", authz: student, status: http.StatusBadRequest},
		{
			name: "skill gap", method: http.MethodPost, path: "/api/skill_gap", authz: student, body: `{"project_id":1}`, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body, "match_score")
				assert.Contains(t, body, "missing_skills")
				assert.Contains(t, body, "recommended_courses")
			},
		},
		{name: "skill gap missing project", method: http.MethodPost, path: "/api/skill_gap", authz: student, body: `{}`, status: http.StatusBadRequest},
		{name: "skill gap unknown project", method: http.MethodPost, path: "/api/skill_gap", authz: student, body: `{"project_id":99}`, status: http.StatusNotFound},
		{
			name: "projects", method: http.MethodGet, path: "/api/projects", authz: student, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["projects"], 3)
			},
		},
		{
			name: "predict own risk", method: http.MethodGet, path: "/api/predict_attendance_risk/1", authz: student, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["predictions"], 5)
			},
		},
		{name: "predict someone else", method: http.MethodGet, path: "/api/predict_attendance_risk/2", authz: student, status: http.StatusForbidden},
		{name: "admin predicts anyone", method: http.MethodGet, path: "/api/predict_attendance_risk/2", authz: admin, status: http.StatusOK},
		{
			name: "own attendance summary", method: http.MethodGet, path: "/api/attendance_summary/1", authz: student, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["attendance"], 5)
			},
		},
		{name: "other attendance summary", method: http.MethodGet, path: "/api/attendance_summary/2", authz: student, status: http.StatusForbidden},
		{name: "mark attendance", method: http.MethodPost, path: "/api/mark_attendance", authz: student, body: `{"subject_id":1,"attended":false}`, status: http.StatusOK},
		{name: "mark attendance unknown subject", method: http.MethodPost, path: "/api/mark_attendance", authz: student, body: `{"subject_id":77}`, status: http.StatusNotFound},
		{name: "detection needs admin", method: http.MethodPost, path: "/api/admin/run_fake_detection", authz: student, status: http.StatusForbidden},
		{
			name: "detection", method: http.MethodPost, path: "/api/admin/run_fake_detection", authz: admin, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "success", body["status"])
				assert.EqualValues(t, 18, body["evaluated"])
			},
		},
		{name: "training needs admin", method: http.MethodPost, path: "/api/train_attendance_model", authz: student, status: http.StatusForbidden},
		{name: "no model yet", method: http.MethodGet, path: "/api/admin/attendance_model", authz: admin, status: http.StatusNotFound},
		{
			name: "train", method: http.MethodPost, path: "/api/train_attendance_model", authz: admin, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 1, body["version"])
				assert.EqualValues(t, 85, body["records"])
			},
		},
		{
			name: "model status", method: http.MethodGet, path: "/api/admin/attendance_model", authz: admin, status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 1, body["version"])
			},
		},
	}

	// cases run in order; the model status cases depend on the train case
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.authz, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, decode(t, w))
			}
		})
	}
}

func TestInsufficientDataRendersOK(t *testing.T) {
	a, r := newTestApp(t, testConfig(t, false))
	ctx := context.Background()

	admin := database.NewUser("Admin", "admin@x.edu")
	admin.IsAdmin = true
	id, err := a.repo.CreateUser(ctx, admin, nil, nil)
	require.NoError(t, err)

	for _, path := range []string{"/api/admin/run_fake_detection", "/api/train_attendance_model"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodPost, path, token(t, id), "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "insufficient_data", decode(t, w)["status"])
		})
	}
}

func TestAdminRateLimit(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.AdminRateLimitPerMin = 1
	_, r := newTestApp(t, cfg)
	admin := token(t, adminID)

	first := do(r, http.MethodPost, "/api/train_attendance_model", admin, "")
	require.Equal(t, http.StatusOK, first.Code)

	second := do(r, http.MethodPost, "/api/train_attendance_model", admin, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// budgets are per endpoint
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/admin/run_fake_detection", admin, "").Code)
}

func TestRejectsNonJSONBody(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, true))

	req := httptest.NewRequest(http.MethodPost, "/api/skill_gap", strings.NewReader("project_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", token(t, studentID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "seed", "token"})
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GIN_MODE", gin.TestMode)

	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--user-id", "7"})
	require.NoError(t, root.Execute())

	claims, err := auth.ParseToken([]byte(testSecret), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestHSTSOnlyInRelease(t *testing.T) {
	_, debug := newTestApp(t, testConfig(t, false))
	assert.Empty(t, do(debug, http.MethodGet, "/health", "", "").Header().Get("Strict-Transport-Security"))

	cfg := testConfig(t, false)
	cfg.Mode = gin.ReleaseMode
	_, release := newTestApp(t, cfg)
	assert.Contains(t, do(release, http.MethodGet, "/health", "", "").Header().Get("Strict-Transport-Security"), "max-age=")
}
