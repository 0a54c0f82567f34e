package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/api/http/handlers"
	"github.com/gunaso/grievance-service/internal/auth"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/observability"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type staticUsers map[string]*domain.User

func (s staticUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T, postgres, redis pinger) (*fiber.App, *auth.TokenManager, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("secret", 5)
	users := staticUsers{
		"citizen-1": {ID: "citizen-1", Username: "alice", Profile: &domain.Profile{Role: domain.RoleCitizen}},
		"admin-1":   {ID: "admin-1", Username: "roads", Profile: &domain.Profile{Role: domain.RoleAdmin}},
	}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("grievance-service", "test", postgres, redis, false, metrics),
		Users:          handlers.NewUsersHandler(nil),
		Reference:      handlers.NewReferenceHandler(nil),
		Complaints:     handlers.NewComplaintsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})
	return app, tokens, metrics
}

func do(t *testing.T, app *fiber.App, method, path, token string) (int, errorBody) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestErrorEnvelope(t *testing.T) {
	app, tokens, metrics := newTestApp(t, pinger{}, pinger{})
	citizenToken, _, err := tokens.GenerateToken("citizen-1", "alice")
	require.NoError(t, err)

	status, body := do(t, app, http.MethodGet, "/api/complaints", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	status, body = do(t, app, http.MethodPost, "/api/ministries", citizenToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	adminToken, _, err := tokens.GenerateToken("admin-1", "roads")
	require.NoError(t, err)
	status, body = do(t, app, http.MethodPost, "/api/complaints", adminToken)
	assert.Equal(t, http.StatusForbidden, status, "only citizens file complaints")
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	status, body = do(t, app, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	status, body = do(t, app, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)

	assert.NotEmpty(t, metrics.Snapshot()["errors"])
}

func TestHealthProbes(t *testing.T) {
	app, _, _ := newTestApp(t, pinger{}, pinger{err: errors.New("connection refused")})

	status, _ := do(t, app, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)

	// redis is optional while the in-memory queue is in use
	status, _ = do(t, app, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/health/metrics", "")
	assert.Equal(t, http.StatusOK, status)

	down, _, _ := newTestApp(t, pinger{err: errors.New("no db")}, pinger{})
	status, body := do(t, down, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
}
