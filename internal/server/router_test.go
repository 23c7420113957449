package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/config"
	"github.com/tumi8/insalata-go/internal/environment"
)

func TestHealthEndpointReportsOk(t *testing.T) {
	mgr := environment.NewManager(environment.PlannerOptions{}, t.TempDir(), nil)
	router := NewRouter(mgr, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetEnvironmentsListsRegisteredEnvironments(t *testing.T) {
	mgr := environment.NewManager(environment.PlannerOptions{}, t.TempDir(), nil)
	cfg := &config.EnvironmentConfig{QueueSize: 5, WorkingSet: 10}
	mgr.Register("lab", environment.New("lab", cfg, nil, config.NewLocationsRegistry(), t.TempDir(), nil))

	router := NewRouter(mgr, nil)
	req := httptest.NewRequest(http.MethodGet, "/environments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lab")
}

func TestUnknownRouteReturns404(t *testing.T) {
	mgr := environment.NewManager(environment.PlannerOptions{}, t.TempDir(), nil)
	router := NewRouter(mgr, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
