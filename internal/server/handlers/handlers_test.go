package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/config"
	"github.com/tumi8/insalata-go/internal/environment"
)

const fixtureDoc = `<config name="lab">
  <locations>
    <location id="loc1" hypervisor="xen" defaultTemplate="plain"/>
  </locations>
  <hosts>
    <host id="h1" location="loc1" template="edge" cpus="2" memoryMin="512" memoryMax="1024"/>
  </hosts>
</config>`

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	cfg := &config.EnvironmentConfig{QueueSize: 5, WorkingSet: 10}
	env := environment.New("lab", cfg, nil, config.NewLocationsRegistry(), t.TempDir(), nil)

	mgr := environment.NewManager(environment.PlannerOptions{}, t.TempDir(), nil)
	mgr.Register("lab", env)

	h := New(mgr, nil)
	router := mux.NewRouter()
	router.HandleFunc("/environments", h.GetEnvironments).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/files", h.UploadConfiguration).Methods(http.MethodPost)
	router.HandleFunc("/environments/{env}/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/files/{name}", h.GetFile).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/progress", h.GetSetupProgress).Methods(http.MethodGet)
	router.HandleFunc("/commands", h.GetCommands).Methods(http.MethodGet)
	return router
}

func TestUploadThenListThenGetFile(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/environments/lab/files?name=lab.xml", strings.NewReader(fixtureDoc))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/environments/lab/files", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lab.xml")

	req = httptest.NewRequest(http.MethodGet, "/environments/lab/files/lab.xml", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<config name="lab">`)
}

func TestGetFileUnknownEnvironmentReturns404(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/environments/missing/files/lab.xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFileMissingFileReturns404(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/environments/lab/files/missing.xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCommandsListsTheTable(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/commands", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "applyConfiguration")
}

func TestGetSetupProgressReportsSchedulerState(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/environments/lab/progress", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "progress")
}
