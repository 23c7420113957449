package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestSetupWriterDefaultsToStdout(t *testing.T) {
	assert.Equal(t, os.Stdout, SetupWriter(Config{Output: "stdout"}))
	assert.Equal(t, os.Stdout, SetupWriter(Config{}))
	assert.Equal(t, os.Stdout, SetupWriter(Config{Output: "file"}), "file output without a filename falls back to stdout")
	assert.Equal(t, os.Stderr, SetupWriter(Config{Output: "stderr"}))
}

func TestGenerateRequestIDIsUniqueAndPrefixed(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "req_")
}

func TestWithRequestIDRoundTrips(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-request")
	assert.Equal(t, "test-request", RequestIDFrom(ctx))
}

func TestRequestIDFromEmptyContextReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}

func TestWithEnvironmentRoundTrips(t *testing.T) {
	ctx := WithEnvironment(context.Background(), "lab")
	assert.Equal(t, "lab", EnvironmentFrom(ctx))
}

func TestMiddlewareTagsLogLineWithRouteEnvironment(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var seenEnv string
	router := mux.NewRouter()
	router.Use(Middleware(base))
	router.HandleFunc("/environments/{env}/progress", func(w http.ResponseWriter, r *http.Request) {
		seenEnv = EnvironmentFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/environments/lab/progress", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lab", seenEnv, "handler should see the environment via context")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lab", entry["environment"])
	assert.Equal(t, "/environments/lab/progress", entry["path"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestMiddlewareOmitsEnvironmentFieldOutsideEnvironmentRoutes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := mux.NewRouter()
	router.Use(Middleware(base))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, present := entry["environment"]
	assert.False(t, present)
}

func TestFromContextAttachesRequestIDAndEnvironment(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := WithEnvironment(WithRequestID(context.Background(), "test-id"), "lab")
	FromContext(ctx, base).Info("message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test-id", entry["request_id"])
	assert.Equal(t, "lab", entry["environment"])
}

func TestFromContextWithoutValuesLeavesFieldsAbsent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	FromContext(context.Background(), base).Info("message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasReqID := entry["request_id"]
	_, hasEnv := entry["environment"]
	assert.False(t, hasReqID)
	assert.False(t, hasEnv)
}

func TestStatusRecorderCapturesWrittenStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	assert.Equal(t, http.StatusOK, rec.statusCode)
	rec.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rec.statusCode)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
