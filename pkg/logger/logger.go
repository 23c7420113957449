// Package logger provides structured logging for the reconciliation daemon.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// RequestIDKey is the context key for a request/task correlation ID.
	RequestIDKey ContextKey = "request_id"
	// EnvironmentKey is the context key for the reconciliation environment
	// a request or background task is operating on.
	EnvironmentKey ContextKey = "environment"
)

// Config holds logger configuration for one environment's log stream.
type Config struct {
	Level      string
	Format     string
	Output     string
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// New creates a structured logger for the given configuration. Every
// environment gets its own logger instance so rotation and level can be
// tuned per environment.
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)
	writer := SetupWriter(cfg)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler)
}

// ParseLevel parses a string log level into an slog.Level, defaulting to
// info for anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupWriter configures the output writer for a logger config. Output
// "file" rotates through lumberjack the same way the daemon's per-environment
// log files rotate; anything else goes to stdout/stderr.
func SetupWriter(cfg Config) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.Filename == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	case "stderr":
		return os.Stderr
	case "stdout", "":
		return os.Stdout
	default:
		return os.Stdout
	}
}

// GenerateRequestID returns a short random ID for correlating log lines
// across a single scan, setup, or RPC call.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// WithRequestID attaches a request ID to a context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom extracts a request ID from a context, if any.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEnvironment attaches the name of the reconciliation environment a
// request or background task is operating on to a context.
func WithEnvironment(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, EnvironmentKey, name)
}

// EnvironmentFrom extracts an environment name from a context, if any.
func EnvironmentFrom(ctx context.Context) string {
	if name, ok := ctx.Value(EnvironmentKey).(string); ok {
		return name
	}
	return ""
}

// Middleware returns HTTP middleware that assigns a request ID and logs the
// outcome of every command-server request. Routes carrying an "env" path
// variable (every environment-scoped RPC this daemon exposes) get their
// environment name attached to both the request's context and the access
// log line, so a handler's own logging and this line correlate under the
// same field without the handler having to repeat it.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = GenerateRequestID()
			}

			ctx := WithRequestID(r.Context(), requestID)

			environment := mux.Vars(r)["env"]
			if environment != "" {
				ctx = WithEnvironment(ctx, environment)
			}

			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
				"request_id", requestID,
				"remote_addr", r.RemoteAddr,
			}
			if environment != "" {
				fields = append(fields, "environment", environment)
			}
			logger.Info("request", fields...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// FromContext returns logger enriched with the request ID and environment
// name carried by ctx, if any.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RequestIDFrom(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if env := EnvironmentFrom(ctx); env != "" {
		logger = logger.With("environment", env)
	}
	return logger
}
