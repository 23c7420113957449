// Package server builds the command server's HTTP surface: the RPC-style
// operations the daemon's external control interface exposes, dispatched
// over gorilla/mux. The middleware stack is narrowed to what this command
// surface actually needs: request ID, structured logging and a request
// counter. There is no auth/rate-limit/CORS/compression stack and no
// served API documentation route — this daemon's control interface is
// meant to be reached from trusted automation on a private network, not
// exposed the way a public API is.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tumi8/insalata-go/internal/environment"
	"github.com/tumi8/insalata-go/internal/metrics"
	"github.com/tumi8/insalata-go/internal/server/handlers"
	"github.com/tumi8/insalata-go/pkg/logger"
)

// NewRouter builds the command server's router. mgr backs every handler;
// log drives request logging (see pkg/logger.Middleware).
func NewRouter(mgr *environment.Manager, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(logger.Middleware(log))
	router.Use(metricsMiddleware)

	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	h := handlers.New(mgr, log)

	router.HandleFunc("/environments", h.GetEnvironments).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/files", h.UploadConfiguration).Methods(http.MethodPost)
	router.HandleFunc("/environments/{env}/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/files/{name}", h.GetFile).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/files/{name}/apply", h.ApplyConfiguration).Methods(http.MethodPost)
	router.HandleFunc("/environments/{env}/export", h.ExportEnvironmentToXml).Methods(http.MethodGet)
	router.HandleFunc("/environments/{env}/progress", h.GetSetupProgress).Methods(http.MethodGet)
	router.HandleFunc("/commands", h.GetCommands).Methods(http.MethodGet)

	return router
}

// metricsMiddleware records one metrics.RequestsTotal observation per
// request, labeled by the matched route template so cardinality stays
// bounded regardless of path parameters.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if matched := mux.CurrentRoute(r); matched != nil {
			if tmpl, err := matched.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RequestsTotal.WithLabelValues(route, statusClass(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Service:   "insalatad",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
