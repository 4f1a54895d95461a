package handler

import (
	"context"
	"net/http"

	"github.com/canopy-network/course-indexer/internal/query"
	"github.com/canopy-network/course-indexer/internal/worker"
	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// QueueInspector reports the state of the event stream. *worker.Worker implements it.
type QueueInspector interface {
	QueueStats(ctx context.Context) (worker.QueueStats, error)
}

// Handler holds the dependencies for API handlers
type Handler struct {
	Store      db.Store
	Engine     *query.Engine
	Queue      QueueInspector
	Logger     *zap.Logger
	AdminToken string
}

// NewHandler creates a new Handler instance. queue may be nil when no worker runs.
func NewHandler(store db.Store, engine *query.Engine, queue QueueInspector, logger *zap.Logger, adminToken string) *Handler {
	return &Handler{
		Store:      store,
		Engine:     engine,
		Queue:      queue,
		Logger:     logger,
		AdminToken: adminToken,
	}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.RequestID)

	// Public health check endpoint
	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/schema", h.HandleSchema).Methods(http.MethodGet)
	v1.HandleFunc("/audit-gaps", h.HandleAuditGaps).Methods(http.MethodGet)
	v1.HandleFunc("/query", h.HandleQuery).Methods(http.MethodPost)

	// Protected operator endpoints
	v1.HandleFunc("/admin/queue", h.RequireAuth(h.HandleQueue)).Methods(http.MethodGet)

	v1.HandleFunc("/{collection}", h.HandleList).Methods(http.MethodGet)
	v1.HandleFunc("/{collection}/{id}", h.HandleGet).Methods(http.MethodGet)

	return r
}

// RequestID tags every request and response with an id and logs the request.
func (h *Handler) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		h.Logger.Debug("api request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

// RequireAuth is a middleware that validates the bearer token
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + h.AdminToken

		if h.AdminToken == "" || auth != expected {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next(w, r)
	}
}

// HandleHealth returns a simple health check response
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
