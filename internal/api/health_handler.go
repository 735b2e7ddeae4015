package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"accountsvc/pkg/cache"
	"accountsvc/pkg/logger"
	"accountsvc/pkg/notify"
)

const healthCheckTimeout = 2 * time.Second

// HealthSource exposes the process-wide handles the probes ping. Exactly one
// of GetDB and GetMongoClient is non-nil, depending on the storage driver.
type HealthSource interface {
	GetDB() *sql.DB
	GetMongoClient() *mongo.Client
	GetCache() cache.Cache
	GetNotifierQueue() notify.QueueDepth
}

type HealthHandler struct {
	source  HealthSource
	version string
	logger  logger.Logger
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
	Version   string                 `json:"version"`
}

func NewHealthHandler(source HealthSource, version string, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		source:  source,
		version: version,
		logger:  logger,
	}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	services := map[string]interface{}{
		"storage":  h.checkStorage(ctx),
		"cache":    h.checkCache(ctx),
		"notifier": h.checkNotifier(),
	}

	status := "healthy"
	for _, service := range services {
		if serviceMap, ok := service.(map[string]interface{}); ok && serviceMap["status"] != "healthy" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
	}

	if status == "healthy" {
		writeJSON(w, http.StatusOK, response)
		return
	}
	h.logger.WarnContext(r.Context(), "Health check degraded", map[string]interface{}{"services": services})
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func (h *HealthHandler) checkStorage(ctx context.Context) map[string]interface{} {
	if db := h.source.GetDB(); db != nil {
		if err := db.PingContext(ctx); err != nil {
			return unhealthy(err.Error())
		}
		stats := db.Stats()
		return map[string]interface{}{
			"status":           "healthy",
			"driver":           "sql",
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration":    stats.WaitDuration.String(),
		}
	}

	if client := h.source.GetMongoClient(); client != nil {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return unhealthy(err.Error())
		}
		return map[string]interface{}{
			"status": "healthy",
			"driver": "mongo",
		}
	}

	return unhealthy("storage is not configured")
}

func (h *HealthHandler) checkCache(ctx context.Context) map[string]interface{} {
	c := h.source.GetCache()
	if c == nil {
		return unhealthy("cache is nil")
	}
	if _, disabled := c.(cache.NoopCache); disabled {
		return map[string]interface{}{"status": "healthy", "enabled": false}
	}

	if err := c.Ping(ctx); err != nil {
		return unhealthy(err.Error())
	}
	return map[string]interface{}{"status": "healthy", "enabled": true}
}

// checkNotifier reports reset notice backlog. A full queue means new reset
// requests are being rejected.
func (h *HealthHandler) checkNotifier() map[string]interface{} {
	q := h.source.GetNotifierQueue()
	if q == nil {
		return unhealthy("notifier is not configured")
	}

	length, capacity := q.QueueLength(), q.QueueCapacity()
	status := map[string]interface{}{
		"status":         "healthy",
		"queue_length":   length,
		"queue_capacity": capacity,
	}
	if length >= capacity {
		status["status"] = "unhealthy"
		status["error"] = "notifier queue is full"
	}
	return status
}

func unhealthy(reason string) map[string]interface{} {
	return map[string]interface{}{
		"status": "unhealthy",
		"error":  reason,
	}
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// ReadinessCheck gates on storage only.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]interface{}{
		"timestamp": time.Now(),
	}

	storage := h.checkStorage(ctx)
	if storage["status"] == "healthy" {
		response["status"] = "ready"
		writeJSON(w, http.StatusOK, response)
		return
	}

	response["status"] = "not_ready"
	response["issues"] = []string{"storage: " + storage["error"].(string)}
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /health/live", h.LivenessCheck)
	mux.HandleFunc("GET /health/ready", h.ReadinessCheck)
}
