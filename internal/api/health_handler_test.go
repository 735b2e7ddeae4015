package api

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"accountsvc/pkg/cache"
	"accountsvc/pkg/logger"
	"accountsvc/pkg/notify"
)

type fakeSource struct {
	db    *sql.DB
	cache cache.Cache
	queue *fakeQueue
}

func (s fakeSource) GetDB() *sql.DB                { return s.db }
func (s fakeSource) GetMongoClient() *mongo.Client { return nil }
func (s fakeSource) GetCache() cache.Cache         { return s.cache }

func (s fakeSource) GetNotifierQueue() notify.QueueDepth {
	if s.queue == nil {
		return &fakeQueue{capacity: 8}
	}
	return s.queue
}

type fakeQueue struct{ length, capacity int }

func (q *fakeQueue) QueueLength() int   { return q.length }
func (q *fakeQueue) QueueCapacity() int { return q.capacity }

type failingPingCache struct{ cache.NoopCache }

func (failingPingCache) Ping(_ context.Context) error { return errors.New("dial tcp: connection refused") }

func newHealthMux(src HealthSource) *http.ServeMux {
	mux := http.NewServeMux()
	NewHealthHandler(src, "test", logger.New(logger.ErrorLevel, io.Discard)).RegisterRoutes(mux)
	return mux
}

func newPingDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestHealthCheck_Healthy(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	rec, body := do(t, newHealthMux(fakeSource{db: db, cache: cache.NoopCache{}}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])

	services := body["services"].(map[string]interface{})
	assert.Equal(t, false, services["cache"].(map[string]interface{})["enabled"])
	notifier := services["notifier"].(map[string]interface{})
	assert.Equal(t, "healthy", notifier["status"])
	assert.Equal(t, float64(0), notifier["queue_length"])
	assert.Equal(t, float64(8), notifier["queue_capacity"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_NotifierBacklog(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()
	mock.ExpectPing()

	queue := &fakeQueue{length: 3, capacity: 4}
	mux := newHealthMux(fakeSource{db: db, cache: cache.NoopCache{}, queue: queue})

	rec, body := do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	notifier := body["services"].(map[string]interface{})["notifier"].(map[string]interface{})
	assert.Equal(t, float64(3), notifier["queue_length"])
	assert.Equal(t, float64(4), notifier["queue_capacity"])

	queue.length = 4
	rec, body = do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	notifier = body["services"].(map[string]interface{})["notifier"].(map[string]interface{})
	assert.Equal(t, "notifier queue is full", notifier["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_DegradedCache(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	rec, body := do(t, newHealthMux(fakeSource{db: db, cache: failingPingCache{}}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("database is locked"))

	mux := newHealthMux(fakeSource{db: db, cache: failingPingCache{}})

	rec, body := do(t, mux, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code, "cache outage must not fail readiness")
	assert.Equal(t, "ready", body["status"])

	rec, body = do(t, mux, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, []interface{}{"storage: database is locked"}, body["issues"])
}

func TestReadinessCheck_NoStorage(t *testing.T) {
	rec, _ := do(t, newHealthMux(fakeSource{cache: cache.NoopCache{}}), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessCheck(t *testing.T) {
	rec, body := do(t, newHealthMux(fakeSource{}), http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}
