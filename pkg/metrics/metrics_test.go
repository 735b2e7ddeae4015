package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHttpRequest(t *testing.T) {
	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("POST", "POST /login", "200"))
	RecordHttpRequest("POST", "POST /login", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("POST", "POST /login", "200"))

	assert.Equal(t, before+1, after)
}

func TestRecordAccountEvent(t *testing.T) {
	before := testutil.ToFloat64(AccountEventsTotal.WithLabelValues("signup", "created"))
	RecordAccountEvent("signup", "created")
	assert.Equal(t, before+1, testutil.ToFloat64(AccountEventsTotal.WithLabelValues("signup", "created")))
}

func TestUpdateNotifierStats(t *testing.T) {
	UpdateNotifierStats(7, 2)
	assert.Equal(t, float64(7), testutil.ToFloat64(NotifierQueueSize))
	assert.Equal(t, float64(2), testutil.ToFloat64(NotifierActiveWorkers))
}
