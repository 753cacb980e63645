package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/observability/metrics"
)

func TestNewMetricsExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.ObserveRequest(http.MethodGet, "/api/v1/specimens", http.StatusOK, 15*time.Millisecond)
	m.Datastore.ObserveOperation(metrics.OpSave, "specimens", time.Millisecond, nil)
	m.Datastore.ObserveOperation(metrics.OpSave, "specimens", time.Millisecond, errors.New("disk full"))
	m.Bureau.RecordCrossLink(metrics.DirectionAdd, nil)
	m.ImageUpload.ObserveUpload("imgbb", 2048, time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `bpi_http_requests_total{code="200",method="GET",route="/api/v1/specimens"} 1`)
	assert.Contains(t, out, `bpi_datastore_operations_total{collection="specimens",operation="save",status="error"} 1`)
	assert.Contains(t, out, `bpi_crosslink_writes_total{direction="add",status="success"} 1`)
	assert.Contains(t, out, "go_goroutines")
}

func TestNilCollectorsAreNoOps(t *testing.T) {
	t.Parallel()

	var (
		h *metrics.HTTPMetrics
		d *metrics.DatastoreMetrics
		u *metrics.ImageUploadMetrics
		b *metrics.BureauMetrics
	)
	assert.NotPanics(t, func() {
		h.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		h.SSEConnected()
		d.IncDropped("specimens")
		u.ObserveUpload("s3", 1, time.Millisecond, nil)
		b.RecordAssociateCache(true)
	})
}

func TestSSEGauge(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.SSEConnected()
	m.HTTP.SSEConnected()
	m.HTTP.SSEDisconnected()

	count, err := testutil.GatherAndCount(m.Registry(), "bpi_sse_active_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(t, 1, m.HTTP.ActiveSSEConnections(), 0)

	var disabled *metrics.HTTPMetrics
	assert.Zero(t, disabled.ActiveSSEConnections())
}
