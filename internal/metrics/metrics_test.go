package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStore(t *testing.T) {
	m := New()
	m.ObserveStore("load", time.Now(), nil)
	m.ObserveStore("save", time.Now(), errors.New("disk full"))
	m.ObserveStore("save", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("load", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("save", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("save", StatusOK)))
}

func TestObserveSyncFetchAndCharacters(t *testing.T) {
	m := New()
	m.ObserveSyncFetch("equipment", nil)
	m.ObserveSyncFetch("media", errors.New("timeout"))
	m.SetCharacters(4)
	m.ObserveMigration(2, 3, 0, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncFetches.WithLabelValues("equipment", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncFetches.WithLabelValues("media", StatusError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.characters))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.migrations.WithLabelValues("backfilled")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStore("load", time.Now(), nil)
		m.ObserveSyncFetch("profile", nil)
		m.ObserveHTTP("GET", 200, time.Millisecond)
		m.SetCharacters(1)
		m.ObserveMigration(1, 1, 1, 1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `roster_http_requests_total{code="200",method="GET"} 1`)
}
