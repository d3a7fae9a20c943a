package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveCompose(t *testing.T) {
	c := NewCollector("test")

	c.ObserveCompose(OutcomeMiss, 5*time.Millisecond, true)
	c.ObserveCompose(OutcomeHit, 0, false)
	c.ObserveCompose(OutcomeHit, 0, false)
	c.ObserveCompose(OutcomeDegraded, time.Millisecond, false)

	assert.InDelta(t, 1, testutil.ToFloat64(c.ComposeRequests.WithLabelValues(OutcomeMiss)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.ComposeRequests.WithLabelValues(OutcomeHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ComposeRequests.WithLabelValues(OutcomeDegraded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.MemoryTruncations), 0)
	// Cache hits are not timed
	assert.Equal(t, 1, testutil.CollectAndCount(c.ComposeDuration))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test")

	c.Invalidated(ReasonMessage, 2)
	c.Invalidated(ReasonMessage, 0)
	c.Invalidated(ReasonConnection, 1)
	c.ConnectionMutated("create")
	c.ConnectionMutated("create")
	c.LookupFailed()
	c.SubscriptionStarted()
	c.SubscriptionStarted()
	c.SubscriptionStopped()

	assert.InDelta(t, 2, testutil.ToFloat64(c.Invalidations.WithLabelValues(ReasonMessage)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Invalidations.WithLabelValues(ReasonConnection)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.ConnectionMutations.WithLabelValues("create")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.LookupFailures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ActiveSubscriptions), 0)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveCompose(OutcomeMiss, time.Second, true)
		c.Invalidated(ReasonMemory, 3)
		c.ConnectionMutated("delete")
		c.LookupFailed()
		c.SubscriptionStarted()
		c.SubscriptionStopped()
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("multiblock")
	c.ConnectionMutated("toggle")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `multiblock_connection_mutations_total{op="toggle"} 1`)
}
