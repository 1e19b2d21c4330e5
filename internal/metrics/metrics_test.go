package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/https-example/internal/metrics"
)

// Label values below are unique to each test so parallel tests and the
// middleware tests sharing the default registry cannot interfere.

func TestServerStartedTotal_CountsPerMethod(t *testing.T) {
	t.Parallel()

	counter := metrics.ServerStartedTotal.WithLabelValues("PATCH")
	before := testutil.ToFloat64(counter)

	counter.Inc()
	counter.Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestServerHandledTotal_CountsPerRouteMethodCode(t *testing.T) {
	t.Parallel()

	matched := metrics.ServerHandledTotal.WithLabelValues("/teapot", "GET", "418")
	unmatched := metrics.ServerHandledTotal.WithLabelValues("unmatched", "DELETE", "404")
	matchedBefore := testutil.ToFloat64(matched)
	unmatchedBefore := testutil.ToFloat64(unmatched)

	matched.Inc()
	unmatched.Inc()
	unmatched.Inc()

	assert.Equal(t, matchedBefore+1, testutil.ToFloat64(matched))
	assert.Equal(t, unmatchedBefore+2, testutil.ToFloat64(unmatched))
}

func TestServerHandlingSeconds_TracksLabelledSeries(t *testing.T) {
	t.Parallel()

	before := testutil.CollectAndCount(metrics.ServerHandlingSeconds, "http_server_handling_seconds")

	metrics.ServerHandlingSeconds.WithLabelValues("/latency-probe", "GET").Observe(0.25)

	after := testutil.CollectAndCount(metrics.ServerHandlingSeconds, "http_server_handling_seconds")
	assert.GreaterOrEqual(t, after, before+1)
}

func TestAuthAttemptsTotal_CountsPerMechanismAndResult(t *testing.T) {
	t.Parallel()

	success := metrics.AuthAttemptsTotal.WithLabelValues("probe", "success")
	failure := metrics.AuthAttemptsTotal.WithLabelValues("probe", "failure")
	successBefore := testutil.ToFloat64(success)
	failureBefore := testutil.ToFloat64(failure)

	success.Inc()
	failure.Inc()
	failure.Inc()

	assert.Equal(t, successBefore+1, testutil.ToFloat64(success))
	assert.Equal(t, failureBefore+2, testutil.ToFloat64(failure))
}

// The scrape endpoint serves whatever the default registry gathers, so every
// instrument must register there under its expected name.
func TestMetricNamesInDefaultRegistry(t *testing.T) {
	t.Parallel()

	metrics.ServerStartedTotal.WithLabelValues("GET").Inc()
	metrics.ServerHandledTotal.WithLabelValues("/hello", "GET", "200").Inc()
	metrics.ServerHandlingSeconds.WithLabelValues("/hello", "GET").Observe(0.01)
	metrics.AuthAttemptsTotal.WithLabelValues("mtls", "success").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	registered := make(map[string]bool, len(families))
	for _, mf := range families {
		registered[mf.GetName()] = true
	}

	for _, name := range []string{
		"http_server_started_total",
		"http_server_handled_total",
		"http_server_handling_seconds",
		"auth_attempts_total",
	} {
		assert.True(t, registered[name], "metric %s not registered", name)
	}
}
