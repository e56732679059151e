package metric

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/represent/errors"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCollectors(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NoError(t, registry.Register("svc", "test_counter",
		prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "h"})))
	require.NoError(t, registry.Register("svc", "test_gauge",
		prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "h"})))

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "h"})
	require.NoError(t, registry.Register("svc", "test_histogram", hist))
	hist.Observe(1)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "h"}, []string{"l"})
	require.NoError(t, registry.Register("svc", "test_counter_vec", vec))
	vec.WithLabelValues("a").Inc()

	hvec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "h"}, []string{"l"})
	require.NoError(t, registry.Register("svc", "test_histogram_vec", hvec))
	hvec.WithLabelValues("a").Observe(1)

	names := gatheredNames(t, registry)
	for _, name := range []string{"test_histogram", "test_counter_vec", "test_histogram_vec"} {
		assert.True(t, names[name], "%s should be gathered", name)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})
	require.NoError(t, registry.Register("svc", "dup_counter", first))

	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})
	err := registry.Register("svc", "dup_counter", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same prometheus name under a different key is rejected by prometheus itself
	err = registry.Register("other", "dup_counter", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "h"})
	require.NoError(t, registry.Register("svc", "gone_counter", counter))
	counter.Inc()

	assert.True(t, registry.Unregister("svc", "gone_counter"))
	assert.False(t, registry.Unregister("svc", "gone_counter"))
	assert.False(t, gatheredNames(t, registry)["gone_counter"])

	// The name can be reused after unregistering
	again := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "h"})
	assert.NoError(t, registry.Register("svc", "gone_counter", again))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			name := fmt.Sprintf("concurrent_counter_%d", id)
			counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "h"})
			counter.Inc()
			assert.NoError(t, registry.Register("concurrent-service", name, counter))
		}(i)
	}

	wg.Wait()

	count := 0
	for name := range gatheredNames(t, registry) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			count++
		}
	}
	assert.Equal(t, numGoroutines, count, "All concurrent counters should be registered")
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordProtein(7, 1, 2, 3, 5*time.Millisecond)
	core.RecordProtein(3, 0, 0, 1, time.Millisecond)
	core.RecordCluster(12, true)
	core.RecordCluster(1, false)
	core.RecordDocument("file", "ok", time.Second)
	core.RecordError("annotator", "fatal")
	core.RecordNATSStatus(true)
	core.RecordNATSReconnect()

	assert.Equal(t, 2.0, testutil.ToFloat64(core.ProteinsProcessed))
	assert.Equal(t, 10.0, testutil.ToFloat64(core.Candidates.WithLabelValues(OutcomeConsidered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.Candidates.WithLabelValues(OutcomeMalformed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(core.Candidates.WithLabelValues(OutcomeCapped)))
	assert.Equal(t, 4.0, testutil.ToFloat64(core.Representatives))
	assert.Equal(t, 2.0, testutil.ToFloat64(core.Clusters))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.CappedClusters))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.DocumentsProcessed.WithLabelValues("file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("annotator", "fatal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSReconnects))

	core.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(core.NATSConnected))
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordCluster(4, false)

	server := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", server.Address())

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "represent_selection_clusters_total")

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	server := NewServer(0, "/metrics", nil)
	err := server.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.NoError(t, server.Stop())
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	require.NoError(t, server.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start kept running after Shutdown")
	}
}

func TestServer_CustomHealthHandler(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	server.SetHealthHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_ScrapeParses(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()
	core.RecordProtein(5, 1, 2, 3, 10*time.Millisecond)
	core.RecordCluster(7, true)

	server := NewServer(0, "/metrics", registry)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)

	counterValue := func(name string, labels map[string]string) float64 {
		t.Helper()
		family, ok := families[name]
		require.True(t, ok, "%s not scraped", name)
		require.Equal(t, dto.MetricType_COUNTER, family.GetType())
		for _, m := range family.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return m.GetCounter().GetValue()
			}
		}
		t.Fatalf("%s%v not scraped", name, labels)
		return 0
	}

	assert.Equal(t, 1.0, counterValue("represent_selection_proteins_total", nil))
	assert.Equal(t, 5.0, counterValue("represent_selection_candidates_total", map[string]string{"outcome": "considered"}))
	assert.Equal(t, 2.0, counterValue("represent_selection_candidates_total", map[string]string{"outcome": "capped"}))
	assert.Equal(t, 3.0, counterValue("represent_selection_representatives_total", nil))
	assert.Equal(t, 1.0, counterValue("represent_selection_capped_clusters_total", nil))

	cliques := families["represent_selection_cliques_per_cluster"]
	require.NotNil(t, cliques)
	assert.Equal(t, dto.MetricType_HISTOGRAM, cliques.GetType())
	assert.Equal(t, uint64(1), cliques.GetMetric()[0].GetHistogram().GetSampleCount())
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
