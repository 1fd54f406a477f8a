package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hamed0406/pingprobe/internal/domain"
)

func twoTargets() []domain.Target {
	return []domain.Target{
		{Kind: domain.KindPing, Address: "a", Labels: map[string]string{"region": "us"}},
		{Kind: domain.KindPing, Address: "b"},
	}
}

func TestNew_SchemaIsUnion(t *testing.T) {
	agg, err := New(twoTargets())
	require.NoError(t, err)
	require.Equal(t, []string{"region"}, agg.Schema())
}

func TestNew_RejectsReservedLabel(t *testing.T) {
	_, err := New([]domain.Target{{Address: "a", Labels: map[string]string{"status": "x"}}})
	require.Error(t, err)
}

func TestNew_PreinitialisesEveryStatus(t *testing.T) {
	agg, err := New(twoTargets())
	require.NoError(t, err)
	require.Equal(t, 2*len(domain.Statuses), testutil.CollectAndCount(agg.attempts))
	require.Equal(t, 0, testutil.CollectAndCount(agg.latency))
}

func TestObserve_SuccessCountsAndRecordsLatency(t *testing.T) {
	targets := twoTargets()
	agg, err := New(targets, WithBuckets([]float64{10, 100}))
	require.NoError(t, err)

	agg.Observe(domain.Outcome{Target: &targets[0], Success: true, Status: domain.StatusSuccess, LatencyMS: 12.3})

	require.Equal(t, 1.0, testutil.ToFloat64(agg.attempts.WithLabelValues("a", "success", "us")))

	want := `
# HELP pingprobe_probe_latency_ms Round trip latency of successful probes in milliseconds.
# TYPE pingprobe_probe_latency_ms histogram
pingprobe_probe_latency_ms_bucket{address="a",region="us",le="10"} 0
pingprobe_probe_latency_ms_bucket{address="a",region="us",le="100"} 1
pingprobe_probe_latency_ms_bucket{address="a",region="us",le="+Inf"} 1
pingprobe_probe_latency_ms_sum{address="a",region="us"} 12.3
pingprobe_probe_latency_ms_count{address="a",region="us"} 1
`
	require.NoError(t, testutil.CollectAndCompare(agg.latency, strings.NewReader(want), "pingprobe_probe_latency_ms"))
}

func TestObserve_FailureCountsWithoutLatency(t *testing.T) {
	targets := twoTargets()
	agg, err := New(targets)
	require.NoError(t, err)

	agg.Observe(domain.Outcome{Target: &targets[0], Status: domain.StatusTimeout})
	agg.Observe(domain.Outcome{Target: &targets[0], Status: domain.StatusTimeout})

	require.Equal(t, 2.0, testutil.ToFloat64(agg.attempts.WithLabelValues("a", "timeout", "us")))
	require.Equal(t, 0.0, testutil.ToFloat64(agg.attempts.WithLabelValues("a", "success", "us")))
	require.Equal(t, 0, testutil.CollectAndCount(agg.latency))
}

func TestObserve_MissingLabelIsEmptyString(t *testing.T) {
	targets := twoTargets()
	agg, err := New(targets)
	require.NoError(t, err)

	agg.Observe(domain.Outcome{Target: &targets[1], Success: true, Status: domain.StatusSuccess, LatencyMS: 1})

	require.Equal(t, 1.0, testutil.ToFloat64(agg.attempts.WithLabelValues("b", "success", "")))
	require.Equal(t, map[string]string{"region": ""}, agg.LabelValues(&targets[1]))
}

func TestObserve_ConcurrentNoLostUpdates(t *testing.T) {
	targets := twoTargets()
	agg, err := New(targets)
	require.NoError(t, err)

	const workers, perWorker = 32, 500
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(tg *domain.Target) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				agg.Observe(domain.Outcome{Target: tg, Success: true, Status: domain.StatusSuccess, LatencyMS: 3})
			}
		}(&targets[w%2])
	}
	wg.Wait()

	total := testutil.ToFloat64(agg.attempts.WithLabelValues("a", "success", "us")) +
		testutil.ToFloat64(agg.attempts.WithLabelValues("b", "success", ""))
	require.Equal(t, float64(workers*perWorker), total)
}

func TestHandler_ExposesSeries(t *testing.T) {
	targets := twoTargets()
	agg, err := New(targets)
	require.NoError(t, err)
	agg.Observe(domain.Outcome{Target: &targets[1], Status: domain.StatusNoResponseError})

	srv := httptest.NewServer(agg.Handler(nil))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), `pingprobe_probe_attempts_total{address="b",region="",status="no_response_error"} 1`)
	require.Contains(t, string(body), `pingprobe_probe_attempts_total{address="a",region="us",status="success"} 0`)
}

func TestObserve_MirrorsIntoOTel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	targets := twoTargets()
	agg, err := New(targets, WithMeter(mp.Meter("test")))
	require.NoError(t, err)

	agg.Observe(domain.Outcome{Target: &targets[0], Success: true, Status: domain.StatusSuccess, LatencyMS: 4})
	agg.Observe(domain.Outcome{Target: &targets[1], Status: domain.StatusTimeout})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var attempts int64
	var latencyCount uint64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		switch data := m.Data.(type) {
		case metricdata.Sum[int64]:
			for _, dp := range data.DataPoints {
				attempts += dp.Value
				region, ok := dp.Attributes.Value("region")
				require.True(t, ok, "every point carries the full schema")
				if addr, _ := dp.Attributes.Value("address"); addr.AsString() == "b" {
					require.Equal(t, "", region.AsString())
				}
			}
		case metricdata.Histogram[float64]:
			for _, dp := range data.DataPoints {
				latencyCount += dp.Count
			}
		}
	}
	require.Equal(t, int64(2), attempts)
	require.Equal(t, uint64(1), latencyCount)
}
