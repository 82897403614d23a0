package goOTP

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricVerifySuccess)

	if got := m.Value(MetricVerifySuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricVerifySuccess)
	m.Inc(MetricVerifySuccess)
	m.Inc(MetricVerifySuccess)

	if got := m.Value(MetricVerifySuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricChallengeCreated)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricChallengeCreated); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	m.Observe(MetricCheckLatency, 1*time.Millisecond)
	m.Observe(MetricCheckLatency, 20*time.Millisecond)
	m.Observe(MetricCheckLatency, 3*time.Second)

	snapshot := m.Snapshot()
	buckets := snapshot.Histograms[MetricCheckLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 3 {
		t.Fatalf("expected 3 observations, got %d", total)
	}
	if buckets[0] != 1 {
		t.Fatalf("expected the 1ms observation in the first bucket, got %v", buckets)
	}
	if buckets[len(buckets)-1] != 1 {
		t.Fatalf("expected the 3s observation in the overflow bucket, got %v", buckets)
	}
}

func TestMetricsSnapshotIsolated(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricVerifyFailure)

	snapshot := m.Snapshot()
	snapshot.Counters[MetricVerifyFailure] = 99

	if got := m.Value(MetricVerifyFailure); got != 1 {
		t.Fatalf("snapshot mutation leaked into live counters: %d", got)
	}
}
