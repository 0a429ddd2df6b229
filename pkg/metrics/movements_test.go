package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMovementMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMovementMetrics(reg)
	txType := "sale"

	metrics.ObserveSaveDuration(txType, 250*time.Millisecond)
	metrics.IncLargeBatch(txType)
	metrics.IncSaveRetry(txType)
	metrics.IncSequenceExhaustion("batch")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "movement_large_batches_total", "transaction_type", txType); err != nil {
		t.Fatalf("fetch large batches: %v", err)
	} else if got != 1 {
		t.Fatalf("expected large batches=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "movement_save_retries_total", "transaction_type", txType); err != nil {
		t.Fatalf("fetch retries: %v", err)
	} else if got != 1 {
		t.Fatalf("expected retries=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sequence_capacity_exhausted_total", "sequence", "batch"); err != nil {
		t.Fatalf("fetch exhaustion: %v", err)
	} else if got != 1 {
		t.Fatalf("expected exhaustion=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "movement_save_duration_seconds", "transaction_type", txType); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestMovementMetricsNilRegistererIsInert(t *testing.T) {
	metrics := NewMovementMetrics(nil)
	metrics.ObserveSaveDuration("sale", time.Second)
	metrics.IncLargeBatch("sale")
	metrics.IncSaveRetry("sale")
	metrics.IncSequenceExhaustion("batch")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
