package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "reservation-expiry"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddSwept(job, 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "circulation_job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "circulation_job_failure", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "circulation_reservations_swept_total", "job", job); err != nil {
		t.Fatalf("fetch swept: %v", err)
	} else if got != 3 {
		t.Fatalf("expected swept=3, got %f", got)
	}
	if findMetricFamily(mfs, "circulation_job_duration_seconds") == nil {
		t.Fatal("expected duration histogram to be registered")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var metrics *CronJobMetrics
	metrics.ObserveDuration("x", time.Second)
	metrics.IncSuccess("x")
	metrics.IncFailure("x")
	metrics.AddSwept("x", 1)

	unregistered := NewCronJobMetrics(nil)
	unregistered.IncSuccess("x")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, labelName, labelValue string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric family %q not found", name)
	}
	for _, m := range mf.GetMetric() {
		if matchesLabel(m.GetLabel(), labelName, labelValue) {
			return m.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("no metric with label %s=%s", labelName, labelValue)
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
