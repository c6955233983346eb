package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/mirador-intel/internal/models"
)

func TestRegisterTwiceIsTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveActionExecutionLabelsOutcome(t *testing.T) {
	before := testutil.ToFloat64(actionExecutionsTotal.WithLabelValues(string(models.ActionSetCostMode), OutcomeError))
	ObserveActionExecution(models.ActionSetCostMode, false)
	after := testutil.ToFloat64(actionExecutionsTotal.WithLabelValues(string(models.ActionSetCostMode), OutcomeError))
	if after-before != 1 {
		t.Fatalf("expected error counter to grow by 1, got %v", after-before)
	}
}

func TestObserveProfileWrite(t *testing.T) {
	before := testutil.ToFloat64(profileWritesTotal.WithLabelValues(OutcomeError))
	ObserveProfileWrite(errors.New("boom"))
	ObserveProfileWrite(nil)
	after := testutil.ToFloat64(profileWritesTotal.WithLabelValues(OutcomeError))
	if after-before != 1 {
		t.Fatalf("expected one failed write, got %v", after-before)
	}
}

func TestObserveInsightsBySeverity(t *testing.T) {
	before := testutil.ToFloat64(insightsTotal.WithLabelValues(string(models.SeverityCritical)))
	ObserveInsights([]models.Insight{
		{ID: "a", Severity: models.SeverityCritical},
		{ID: "b", Severity: models.SeverityCritical},
		{ID: "c", Severity: models.SeverityInfo},
	})
	after := testutil.ToFloat64(insightsTotal.WithLabelValues(string(models.SeverityCritical)))
	if after-before != 2 {
		t.Fatalf("expected 2 critical insights, got %v", after-before)
	}
}
