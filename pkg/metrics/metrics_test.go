package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.ConnectionState == nil {
		t.Error("ConnectionState not initialized")
	}
	if r.ConnectsTotal == nil {
		t.Error("ConnectsTotal not initialized")
	}
	if r.MessagesReceivedTotal == nil {
		t.Error("MessagesReceivedTotal not initialized")
	}
	if r.RunsTotal == nil {
		t.Error("RunsTotal not initialized")
	}
	if r.ReconcilePassesTotal == nil {
		t.Error("ReconcilePassesTotal not initialized")
	}
	if r.WorkspaceOpsTotal == nil {
		t.Error("WorkspaceOpsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestSetConnectionState(t *testing.T) {
	r := NewRegistry()

	r.SetConnectionState("open")

	openGauge, err := r.ConnectionState.GetMetricWithLabelValues("open")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := openGauge.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("open gauge = %v, want 1", metric.Gauge.GetValue())
	}

	// Moving to closed must zero the previous state
	r.SetConnectionState("closed")

	if err := openGauge.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 0 {
		t.Errorf("open gauge after transition = %v, want 0", metric.Gauge.GetValue())
	}

	closedGauge, err := r.ConnectionState.GetMetricWithLabelValues("closed")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := closedGauge.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("closed gauge = %v, want 1", metric.Gauge.GetValue())
	}
}

func TestRecordMessageReceived(t *testing.T) {
	r := NewRegistry()

	r.RecordMessageReceived("execution_progress")
	r.RecordMessageReceived("execution_progress")
	r.RecordMessageReceived("connected")

	counter, err := r.MessagesReceivedTotal.GetMetricWithLabelValues("execution_progress")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Counter value = %v, want 2", metric.Counter.GetValue())
	}
}

func TestRecordRun(t *testing.T) {
	r := NewRegistry()

	r.RecordRun("completed", 2*time.Second)
	r.RecordRun("completed", 3*time.Second)
	r.RecordRun("failed", 0)
	r.RecordRun("rejected", 0)

	completed, err := r.RunsTotal.GetMetricWithLabelValues("completed")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := completed.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("completed counter = %v, want 2", metric.Counter.GetValue())
	}

	failed, err := r.RunsTotal.GetMetricWithLabelValues("failed")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := failed.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("failed counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordRunNodes(t *testing.T) {
	r := NewRegistry()

	r.RecordRunNodes(7, 3)
	r.RecordRunNodes(1, 0)

	executed, err := r.RunNodesTotal.GetMetricWithLabelValues("executed")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := executed.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 8 {
		t.Errorf("executed counter = %v, want 8", metric.Counter.GetValue())
	}
}

func TestRecordWorkspaceOp(t *testing.T) {
	r := NewRegistry()

	r.RecordWorkspaceOp("save", "success", 10*time.Millisecond)
	r.RecordWorkspaceOp("save", "success", 20*time.Millisecond)
	r.RecordWorkspaceOp("load", "error", 5*time.Millisecond)

	saves, err := r.WorkspaceOpsTotal.GetMetricWithLabelValues("save", "success")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := saves.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("save counter = %v, want 2", metric.Counter.GetValue())
	}

	loadErrors, err := r.WorkspaceOpsTotal.GetMetricWithLabelValues("load", "error")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := loadErrors.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("load error counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordReconcilePass(t *testing.T) {
	r := NewRegistry()

	r.RecordReconcilePass(10, 2)
	r.RecordReconcilePass(10, 0)

	var metric dto.Metric
	if err := r.ReconcilePassesTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("passes counter = %v, want 2", metric.Counter.GetValue())
	}

	if err := r.PortCountChangesTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("changes counter = %v, want 2", metric.Counter.GetValue())
	}
}
