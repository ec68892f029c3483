package telemetry

import (
	"testing"

	"partnerguide/config"
)

func TestRecordRunLifecycle(t *testing.T) {
	tel := NewTelemetry(config.TelemetryConfig{Enabled: true})
	tel.RecordRunStart()
	tel.RecordRunEnd("completed", 2, 10)
	tel.RecordRunStart()
	tel.RecordRunEnd("cancelled", 1, 3)
	tel.RecordRunStart()
	tel.RecordRunEnd("failed", 5, 0)

	m := tel.GetMetrics()
	if m.RunsStarted != 3 {
		t.Fatalf("RunsStarted = %d", m.RunsStarted)
	}
	if m.RunsCompleted != 1 || m.RunsCancelled != 1 || m.RunsFailed != 1 {
		t.Fatalf("terminal counters wrong: %+v", m)
	}
	if m.RoundsTotal != 8 || m.PartnersEmitted != 13 {
		t.Fatalf("aggregates wrong: rounds=%d partners=%d", m.RoundsTotal, m.PartnersEmitted)
	}
}

func TestRecordVerificationCounters(t *testing.T) {
	tel := NewTelemetry(config.TelemetryConfig{Enabled: true})
	tel.RecordVerification(true, false, true)
	tel.RecordVerification(false, false, true)

	m := tel.GetMetrics()
	if m.WebsiteChecksPassed != 1 || m.WebsiteChecksFailed != 1 {
		t.Fatalf("website counters: %+v", m)
	}
	if m.RegistryChecksFailed != 2 {
		t.Fatalf("registry counters: %+v", m)
	}
	if m.MapChecksPassed != 2 {
		t.Fatalf("map counters: %+v", m)
	}
}

func TestDisabledTelemetryIsInert(t *testing.T) {
	tel := NewTelemetry(config.TelemetryConfig{Enabled: false})
	tel.RecordRunStart()
	tel.RecordRunEnd("completed", 1, 1)
	tel.RecordVerification(true, true, true)
	if m := tel.GetMetrics(); m != (Metrics{}) {
		t.Fatalf("disabled telemetry recorded: %+v", m)
	}
}
