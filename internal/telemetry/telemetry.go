package telemetry

import (
	"log"
	"sync"
	"time"

	"partnerguide/config"
)

// Telemetry collects run and verification metrics for the guide pipeline.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu      sync.Mutex
	metrics Metrics
}

// Metrics is a snapshot of pipeline counters.
type Metrics struct {
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsPartial   int64 `json:"runs_partial"`
	RunsCancelled int64 `json:"runs_cancelled"`
	RunsFailed    int64 `json:"runs_failed"`

	PartnersEmitted int64 `json:"partners_emitted"`
	RoundsTotal     int64 `json:"rounds_total"`

	WebsiteChecksPassed  int64 `json:"website_checks_passed"`
	WebsiteChecksFailed  int64 `json:"website_checks_failed"`
	RegistryChecksPassed int64 `json:"registry_checks_passed"`
	RegistryChecksFailed int64 `json:"registry_checks_failed"`
	MapChecksPassed      int64 `json:"map_checks_passed"`
	MapChecksFailed      int64 `json:"map_checks_failed"`
}

func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
	}
	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startPeriodicLogs()
	}
	return t
}

// RecordRunStart counts a new run.
func (t *Telemetry) RecordRunStart() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.RunsStarted++
	t.mu.Unlock()
}

// RecordRunEnd counts a terminal state plus the rounds it took.
func (t *Telemetry) RecordRunEnd(state string, rounds, partners int) {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch state {
	case "completed":
		t.metrics.RunsCompleted++
	case "partial":
		t.metrics.RunsPartial++
	case "cancelled":
		t.metrics.RunsCancelled++
	default:
		t.metrics.RunsFailed++
	}
	t.metrics.RoundsTotal += int64(rounds)
	t.metrics.PartnersEmitted += int64(partners)
}

// RecordVerification counts one candidate's three check outcomes.
func (t *Telemetry) RecordVerification(website, registry, mapListing bool) {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	bump(&t.metrics.WebsiteChecksPassed, &t.metrics.WebsiteChecksFailed, website)
	bump(&t.metrics.RegistryChecksPassed, &t.metrics.RegistryChecksFailed, registry)
	bump(&t.metrics.MapChecksPassed, &t.metrics.MapChecksFailed, mapListing)
}

func bump(passed, failed *int64, ok bool) {
	if ok {
		*passed++
	} else {
		*failed++
	}
}

// GetMetrics returns a copy of the current counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

func (t *Telemetry) startPeriodicLogs() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		m := t.GetMetrics()
		t.logger.Printf("runs started=%d completed=%d partial=%d cancelled=%d failed=%d partners=%d",
			m.RunsStarted, m.RunsCompleted, m.RunsPartial, m.RunsCancelled, m.RunsFailed, m.PartnersEmitted)
	}
}
