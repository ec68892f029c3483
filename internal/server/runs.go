package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"partnerguide/internal/guide"
)

// Event is one server-sent event: a progress update, a partner record, a
// terminal result or a terminal error.
type Event struct {
	Type string      `json:"type"` // progress | partner | done | error
	Data interface{} `json:"data"`
}

// Run is one tracked guide generation run. Events are buffered so a client
// that connects late (or reconnects) replays the full stream.
type Run struct {
	ID string

	mu     sync.Mutex
	events []Event
	subs   map[chan Event]struct{}
	done   bool
	cancel context.CancelFunc
	result *guide.RunResult
	err    error
}

// sink adapts a Run to the pipeline's event interface.
type sink struct{ run *Run }

func (s sink) OnProgress(ev guide.ProgressEvent) { s.run.publish(Event{Type: "progress", Data: ev}) }
func (s sink) OnPartner(p guide.PartnerRecord)   { s.run.publish(Event{Type: "partner", Data: p}) }

func (r *Run) publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.events = append(r.events, ev)
	for ch := range r.subs {
		select {
		case ch <- ev:
		default: // slow subscriber; it will catch up from the buffer
		}
	}
}

// complete records the terminal outcome, emits the final event and closes
// every subscriber channel.
func (r *Run) complete(res guide.RunResult, err error) {
	final := Event{Type: "done", Data: res}
	if err != nil {
		final = Event{Type: "error", Data: map[string]string{"error": err.Error()}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &res
	r.err = err
	r.events = append(r.events, final)
	r.done = true
	for ch := range r.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
	}
	r.subs = nil
}

// subscribe returns the already-buffered events plus a live channel. The
// channel is closed when the run ends; ch is nil if it already has.
func (r *Run) subscribe() (replay []Event, ch chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replay = append(replay, r.events...)
	if r.done {
		return replay, nil
	}
	ch = make(chan Event, 64)
	if r.subs == nil {
		r.subs = make(map[chan Event]struct{})
	}
	r.subs[ch] = struct{}{}
	return replay, ch
}

func (r *Run) unsubscribe(ch chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
		close(ch)
	}
}

func (r *Run) snapshot() (result *guide.RunResult, done bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.done, r.err
}

// Runner executes a guide run. The orchestrator satisfies this.
type Runner interface {
	Run(ctx context.Context, req guide.SearchRequest, sink guide.EventSink) (guide.RunResult, error)
}

// defaultMaxFinishedRuns bounds how many finished runs (and their buffered
// event streams) stay queryable before the oldest are evicted.
const defaultMaxFinishedRuns = 128

// RunManager owns all in-flight and finished runs. In-flight runs are never
// evicted; finished ones are retained oldest-out up to a fixed cap so the
// table cannot grow for the process lifetime.
type RunManager struct {
	runner      Runner
	maxFinished int

	mu       sync.RWMutex
	runs     map[string]*Run
	finished []string // completion order, oldest first
}

func NewRunManager(runner Runner) *RunManager {
	return &RunManager{
		runner:      runner,
		maxFinished: defaultMaxFinishedRuns,
		runs:        make(map[string]*Run),
	}
}

// Start launches a run in the background and returns its ID immediately.
func (m *RunManager) Start(req guide.SearchRequest) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{ID: uuid.New().String(), cancel: cancel}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	go func() {
		defer cancel()
		res, err := m.runner.Run(ctx, req, sink{run: run})
		run.complete(res, err)
		m.retire(run.ID)
	}()
	return run
}

// retire records a run as finished and evicts the oldest finished runs
// beyond the retention cap.
func (m *RunManager) retire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, id)
	for len(m.finished) > m.maxFinished {
		evict := m.finished[0]
		m.finished = m.finished[1:]
		delete(m.runs, evict)
	}
}

func (m *RunManager) Get(id string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	return run, ok
}

// Cancel requests cancellation; the run still finishes through its normal
// terminal path and keeps the partners found so far.
func (m *RunManager) Cancel(id string) bool {
	run, ok := m.Get(id)
	if !ok {
		return false
	}
	run.cancel()
	return true
}
