package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/nav"
)

// defaultFlushEvery batches this many ticks per write, about five
// seconds of driving at the default tick rate.
const defaultFlushEvery = 50

// Recorder buffers navigation snapshots and writes them to the store in
// batches so the navigation loop never waits on SQLite.
type Recorder struct {
	store *Store
	run   *Run

	mu  sync.Mutex
	buf []TickSample

	flushEvery int
	now        func() time.Time
}

// NewRecorder starts a new run and returns a recorder for it.
func NewRecorder(store *Store, actuator string) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("recorder needs a store")
	}

	run := &Run{
		ID:        uuid.New().String(),
		Actuator:  actuator,
		StartedAt: time.Now(),
	}
	if err := store.Runs().Create(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	log.Info("telemetry run started", "run_id", run.ID, "actuator", actuator)

	return &Recorder{
		store:      store,
		run:        run,
		flushEvery: defaultFlushEvery,
		now:        time.Now,
	}, nil
}

// RunID returns the identifier of the active run.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// RecordStatus buffers one tick snapshot.
func (r *Recorder) RecordStatus(st nav.Status) {
	sample := TickSample{
		RunID:          r.run.ID,
		Seq:            st.Ticks,
		At:             r.now(),
		State:          st.State,
		LinearMS:       st.LinearMS,
		AngularRadS:    st.AngularRadS,
		PersonVisible:  st.PersonVisible,
		ObstacleAhead:  st.ObstacleAhead,
		FrontDistanceM: st.FrontDistanceM,
	}
	if st.PersonDistanceM > 0 {
		d := st.PersonDistanceM
		sample.PersonDistanceM = &d
	}

	r.mu.Lock()
	r.buf = append(r.buf, sample)
	full := len(r.buf) >= r.flushEvery
	r.mu.Unlock()

	if full {
		if err := r.Flush(); err != nil {
			log.Warn("telemetry flush failed", "error", err)
		}
	}
}

// RecordTransition writes one transition immediately. Transitions are
// rare enough that batching would only risk losing them.
func (r *Recorder) RecordTransition(tr nav.Transition) {
	record := &TransitionRecord{
		RunID:     r.run.ID,
		At:        tr.At,
		FromState: tr.From.String(),
		ToState:   tr.To.String(),
		Cause:     tr.Cause,
	}
	if err := r.store.Transitions().Create(record); err != nil {
		log.Warn("telemetry transition write failed", "error", err)
	}
}

// Flush writes all buffered ticks to the store.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	pending := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	return r.store.Ticks().AppendBatch(pending)
}

// Close flushes pending ticks and marks the run as finished.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	if err := r.store.Runs().Finish(r.run.ID, r.now()); err != nil {
		return err
	}
	log.Info("telemetry run finished", "run_id", r.run.ID)
	return nil
}
