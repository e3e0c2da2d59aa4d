package telemetry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/nav"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(t *testing.T, s *Store, id string) *Run {
	t.Helper()

	run := &Run{ID: id, Actuator: "sim", StartedAt: time.Now()}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestNewStoreRunsMigrations(t *testing.T) {
	s := testStore(t)

	tables := []string{"runs", "ticks", "transitions"}
	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestStoreForeignKeysEnabled(t *testing.T) {
	s := testStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	testRun(t, s, "run-1")

	got, err := s.Runs().GetByID("run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Actuator != "sim" {
		t.Errorf("actuator = %q, want sim", got.Actuator)
	}
	if got.EndedAt != nil {
		t.Error("live run should have nil EndedAt")
	}

	ended := time.Now().Add(time.Minute)
	if err := s.Runs().Finish("run-1", ended); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err = s.Runs().GetByID("run-1")
	if err != nil {
		t.Fatalf("GetByID after finish failed: %v", err)
	}
	if got.EndedAt == nil {
		t.Fatal("finished run should have EndedAt set")
	}
	if got.Duration(time.Now()) <= 0 {
		t.Error("finished run duration should be positive")
	}
}

func TestRunNotFound(t *testing.T) {
	s := testStore(t)

	if _, err := s.Runs().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID error = %v, want ErrNotFound", err)
	}
	if err := s.Runs().Finish("missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish error = %v, want ErrNotFound", err)
	}
	if _, err := s.Runs().Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty db error = %v, want ErrNotFound", err)
	}
}

func TestRunLatest(t *testing.T) {
	s := testStore(t)

	older := &Run{ID: "run-old", Actuator: "sim", StartedAt: time.Now().Add(-time.Hour)}
	if err := s.Runs().Create(older); err != nil {
		t.Fatalf("create older run: %v", err)
	}
	testRun(t, s, "run-new")

	latest, err := s.Runs().Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.ID != "run-new" {
		t.Errorf("latest = %q, want run-new", latest.ID)
	}

	runs, err := s.Runs().List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" {
		t.Errorf("list = %v, want newest first", runs)
	}
}

func TestTickBatchAndQueries(t *testing.T) {
	s := testStore(t)
	testRun(t, s, "run-1")

	front := 1.5
	samples := []TickSample{
		{RunID: "run-1", Seq: 1, At: time.Now(), State: "SEARCH", AngularRadS: 0.3},
		{RunID: "run-1", Seq: 2, At: time.Now(), State: "APPROACH", LinearMS: 0.4, FrontDistanceM: &front},
		{RunID: "run-1", Seq: 3, At: time.Now(), State: "APPROACH", LinearMS: 0.4},
	}
	if err := s.Ticks().AppendBatch(samples); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	got, err := s.Ticks().ListByRun("run-1")
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ticks = %d, want 3", len(got))
	}
	if got[0].Seq != 1 || got[2].Seq != 3 {
		t.Error("ticks should come back in sequence order")
	}
	if got[0].FrontDistanceM != nil {
		t.Error("tick 1 had no front distance")
	}
	if got[1].FrontDistanceM == nil || *got[1].FrontDistanceM != 1.5 {
		t.Errorf("tick 2 front distance = %v, want 1.5", got[1].FrontDistanceM)
	}

	count, err := s.Ticks().CountByRun("run-1")
	if err != nil || count != 3 {
		t.Errorf("CountByRun = (%d, %v), want 3", count, err)
	}

	states, err := s.Ticks().StateCounts("run-1")
	if err != nil {
		t.Fatalf("StateCounts failed: %v", err)
	}
	if states["SEARCH"] != 1 || states["APPROACH"] != 2 {
		t.Errorf("state counts = %v", states)
	}
}

func TestAppendBatchEmpty(t *testing.T) {
	s := testStore(t)
	if err := s.Ticks().AppendBatch(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestTransitionQueries(t *testing.T) {
	s := testStore(t)
	testRun(t, s, "run-1")

	records := []TransitionRecord{
		{RunID: "run-1", At: time.Now(), FromState: "SEARCH", ToState: "APPROACH", Cause: "person_found"},
		{RunID: "run-1", At: time.Now(), FromState: "APPROACH", ToState: "AVOID_OBSTACLE", Cause: "obstacle_detected"},
		{RunID: "run-1", At: time.Now(), FromState: "AVOID_OBSTACLE", ToState: "APPROACH", Cause: "avoidance_complete"},
		{RunID: "run-1", At: time.Now(), FromState: "APPROACH", ToState: "AVOID_OBSTACLE", Cause: "obstacle_detected"},
	}
	for i := range records {
		if err := s.Transitions().Create(&records[i]); err != nil {
			t.Fatalf("Create transition %d failed: %v", i, err)
		}
		if records[i].ID == 0 {
			t.Errorf("transition %d should get an id", i)
		}
	}

	got, err := s.Transitions().ListByRun("run-1")
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("transitions = %d, want 4", len(got))
	}
	if got[0].Cause != "person_found" {
		t.Errorf("first transition cause = %q", got[0].Cause)
	}

	causes, err := s.Transitions().CountByCause("run-1")
	if err != nil {
		t.Fatalf("CountByCause failed: %v", err)
	}
	if causes["obstacle_detected"] != 2 || causes["person_found"] != 1 {
		t.Errorf("cause counts = %v", causes)
	}
}

func TestRecorderEndToEnd(t *testing.T) {
	s := testStore(t)

	rec, err := NewRecorder(s, "sim")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	if rec.RunID() == "" {
		t.Fatal("recorder should create a run id")
	}

	front := 0.4
	rec.RecordStatus(nav.Status{State: "SEARCH", AngularRadS: 0.3, Ticks: 1})
	rec.RecordStatus(nav.Status{
		State:          "AVOID_OBSTACLE",
		ObstacleAhead:  true,
		FrontDistanceM: &front,
		Ticks:          2,
	})
	rec.RecordTransition(nav.Transition{
		From:  nav.StateSearch,
		To:    nav.StateAvoidObstacle,
		Cause: nav.CauseObstacle,
		At:    time.Now(),
	})

	// Ticks are buffered until flush.
	count, _ := s.Ticks().CountByRun(rec.RunID())
	if count != 0 {
		t.Errorf("ticks before flush = %d, want 0 (buffered)", count)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	count, err = s.Ticks().CountByRun(rec.RunID())
	if err != nil || count != 2 {
		t.Errorf("ticks after close = (%d, %v), want 2", count, err)
	}

	transitions, err := s.Transitions().ListByRun(rec.RunID())
	if err != nil || len(transitions) != 1 {
		t.Fatalf("transitions = (%v, %v), want 1 record", transitions, err)
	}
	if transitions[0].FromState != "SEARCH" || transitions[0].ToState != "AVOID_OBSTACLE" {
		t.Errorf("transition = %+v", transitions[0])
	}

	run, err := s.Runs().GetByID(rec.RunID())
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run.EndedAt == nil {
		t.Error("closed recorder should finish the run")
	}
}

func TestRecorderFlushesWhenFull(t *testing.T) {
	s := testStore(t)

	rec, err := NewRecorder(s, "sim")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	rec.flushEvery = 3

	for i := 1; i <= 3; i++ {
		rec.RecordStatus(nav.Status{State: "SEARCH", Ticks: uint64(i)})
	}

	count, err := s.Ticks().CountByRun(rec.RunID())
	if err != nil || count != 3 {
		t.Errorf("ticks after auto flush = (%d, %v), want 3", count, err)
	}
}
