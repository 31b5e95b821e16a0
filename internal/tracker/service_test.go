package tracker

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"focuslog/internal/config"
	"focuslog/internal/models"
	"focuslog/internal/recorder"
	"focuslog/pkg/window"

	"github.com/pkg/errors"
)

type sample struct{ program, title string }

type mockProbe struct {
	mu      sync.Mutex
	samples []sample
	last    sample
}

func (m *mockProbe) Sample() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) > 0 {
		m.last = m.samples[0]
		m.samples = m.samples[1:]
	}
	return m.last.program, m.last.title
}

type mockRecorder struct {
	mu      sync.Mutex
	records []*models.ActivityRecord
	fail    bool
	flushed int
}

func (m *mockRecorder) Append(record *models.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockRecorder) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

func (m *mockRecorder) Pending() int { return 0 }

func (m *mockRecorder) all() []*models.ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ActivityRecord(nil), m.records...)
}

// hungStore blocks every write until release is closed.
type hungStore struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newHungStore() *hungStore {
	return &hungStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (h *hungStore) Append(*models.ActivityRecord) error {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	return nil
}

func (h *hungStore) BackfillCategory(string, string, time.Time) (int64, error) { return 0, nil }

func (h *hungStore) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-h.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no write reached the store")
	}
}

type mockResolver struct {
	mu       sync.Mutex
	mapping  map[string]string
	observed []string
	flushed  int
}

func (m *mockResolver) Observe(program, title string, since time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, program)
	return m.categoryLocked(program)
}

func (m *mockResolver) CategoryFor(program string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categoryLocked(program)
}

func (m *mockResolver) categoryLocked(program string) string {
	if c, ok := m.mapping[program]; ok {
		return c
	}
	return models.DefaultCategory
}

func (m *mockResolver) ExpirePending(time.Time) int { return 0 }

func (m *mockResolver) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

type mockErrors struct {
	mu   sync.Mutex
	logs []*models.ErrorLog
}

func (m *mockErrors) CreateErrorLog(e *models.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, e)
	return nil
}

type mockNotifier struct {
	calls int
}

func (m *mockNotifier) NotifyBreakDue(time.Duration) { m.calls++ }

type fixture struct {
	service  *Service
	probe    *mockProbe
	recorder *mockRecorder
	resolver *mockResolver
	errors   *mockErrors

	mu    sync.Mutex
	clock time.Time
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func newFixture(t *testing.T, samples ...sample) *fixture {
	t.Helper()

	f := &fixture{
		probe:    &mockProbe{samples: samples},
		recorder: &mockRecorder{},
		resolver: &mockResolver{mapping: map[string]string{"A": "Work"}},
		errors:   &mockErrors{},
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local),
	}

	cfg := config.Default()
	cfg.Tracker.PollInterval = 5 * time.Millisecond
	f.service = NewService(cfg, f.probe, f.recorder, f.resolver, f.errors)
	f.service.now = f.now
	f.service.breaks = NewBreakTimer(cfg.Tracker.BreakInterval, cfg.Tracker.MinBreakInterval, f.clock)
	return f
}

// at ticks the service at offset from the fixture's start time.
func (f *fixture) at(offset time.Duration) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	f.mu.Lock()
	f.clock = base.Add(offset)
	f.mu.Unlock()
	f.service.tick(f.now())
}

func TestTransitionProducesOneRecord(t *testing.T) {
	f := newFixture(t, sample{"A", "t1"}, sample{"A", "t1"}, sample{"B", "t2"})

	f.at(0)
	f.at(time.Second)
	f.at(2 * time.Second)

	records := f.recorder.all()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	r := records[0]
	if r.Program != "A" || r.WindowTitle != "t1" || r.Category != "Work" {
		t.Errorf("record = %+v", r)
	}
	if math.Abs(r.TotalTime-2.0/60) > 0.01 {
		t.Errorf("TotalTime = %v, want ~%v", r.TotalTime, 2.0/60)
	}
	if r.EndTime.Sub(r.StartTime) != 2*time.Second {
		t.Errorf("interval = %v, want 2s", r.EndTime.Sub(r.StartTime))
	}

	state := f.service.Snapshot()
	if state.PreviousProgram != "A" || state.ActiveProgram != "B" {
		t.Errorf("state = %+v, want previous A, active B", state)
	}
}

func TestSameProgramUpdatesTitle(t *testing.T) {
	f := newFixture(t, sample{"A", "one"}, sample{"A", "two"}, sample{"B", "x"})

	f.at(0)
	f.at(time.Second)
	f.at(2 * time.Second)

	records := f.recorder.all()
	if len(records) != 1 || records[0].WindowTitle != "two" {
		t.Errorf("records = %+v, want one record titled %q", records, "two")
	}
}

func TestIdleProducesNoRecords(t *testing.T) {
	f := newFixture(t,
		sample{window.UnknownProgram, window.ReasonNoWindow},
		sample{window.UnknownProgram, window.ReasonProcessExited},
		sample{window.UnknownProgram, window.ReasonNoWindow},
	)

	for i := 0; i < 3; i++ {
		f.at(time.Duration(i) * time.Second)
	}

	if n := len(f.recorder.all()); n != 0 {
		t.Errorf("got %d records while idle, want 0", n)
	}
	if state := f.service.Snapshot(); !state.Idle() || state.ElapsedSeconds != 0 {
		t.Errorf("state = %+v, want idle", state)
	}
}

func TestLeavingForIdleClosesInterval(t *testing.T) {
	f := newFixture(t, sample{"A", "t"}, sample{window.UnknownProgram, "screen locked"}, sample{"A", "t"})

	f.at(0)
	f.at(3 * time.Second)
	f.at(10 * time.Second)

	records := f.recorder.all()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].EndTime.Sub(records[0].StartTime) != 3*time.Second {
		t.Errorf("interval = %v, want 3s", records[0].EndTime.Sub(records[0].StartTime))
	}
	if len(f.resolver.observed) != 2 {
		t.Errorf("Observe called %d times, want 2", len(f.resolver.observed))
	}
}

func TestShortIntervalIsInvisible(t *testing.T) {
	f := newFixture(t, sample{"A", "a"}, sample{"B", "b"}, sample{"C", "c"}, sample{"D", "d"})

	f.at(0)
	f.at(2 * time.Second)
	f.at(2*time.Second + 300*time.Millisecond)

	records := f.recorder.all()
	if len(records) != 1 || records[0].Program != "A" {
		t.Fatalf("records = %+v, want only A", records)
	}
	if got := f.service.Snapshot().PreviousProgram; got != "A" {
		t.Errorf("PreviousProgram = %q, want A (B was too short)", got)
	}

	f.at(4 * time.Second)
	records = f.recorder.all()
	if len(records) != 2 || records[1].Program != "C" {
		t.Fatalf("records = %+v, want A then C", records)
	}
	// C started at 2.3s; the record keeps whole seconds.
	if !records[1].StartTime.Equal(f.now().Add(-2 * time.Second)) {
		t.Errorf("C started at %v", records[1].StartTime)
	}
	if records[1].TotalTime != 0.03 {
		t.Errorf("C TotalTime = %v, want 0.03", records[1].TotalTime)
	}
}

func TestRecordsAreOrdered(t *testing.T) {
	f := newFixture(t,
		sample{"A", ""}, sample{"B", ""}, sample{"A", ""}, sample{"B", ""}, sample{"A", ""},
	)
	for i := 0; i < 5; i++ {
		f.at(time.Duration(i) * time.Second)
	}

	records := f.recorder.all()
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].StartTime.Before(records[i-1].StartTime) {
			t.Errorf("record %d starts before record %d", i, i-1)
		}
		if records[i].EndTime.Sub(records[i].StartTime) < 500*time.Millisecond {
			t.Errorf("record %d shorter than the minimum", i)
		}
	}
}

func TestRecorderFailureIsLogged(t *testing.T) {
	f := newFixture(t, sample{"A", ""}, sample{"B", ""})
	f.recorder.fail = true

	f.at(0)
	f.at(time.Second)

	if len(f.errors.logs) != 1 || f.errors.logs[0].Source != "recorder" {
		t.Errorf("error logs = %+v, want one recorder error", f.errors.logs)
	}
}

func TestBreakScenario(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	b := NewBreakTimer(600*time.Second, 10*time.Minute, start)

	if b.Due(start.Add(600 * time.Second)) {
		t.Error("Due at exactly the interval, want not yet")
	}
	if !b.Due(start.Add(601 * time.Second)) {
		t.Error("not Due at 601s")
	}
	if b.Remaining(start.Add(700*time.Second)) != -100*time.Second {
		t.Error("countdown does not keep decreasing while due")
	}

	b.Reset(start.Add(601 * time.Second))
	if got := b.Remaining(start.Add(601 * time.Second)); got != 600*time.Second {
		t.Errorf("Remaining after reset = %v, want 600s", got)
	}
	if b.Due(start.Add(602 * time.Second)) {
		t.Error("Due at 602s after reset")
	}
}

func TestBreakSetInterval(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	b := NewBreakTimer(50*time.Minute, 10*time.Minute, start)

	if err := b.SetInterval(5*time.Minute, start); err == nil {
		t.Error("SetInterval() accepted an interval below the minimum")
	}

	later := start.Add(55 * time.Minute)
	if err := b.SetInterval(20*time.Minute, later); err != nil {
		t.Fatalf("SetInterval() error: %v", err)
	}
	if b.Due(later) {
		t.Error("SetInterval() did not re-base the countdown")
	}
	if got := b.Display(later.Add(time.Minute)); got != "00:19:00" {
		t.Errorf("Display() = %q, want 00:19:00", got)
	}
}

func TestBreakNotifiedOncePerEpisode(t *testing.T) {
	f := newFixture(t, sample{"A", ""})
	notifier := &mockNotifier{}
	f.service.SetNotifier(notifier)

	f.at(0)
	f.at(51 * time.Minute)
	f.at(52 * time.Minute)
	if notifier.calls != 1 {
		t.Errorf("notified %d times, want 1", notifier.calls)
	}

	state := f.service.Snapshot()
	if !state.BreakDue || state.BreakCountdown != "-00:02:00" {
		t.Errorf("state = %+v, want break due by 2 minutes", state)
	}

	f.service.ResetBreak()
	f.at(103 * time.Minute)
	if notifier.calls != 2 {
		t.Errorf("notified %d times after reset, want 2", notifier.calls)
	}
}

func TestSnapshotElapsed(t *testing.T) {
	f := newFixture(t, sample{"A", "doc"})
	f.at(0)
	f.advance(90 * time.Second)

	state := f.service.Snapshot()
	if state.ElapsedSeconds != 90 {
		t.Errorf("ElapsedSeconds = %v, want 90", state.ElapsedSeconds)
	}
	if state.ActiveTitle != "doc" || state.ActiveCategory != "Work" {
		t.Errorf("state = %+v", state)
	}
	if state.BreakCountdown != "00:48:30" {
		t.Errorf("BreakCountdown = %q, want 00:48:30", state.BreakCountdown)
	}
}

func TestStopClosesFinalInterval(t *testing.T) {
	f := newFixture(t, sample{"A", "t"})

	errCh := make(chan error, 1)
	go func() { errCh <- f.service.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !f.service.IsRunning() || f.service.Snapshot().ActiveProgram == "" {
		if time.Now().After(deadline) {
			t.Fatal("tracker did not start")
		}
		time.Sleep(time.Millisecond)
	}

	f.advance(5 * time.Second)

	f.service.Stop()
	f.service.Stop()

	if err := <-errCh; err != nil {
		t.Errorf("Start() returned %v", err)
	}
	if f.service.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	records := f.recorder.all()
	if len(records) != 1 || records[0].Program != "A" {
		t.Fatalf("records = %+v, want the final A interval", records)
	}
	if f.recorder.flushed != 1 || f.resolver.flushed != 1 {
		t.Errorf("flushes = %d/%d, want 1/1", f.recorder.flushed, f.resolver.flushed)
	}
}

func TestStopBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.service.Stop()
	f.service.Stop()
	if f.service.IsRunning() {
		t.Error("IsRunning() = true")
	}
}

func TestStartTwice(t *testing.T) {
	f := newFixture(t, sample{"A", ""})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- f.service.Start(ctx) }()

	for !f.service.IsRunning() {
		time.Sleep(time.Millisecond)
	}
	if err := f.service.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
}

func TestSnapshotDoesNotWaitForStoreWrite(t *testing.T) {
	f := newFixture(t, sample{"A", "t"}, sample{"B", "t"})
	store := newHungStore()
	defer close(store.release)
	f.service.recorder = recorder.New(store, "", 0)

	f.at(0)
	go f.at(time.Minute)
	store.waitEntered(t)

	got := make(chan LiveState, 1)
	go func() { got <- f.service.Snapshot() }()
	select {
	case state := <-got:
		if state.ActiveProgram != "B" || state.PendingRecords != 0 {
			t.Errorf("state = %+v", state)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Snapshot blocked behind the store write")
	}
}

func TestStopTimesOutWithHungRecorder(t *testing.T) {
	f := newFixture(t, sample{"A", "t"})
	store := newHungStore()
	defer close(store.release)
	f.service.config.Tracker.StopTimeout = 200 * time.Millisecond
	f.service.recorder = recorder.New(store, "", 0)

	go f.service.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !f.service.IsRunning() || f.service.Snapshot().ActiveProgram == "" {
		if time.Now().After(deadline) {
			t.Fatal("tracker did not start")
		}
		time.Sleep(time.Millisecond)
	}
	f.advance(5 * time.Second)

	begin := time.Now()
	f.service.Stop()
	elapsed := time.Since(begin)

	if elapsed < 200*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("Stop() took %v, want about 200ms", elapsed)
	}
	store.waitEntered(t)
}
