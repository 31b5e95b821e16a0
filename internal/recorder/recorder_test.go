package recorder

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"focuslog/internal/models"

	"github.com/pkg/errors"
)

type mockStore struct {
	mu        sync.Mutex
	failNext  int
	down      bool
	records   []*models.ActivityRecord
	backfills []string
}

func (m *mockStore) Append(record *models.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errors.New("database is locked")
	}
	if m.failNext > 0 {
		m.failNext--
		return errors.New("transient")
	}
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

func (m *mockStore) BackfillCategory(program, category string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfills = append(m.backfills, program+"="+category)
	return 0, nil
}

func (m *mockStore) programs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, r := range m.records {
		names = append(names, r.Program)
	}
	return names
}

func newRecord(program string, minute int) *models.ActivityRecord {
	start := time.Date(2024, 5, 1, 9, minute, 0, 0, time.Local)
	return models.NewActivityRecord(program, program, models.DefaultCategory, start, start.Add(time.Minute))
}

func TestAppendRetriesOnce(t *testing.T) {
	store := &mockStore{failNext: 1}
	rec := New(store, "", 0)

	if err := rec.Append(newRecord("code", 0)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if got := store.programs(); len(got) != 1 {
		t.Errorf("store holds %v, want one record", got)
	}
	if rec.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", rec.Pending())
	}
}

func TestAppendBuffersAndPreservesOrder(t *testing.T) {
	store := &mockStore{down: true}
	spool := filepath.Join(t.TempDir(), "pending.jsonl")
	rec := New(store, spool, 0)

	if err := rec.Append(newRecord("a", 0)); err == nil {
		t.Fatal("Append() with store down returned nil error")
	}
	rec.Append(newRecord("b", 1))

	if rec.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", rec.Pending())
	}
	if _, err := os.Stat(spool); err != nil {
		t.Fatalf("spool not written: %v", err)
	}

	store.mu.Lock()
	store.down = false
	store.mu.Unlock()

	if err := rec.Append(newRecord("c", 2)); err != nil {
		t.Fatalf("Append() after recovery error: %v", err)
	}

	got := store.programs()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("store holds %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("store[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if _, err := os.Stat(spool); !os.IsNotExist(err) {
		t.Errorf("spool still present after flush: %v", err)
	}
}

func TestLoadReplaysSpool(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "pending.jsonl")

	first := New(&mockStore{down: true}, spool, 0)
	first.Append(newRecord("a", 0))
	first.Append(newRecord("b", 1))

	store := &mockStore{}
	second := New(store, spool, 0)
	if err := second.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	got := store.programs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("replayed %v, want [a b]", got)
	}
	if second.Pending() != 0 {
		t.Errorf("Pending() after replay = %d, want 0", second.Pending())
	}
}

func TestLoadMissingSpool(t *testing.T) {
	rec := New(&mockStore{}, filepath.Join(t.TempDir(), "none.jsonl"), 0)
	if err := rec.Load(); err != nil {
		t.Errorf("Load() with no spool error: %v", err)
	}
}

func TestPatchCategoryUpdatesBacklog(t *testing.T) {
	store := &mockStore{down: true}
	rec := New(store, "", 0)

	rec.Append(newRecord("gimp", 0))
	rec.Append(newRecord("gimp", 10))

	// The prompt was raised mid-second; stored starts are whole seconds.
	since := time.Date(2024, 5, 1, 9, 10, 0, 400e6, time.Local)
	if err := rec.PatchCategory("gimp", "Art", since); err != nil {
		t.Fatalf("PatchCategory() error: %v", err)
	}

	store.mu.Lock()
	store.down = false
	store.mu.Unlock()
	if err := rec.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	if store.records[0].Category != models.DefaultCategory {
		t.Errorf("record before since has category %q", store.records[0].Category)
	}
	if store.records[1].Category != "Art" {
		t.Errorf("record after since has category %q, want Art", store.records[1].Category)
	}
	if len(store.backfills) != 1 || store.backfills[0] != "gimp=Art" {
		t.Errorf("backfills = %v", store.backfills)
	}
}

type slowStore struct {
	mockStore
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Append(record *models.ActivityRecord) error {
	s.entered <- struct{}{}
	<-s.release
	return s.mockStore.Append(record)
}

func TestPendingDuringWrite(t *testing.T) {
	store := &slowStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
	rec := New(store, "", 0)

	done := make(chan error, 1)
	go func() { done <- rec.Append(newRecord("code", 0)) }()
	<-store.entered

	got := make(chan int, 1)
	go func() { got <- rec.Pending() }()
	select {
	case n := <-got:
		if n != 0 {
			t.Errorf("Pending() = %d, want 0", n)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Pending() waited for the store write")
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Errorf("Append() error: %v", err)
	}
}
