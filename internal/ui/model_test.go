package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"focuslog/internal/category"
	"focuslog/internal/tracker"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeTracker struct {
	state  tracker.LiveState
	breaks *tracker.BreakTimer
	resets int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		state:  tracker.LiveState{ActiveProgram: "code", ActiveCategory: "Dev", BreakCountdown: "00:50:00"},
		breaks: tracker.NewBreakTimer(50*time.Minute, 10*time.Minute, time.Now()),
	}
}

func (f *fakeTracker) Snapshot() tracker.LiveState { return f.state }
func (f *fakeTracker) ResetBreak()                 { f.resets++ }
func (f *fakeTracker) Breaks() *tracker.BreakTimer { return f.breaks }

func (f *fakeTracker) SetBreakInterval(d time.Duration) error {
	return f.breaks.SetInterval(d, time.Now())
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]string
}

func (m *memStore) LoadCategories() (map[string]string, error) {
	return map[string]string{"code": "Dev", "firefox": "Web"}, nil
}

func (m *memStore) SaveCategory(program, c string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[program] = c
	return nil
}

func (m *memStore) UpdateCategory(program, c string) (int64, error) { return 0, nil }

func newTestModel(t *testing.T) (Model, *fakeTracker, *category.Resolver) {
	t.Helper()
	resolver, err := category.NewResolver(&memStore{saved: map[string]string{}}, category.Options{
		Interactive:   true,
		PromptTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	ft := newFakeTracker()
	return NewModel(ft, resolver, resolver.Requests()), ft, resolver
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to m. For enter and esc it also delivers the prompt message
// the resulting command produces; other commands (cursor blink) are dropped.
func send(m Model, msg tea.Msg) Model {
	next, cmd := m.Update(msg)
	m = next.(Model)
	key, ok := msg.(tea.KeyMsg)
	if !ok || cmd == nil || (key.Type != tea.KeyEnter && key.Type != tea.KeyEsc) {
		return m
	}
	switch out := cmd().(type) {
	case PromptSubmitMsg, PromptCancelMsg:
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func takeRequest(t *testing.T, r *category.Resolver) category.Request {
	t.Helper()
	select {
	case req := <-r.Requests():
		return req
	case <-time.After(time.Second):
		t.Fatal("no categorization request")
		return category.Request{}
	}
}

func TestPromptTypedCategory(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("gimp", "Untitled - GIMP", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))
	if !m.prompt.Visible() {
		t.Fatal("prompt not shown")
	}
	if !strings.Contains(m.View(), "gimp") {
		t.Errorf("view does not name the program:\n%s", m.View())
	}

	m = send(m, keyRunes("image"))
	m = send(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = send(m, keyRunes("editing"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.prompt.Visible() {
		t.Error("prompt still visible after enter")
	}
	if got := resolver.CategoryFor("gimp"); got != "Image Editing" {
		t.Errorf("category = %q, want Image Editing", got)
	}
	if !strings.Contains(m.status, "Image Editing") {
		t.Errorf("status = %q", m.status)
	}
}

func TestPromptSelectKnown(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("vim", "main.go", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))

	// Known is sorted: Dev, Misc, Web. "w" leaves only Web.
	m = send(m, keyRunes("w"))
	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	if got := m.prompt.Selected(); got != "Web" {
		t.Fatalf("selected = %q, want Web", got)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	if got := resolver.CategoryFor("vim"); got != "Web" {
		t.Errorf("category = %q, want Web", got)
	}
}

func TestPromptEscUsesDefault(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("steam", "Steam", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.prompt.Visible() {
		t.Error("prompt still visible after esc")
	}
	if got := resolver.CategoryFor("steam"); got != "Misc" {
		t.Errorf("category = %q, want Misc", got)
	}
	if len(resolver.PendingRequests()) != 0 {
		t.Error("request still pending")
	}
}

func TestPromptQueue(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("a", "", time.Now())
	resolver.Observe("b", "", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))
	m = send(m, requestMsg(takeRequest(t, resolver)))

	if m.prompt.request.Program != "a" {
		t.Fatalf("showing %q, want a", m.prompt.request.Program)
	}
	if !strings.Contains(m.View(), "1 more waiting") {
		t.Error("queue length not shown")
	}

	m = send(m, keyRunes("one"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompt.request.Program != "b" {
		t.Errorf("after answering a, showing %q, want b", m.prompt.request.Program)
	}
}

func TestSettledRequestDropped(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("gimp", "", time.Now())
	req := takeRequest(t, resolver)
	m = send(m, requestMsg(req))

	// answered elsewhere, e.g. through the web API
	if _, err := resolver.Respond(category.Response{ID: req.ID, Category: "Design"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	m = send(m, tickMsg(time.Now()))

	if m.prompt.Visible() || len(m.queue) != 0 {
		t.Error("settled request still shown")
	}
}

func TestKeys(t *testing.T) {
	m, ft, _ := newTestModel(t)

	m = send(m, keyRunes("r"))
	if ft.resets != 1 {
		t.Errorf("resets = %d, want 1", ft.resets)
	}

	m = send(m, keyRunes("+"))
	if got := ft.breaks.Interval(); got != 55*time.Minute {
		t.Errorf("interval = %v, want 55m", got)
	}

	// 55 -> 50 -> ... -> 10 is allowed, 5 is not
	for i := 0; i < 9; i++ {
		m = send(m, keyRunes("-"))
	}
	if got := ft.breaks.Interval(); got != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", got)
	}
	m = send(m, keyRunes("-"))
	if got := ft.breaks.Interval(); got != 10*time.Minute {
		t.Errorf("interval below minimum accepted: %v", got)
	}
	if !strings.Contains(m.status, "cannot be less than") {
		t.Errorf("status = %q", m.status)
	}

	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestViewStates(t *testing.T) {
	m, ft, _ := newTestModel(t)

	ft.state = tracker.LiveState{ActiveProgram: "code", ActiveCategory: "Dev", ElapsedSeconds: 3725, BreakCountdown: "00:10:00"}
	m = send(m, tickMsg(time.Now()))
	view := m.View()
	if !strings.Contains(view, "01:02:05") || !strings.Contains(view, "Next break in") {
		t.Errorf("tracking view:\n%s", view)
	}

	ft.state = tracker.LiveState{BreakDue: true, BreakCountdown: "-00:00:03"}
	m = send(m, tickMsg(time.Now()))
	view = m.View()
	if !strings.Contains(view, "Idle") || !strings.Contains(view, "Time for a break") {
		t.Errorf("idle view:\n%s", view)
	}
}

func TestPromptEditsWithCursorKeys(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("slack", "", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))

	for _, r := range "Wrk" {
		m = send(m, keyRunes(string(r)))
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	m = send(m, keyRunes("o"))
	if got := m.prompt.Value(); got != "Work" {
		t.Fatalf("Value() = %q, want Work", got)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyEnd})
	m = send(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if got := m.prompt.Value(); got != "Wor" {
		t.Errorf("after backspace Value() = %q, want Wor", got)
	}

	m = send(m, keyRunes(strings.Repeat("x", 100)))
	if n := len(m.prompt.Value()); n != 64 {
		t.Errorf("value length = %d, want the 64 character limit", n)
	}
}

func TestPromptReopensEmpty(t *testing.T) {
	m, _, resolver := newTestModel(t)

	resolver.Observe("a", "", time.Now())
	resolver.Observe("b", "", time.Now())
	m = send(m, requestMsg(takeRequest(t, resolver)))
	m = send(m, requestMsg(takeRequest(t, resolver)))

	m = send(m, keyRunes("Chat"))
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.prompt.request.Program != "b" || m.prompt.Value() != "" {
		t.Errorf("next prompt for %q starts with %q", m.prompt.request.Program, m.prompt.Value())
	}
	m = send(m, keyRunes("x"))
	if m.prompt.Value() != "x" {
		t.Errorf("reopened prompt does not take input: %q", m.prompt.Value())
	}
}
