// Package ui is the terminal front end: a live view of the tracker and the
// consumer of categorization requests.
package ui

import (
	"fmt"
	"strings"
	"time"

	"focuslog/internal/category"
	"focuslog/internal/tracker"
	"focuslog/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// breakStep is how much +/- change the break interval.
const breakStep = 5 * time.Minute

type Tracker interface {
	Snapshot() tracker.LiveState
	ResetBreak()
	SetBreakInterval(d time.Duration) error
	Breaks() *tracker.BreakTimer
}

type Categorizer interface {
	Respond(resp category.Response) (string, error)
	Cancel(id string) error
}

type tickMsg time.Time

type requestMsg category.Request

type requestsClosedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	tracker    Tracker
	categories Categorizer
	requests   <-chan category.Request

	state  tracker.LiveState
	queue  []category.Request
	prompt Prompt
	status string
	width  int
}

// NewModel builds the UI. requests may be nil when categorization is not
// interactive.
func NewModel(t Tracker, c Categorizer, requests <-chan category.Request) Model {
	return Model{
		tracker:    t,
		categories: c,
		requests:   requests,
		state:      t.Snapshot(),
		prompt:     NewPrompt(),
		status:     "tracking",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForRequest(m.requests))
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForRequest(ch <-chan category.Request) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return requestsClosedMsg{}
		}
		return requestMsg(req)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.state = m.tracker.Snapshot()
		cmd := m.dropSettled()
		return m, tea.Batch(tickCmd(), cmd)

	case requestMsg:
		m.queue = append(m.queue, category.Request(msg))
		cmd := m.openNext()
		return m, tea.Batch(waitForRequest(m.requests), cmd)

	case requestsClosedMsg:
		m.requests = nil
		return m, nil

	case PromptSubmitMsg:
		assigned, err := m.categories.Respond(category.Response{ID: msg.ID, Category: msg.Category})
		switch {
		case errors.Is(err, category.ErrAlreadyResolved):
			m.status = "already categorized as " + assigned
		case err != nil:
			m.status = "categorization failed: " + err.Error()
		default:
			m.status = "categorized as " + assigned
		}
		cmd := m.finish(msg.ID)
		return m, cmd

	case PromptCancelMsg:
		if err := m.categories.Cancel(msg.ID); err != nil && !errors.Is(err, category.ErrAlreadyResolved) {
			m.status = "dismiss failed: " + err.Error()
		} else {
			m.status = "using default category"
		}
		cmd := m.finish(msg.ID)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.prompt.Visible() {
			var cmd tea.Cmd
			m.prompt, cmd = m.prompt.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	// cursor blink and other input messages
	if m.prompt.Visible() {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		m.tracker.ResetBreak()
		m.status = "break timer reset"
	case "+", "=":
		m.adjustBreak(breakStep)
	case "-":
		m.adjustBreak(-breakStep)
	}
	m.state = m.tracker.Snapshot()
	return m, nil
}

func (m *Model) adjustBreak(delta time.Duration) {
	interval := m.tracker.Breaks().Interval() + delta
	if err := m.tracker.SetBreakInterval(interval); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "break interval " + utils.FormatClock(interval)
}

// finish removes the request from the queue and shows the next one.
func (m *Model) finish(id string) tea.Cmd {
	for i, req := range m.queue {
		if req.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	if m.prompt.RequestID() == id {
		m.prompt.Close()
	}
	return m.openNext()
}

func (m *Model) openNext() tea.Cmd {
	if m.prompt.Visible() || len(m.queue) == 0 {
		return nil
	}
	return m.prompt.Open(m.queue[0])
}

// dropSettled discards requests that expired or were answered elsewhere.
func (m *Model) dropSettled() tea.Cmd {
	kept := m.queue[:0]
	for _, req := range m.queue {
		select {
		case <-req.Done():
			if m.prompt.RequestID() == req.ID {
				m.prompt.Close()
			}
		default:
			kept = append(kept, req)
		}
	}
	m.queue = kept
	return m.openNext()
}

func (m Model) View() string {
	var sections []string
	sections = append(sections, titleStyle.Render("focuslog"))
	sections = append(sections, boxStyle.Render(m.renderActivity()))
	sections = append(sections, boxStyle.Render(m.renderBreak()))

	if m.prompt.Visible() {
		sections = append(sections, m.prompt.View())
		if waiting := len(m.queue) - 1; waiting > 0 {
			sections = append(sections, mutedStyle.Render(fmt.Sprintf("%d more waiting", waiting)))
		}
	}

	sections = append(sections, mutedStyle.Render(m.status))
	sections = append(sections, mutedStyle.Render("r reset break · +/- break interval · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderActivity() string {
	s := m.state
	var sb strings.Builder
	if s.Idle() {
		sb.WriteString(mutedStyle.Render("Idle"))
	} else {
		sb.WriteString(programStyle.Render(s.ActiveProgram))
		sb.WriteString("  " + mutedStyle.Render(s.ActiveCategory) + "\n")
		sb.WriteString(truncate(s.ActiveTitle, 60) + "\n")
		sb.WriteString(clockStyle.Render(utils.FormatClock(time.Duration(s.ElapsedSeconds * float64(time.Second)))))
	}
	if s.PreviousProgram != "" {
		sb.WriteString("\n" + mutedStyle.Render("previous: "+s.PreviousProgram))
	}
	if s.PendingRecords > 0 {
		sb.WriteString("\n" + dueStyle.Render(fmt.Sprintf("%d records waiting to be saved", s.PendingRecords)))
	}
	return sb.String()
}

func (m Model) renderBreak() string {
	s := m.state
	interval := utils.FormatClock(m.tracker.Breaks().Interval())
	if s.BreakDue {
		return dueStyle.Render("Time for a break! "+s.BreakCountdown) + "\n" +
			mutedStyle.Render("interval "+interval+", r to reset")
	}
	return "Next break in " + clockStyle.Render(s.BreakCountdown) + "\n" +
		mutedStyle.Render("interval "+interval)
}
