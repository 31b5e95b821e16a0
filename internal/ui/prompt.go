package ui

import (
	"fmt"
	"strings"

	"focuslog/internal/category"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptSubmitMsg is emitted when the user picks or types a category.
type PromptSubmitMsg struct {
	ID       string
	Category string
}

// PromptCancelMsg is emitted when the user dismisses the prompt.
type PromptCancelMsg struct{ ID string }

// Prompt asks for the category of one program. Typing filters the known
// categories; up/down selects one, enter confirms the selection or the text.
type Prompt struct {
	request category.Request
	input   textinput.Model
	cursor  int // index into matches, -1 for the typed text
	visible bool
}

// NewPrompt creates a hidden prompt.
func NewPrompt() Prompt {
	ti := textinput.New()
	ti.Placeholder = "type or pick a category"
	ti.CharLimit = 64
	ti.Prompt = ""
	return Prompt{input: ti, cursor: -1}
}

// Open shows the prompt for req and returns the focus command.
func (p *Prompt) Open(req category.Request) tea.Cmd {
	p.request = req
	p.input.SetValue("")
	p.cursor = -1
	p.visible = true
	return p.input.Focus()
}

// Close hides the prompt.
func (p *Prompt) Close() {
	p.visible = false
	p.request = category.Request{}
	p.input.Blur()
}

func (p Prompt) Visible() bool { return p.visible }

// RequestID is the ID of the request being shown.
func (p Prompt) RequestID() string { return p.request.ID }

// Value is the typed text.
func (p Prompt) Value() string { return p.input.Value() }

// matches are the known categories starting with the typed text.
func (p Prompt) matches() []string {
	prefix := strings.ToLower(strings.TrimSpace(p.input.Value()))
	var out []string
	for _, c := range p.request.Known {
		if prefix == "" || strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Selected is what enter would submit.
func (p Prompt) Selected() string {
	if m := p.matches(); p.cursor >= 0 && p.cursor < len(m) {
		return m[p.cursor]
	}
	return strings.TrimSpace(p.input.Value())
}

func (p Prompt) Update(msg tea.Msg) (Prompt, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			id := p.request.ID
			p.Close()
			return p, func() tea.Msg { return PromptCancelMsg{ID: id} }
		case tea.KeyEnter:
			submit := PromptSubmitMsg{ID: p.request.ID, Category: p.Selected()}
			p.Close()
			return p, func() tea.Msg { return submit }
		case tea.KeyUp:
			if p.cursor >= 0 {
				p.cursor--
			}
			return p, nil
		case tea.KeyDown, tea.KeyTab:
			if p.cursor < len(p.matches())-1 {
				p.cursor++
			}
			return p, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.cursor = -1
	}
	return p, cmd
}

func (p Prompt) View() string {
	if !p.visible {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "New program: %s\n", programStyle.Render(p.request.Program))
	if p.request.Title != "" && p.request.Title != p.request.Program {
		sb.WriteString(mutedStyle.Render(truncate(p.request.Title, 60)) + "\n")
	}
	sb.WriteString("\nCategory: " + p.input.View() + "\n")

	matches := p.matches()
	for i, c := range matches {
		if i == 8 {
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  … %d more", len(matches)-i)) + "\n")
			break
		}
		if i == p.cursor {
			sb.WriteString(selectStyle.Render("> "+c) + "\n")
		} else {
			sb.WriteString("  " + c + "\n")
		}
	}
	sb.WriteString("\n" + mutedStyle.Render("enter confirm · ↑/↓ select · esc use default"))
	return promptBoxStyle.Render(sb.String())
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
