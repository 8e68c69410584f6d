package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// AskPort is the TUI-facing subset of the answering pipeline.
type AskPort interface {
	Answer(ctx context.Context, query string, topK int) (domain.Answer, error)
}

// Model is the Bubble Tea model for the interactive ask session.
type Model struct {
	pipeline AskPort
	input    textinput.Model
	viewport viewport.Model
	answer   *domain.Answer
	status   string
	ready    bool
}

// New creates a TUI model around an answering pipeline.
func New(pipeline AskPort) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		pipeline: pipeline,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Type a question.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := askBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		vh := msg.Height - reserved - ah
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			ans, err := m.pipeline.Answer(context.Background(), q, 0)
			if err != nil {
				m.status = "Error: " + err.Error()
				m.answer = nil
			} else {
				m.answer = &ans
				if ans.CompletionErr != nil {
					m.status = "Completion failed, showing retrieved chunks only."
				} else {
					m.status = fmt.Sprintf("Answered using %d retrieved chunks.", len(ans.Retrieved))
				}
			}
			m.viewport.SetContent(m.renderAnswer())
			m.viewport.GotoTop()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, answer viewport, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	body := answerBoxStyle.Render(m.viewport.View())
	ask := askBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + body + "\n" + ask + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(m.answer.Text)
	if len(m.answer.Retrieved) > 0 {
		b.WriteString("\n\n" + sourceHeadStyle.Render("Sources") + "\n")
		for _, r := range m.answer.Retrieved {
			src, _ := r.Payload[domain.PayloadSource].(string)
			if src == "" {
				src = "unknown"
			}
			b.WriteString(fmt.Sprintf("  %s  score=%.3f\n", sourceStyle.Render(src), r.Score))
		}
	}
	return b.String()
}

var (
	answerBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	askBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourceHeadStyle = lipgloss.NewStyle().Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
