package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdf-chatbot/internal/chat"
	"pdf-chatbot/internal/models"
)

// answerMsg carries the result of a reply back into the update loop
type answerMsg struct {
	answer models.Answer
	err    error
}

// Model is the Bubble Tea model of the chat window.
type Model struct {
	ctx      context.Context
	session  *chat.Session
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	pending  bool
	status   string
	ready    bool
}

// New creates the chat model for session.
func New(ctx context.Context, session *chat.Session, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask what!?"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		session:  session,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := transcriptStyle.GetFrameSize()
		reserved := 5 + frame // title, spinner line, input box, status
		m.viewport.Width = max(20, msg.Width-frame)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.session.AddUser(q)
			m.input.Reset()
			m.pending = true
			m.status = ""
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.reply(q))
		}

	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// reply runs the pipeline off the update loop
func (m Model) reply(question string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		answer, err := session.Reply(ctx, question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.session.Transcript(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	progress := ""
	if m.pending {
		progress = m.spinner.View() + " Thinking..."
	}
	return titleStyle.Render(m.title) + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		progress + "\n" +
		m.input.View() + "\n" +
		statusStyle.Render(m.status)
}

func renderTranscript(entries []chat.Entry, width int) string {
	if len(entries) == 0 {
		return helpStyle.Render("No messages yet.")
	}
	body := lipgloss.NewStyle().Width(max(10, width-2))
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.Role == chat.RoleUser {
			b.WriteString(userStyle.Render("You"))
		} else {
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n" + body.Render(e.Content))
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
