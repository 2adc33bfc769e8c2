package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/chat"
	"pdf-chatbot/internal/models"
)

type stubAnswerer struct {
	answer models.Answer
	err    error
}

func (s stubAnswerer) Ask(context.Context, string) (models.Answer, error) {
	return s.answer, s.err
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func typeQuestion(t *testing.T, m Model, q string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)})
	return m
}

func TestSubmitQuestion(t *testing.T) {
	session := chat.NewSession(stubAnswerer{answer: models.Answer{Text: "I am 23."}})
	m := New(context.Background(), session, "Chat")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "No messages yet.")

	m = typeQuestion(t, m, "How old are you?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, []chat.Entry{{Role: chat.RoleUser, Content: "How old are you?"}}, session.Transcript())
	assert.Contains(t, m.View(), "Thinking...")

	// a second submit while waiting is ignored
	m = typeQuestion(t, m, "again")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, session.Transcript(), 1)

	msg := m.reply("How old are you?")()
	m, _ = update(t, m, msg)
	assert.False(t, m.pending)
	assert.Empty(t, m.status)
	assert.Len(t, session.Transcript(), 2)
	assert.Contains(t, m.View(), "I am 23.")
}

func TestReplyErrorIsShown(t *testing.T) {
	session := chat.NewSession(stubAnswerer{err: errors.New("service unavailable")})
	m := New(context.Background(), session, "Chat")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = typeQuestion(t, m, "hello")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, m.reply("hello")())

	assert.Equal(t, "Error: service unavailable", m.status)
	assert.Equal(t, []chat.Entry{{Role: chat.RoleUser, Content: "hello"}}, session.Transcript())
}

func TestEmptyInputIgnored(t *testing.T) {
	session := chat.NewSession(stubAnswerer{})
	m := New(context.Background(), session, "Chat")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.pending)
	assert.Empty(t, session.Transcript())
}

func TestQuitKeys(t *testing.T) {
	m := New(context.Background(), chat.NewSession(stubAnswerer{}), "Chat")
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := update(t, m, tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}
