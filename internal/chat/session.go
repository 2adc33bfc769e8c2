package chat

import (
	"context"
	"sync"

	"pdf-chatbot/internal/models"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one visible message of the transcript
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answerer is the answering side of the chatbot
type Answerer interface {
	Ask(ctx context.Context, question string) (models.Answer, error)
}

// Session keeps the transcript of a single chat for the lifetime of the process
type Session struct {
	mu         sync.RWMutex
	answerer   Answerer
	transcript []Entry
}

func NewSession(answerer Answerer) *Session {
	return &Session{answerer: answerer}
}

func (s *Session) AddUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Entry{Role: RoleUser, Content: content})
}

// Reply answers question and appends the assistant entry. On error the
// transcript is left as it was.
func (s *Session) Reply(ctx context.Context, question string) (models.Answer, error) {
	answer, err := s.answerer.Ask(ctx, question)
	if err != nil {
		return models.Answer{}, err
	}
	s.mu.Lock()
	s.transcript = append(s.transcript, Entry{Role: RoleAssistant, Content: answer.Text})
	s.mu.Unlock()
	return answer, nil
}

// Ask records the user's message and replies to it
func (s *Session) Ask(ctx context.Context, content string) (models.Answer, error) {
	s.AddUser(content)
	return s.Reply(ctx, content)
}

// Transcript returns a copy of the messages, oldest first
func (s *Session) Transcript() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.transcript...)
}
