package memory

import (
	"sync"

	"pdf-chatbot/internal/models"
)

const DefaultTurns = 3

// Memory keeps the last k conversation turns. Appending beyond k evicts the
// oldest turn.
type Memory struct {
	mu    sync.RWMutex
	k     int
	turns []models.Turn
}

func New(k int) *Memory {
	if k <= 0 {
		k = DefaultTurns
	}
	return &Memory{k: k, turns: make([]models.Turn, 0, k+1)}
}

func (m *Memory) Append(turn models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	if over := len(m.turns) - m.k; over > 0 {
		m.turns = append(m.turns[:0], m.turns[over:]...)
	}
}

// AsContext returns the retained turns, oldest first
func (m *Memory) AsContext() []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Turn(nil), m.turns...)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = m.turns[:0]
}
