package review

import (
	"sync"

	"github.com/google/uuid"

	"flashdeck-backend/internal/models"
)

// Manager holds at most one review session per user. Starting a new
// generation replaces any existing session wholesale; proposals are never
// merged across generations.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	store    BatchCreator
}

func NewManager(store BatchCreator) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		store:    store,
	}
}

func (m *Manager) Start(userID uuid.UUID, gen *models.Generation, proposals []models.FlashcardProposal) *Session {
	s := NewSession(userID, gen, proposals, m.store)

	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()

	return s
}

func (m *Manager) Get(userID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}
