// Package chat runs chat sessions between a browser UI and the assistant.
package chat

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/saifsoomro/gemini-chat-assistant/internal/agent"
	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
)

// Session is the state of one chat session. It is owned by the connection
// that started it; handlers for a session never run concurrently.
type Session struct {
	ID      string
	UserID  string
	History []domain.Message
	Config  agent.RunConfig
	Agent   *agent.Agent

	ui UI
}

func newSession(userID string, ui UI, cfg agent.RunConfig, a *agent.Agent) *Session {
	return &Session{
		ID:      uuid.Must(uuid.NewV7()).String(),
		UserID:  userID,
		History: []domain.Message{},
		Config:  cfg,
		Agent:   a,
		ui:      ui,
	}
}

// Closer ends the transport behind a session.
type Closer interface {
	Close(reason string)
}

type activeSession struct {
	session *Session
	closer  Closer
}

// SessionManager tracks live sessions per user and browser tab.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*activeSession
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*activeSession),
	}
}

// GetActive returns the live session for a user and tab.
func (m *SessionManager) GetActive(userID, tabID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[userID]; ok {
		if a, ok := tabs[tabID]; ok {
			return a.session
		}
	}
	return nil
}

// Register adds a session for a user/tab, closing any session it replaces.
func (m *SessionManager) Register(userID, tabID string, sess *Session, closer Closer) {
	m.mu.Lock()
	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*activeSession)
	}

	replaced := m.active[userID][tabID]
	m.active[userID][tabID] = &activeSession{session: sess, closer: closer}
	m.mu.Unlock()

	// Closing waits for the peer, so it happens outside the lock.
	if replaced != nil && replaced.session != sess && replaced.closer != nil {
		replaced.closer.Close("session replaced")
	}
	slog.Info("Chat session registered", "user_id", userID, "tab_id", tabID, "session_id", sess.ID)
}

// Unregister removes a session if it is still the current one for the user/tab.
func (m *SessionManager) Unregister(userID, tabID string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[userID]; ok {
		if current, exists := tabs[tabID]; exists && current.session == sess {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat session unregistered", "user_id", userID, "tab_id", tabID, "session_id", sess.ID)
		}
	}
}

// CloseUser terminates all live sessions of a user.
func (m *SessionManager) CloseUser(userID string) {
	m.mu.Lock()
	tabs, ok := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	if !ok {
		return
	}

	for tabID, a := range tabs {
		if a.closer != nil {
			a.closer.Close("session closed")
		}
		slog.Info("Chat session closed", "user_id", userID, "tab_id", tabID)
	}
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tabs := range m.active {
		n += len(tabs)
	}
	return n
}

// CloseAll terminates every live session. It is used on server shutdown,
// which does not close hijacked connections itself.
func (m *SessionManager) CloseAll() {
	m.mu.RLock()
	users := make([]string, 0, len(m.active))
	for userID := range m.active {
		users = append(users, userID)
	}
	m.mu.RUnlock()

	for _, userID := range users {
		m.CloseUser(userID)
	}
}
