package router

import (
	"fmt"
	"sync"
)

// Message is one conversation turn as fed into the messages placeholder.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the persistence collaborator the router reads history and
// user field values from. A roleID of 0 means "no role" (provider scope).
type Store interface {
	// AddConversationMessage appends a turn to a session's history.
	AddConversationMessage(sessionID, role, content string) error
	// ListConversationMessages returns the last limit turns in order;
	// limit 0 means all.
	ListConversationMessages(sessionID string, limit int) ([]Message, error)
	// GetProviderUserValue returns a stored user field value.
	GetProviderUserValue(providerID, key string, roleID int64) (string, bool, error)
	// SetProviderUserValue stores a user field value.
	SetProviderUserValue(providerID, key string, roleID int64, value string) error
}

// MemoryStore is an in-process Store for the facade and for tests; real
// deployments plug in their own persistence behind the interface.
type MemoryStore struct {
	mu       sync.RWMutex
	history  map[string][]Message
	userVals map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history:  make(map[string][]Message),
		userVals: make(map[string]string),
	}
}

func (s *MemoryStore) AddConversationMessage(sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sessionID] = append(s.history[sessionID], Message{Role: role, Content: content})
	return nil
}

func (s *MemoryStore) ListConversationMessages(sessionID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.history[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func userValueKey(providerID, key string, roleID int64) string {
	return fmt.Sprintf("%s/%s/%d", providerID, key, roleID)
}

func (s *MemoryStore) GetProviderUserValue(providerID, key string, roleID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.userVals[userValueKey(providerID, key, roleID)]
	return v, ok, nil
}

func (s *MemoryStore) SetProviderUserValue(providerID, key string, roleID int64, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userVals[userValueKey(providerID, key, roleID)] = value
	return nil
}
