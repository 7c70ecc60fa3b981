package session

import (
	"container/list"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/observability"
)

// ErrNotFound is returned when a conversation does not exist or has been
// evicted.
var ErrNotFound = errors.New("conversation not found")

// Conversation is one stored transcript. Callers hold the conversation
// lock for the whole time they read or extend the transcript, which keeps
// each conversation strictly sequential.
type Conversation struct {
	// ID is the conversation id.
	ID string

	mu         sync.Mutex
	transcript *conversation.Transcript
	updatedAt  time.Time
}

// Lock acquires exclusive use of the conversation.
func (c *Conversation) Lock() { c.mu.Lock() }

// Unlock releases the conversation and records the access time.
func (c *Conversation) Unlock() {
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// Transcript returns the transcript. Only use it while holding the lock.
func (c *Conversation) Transcript() *conversation.Transcript {
	return c.transcript
}

// UpdatedAt returns when the conversation was last released.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Store is an in-memory conversation store with optional LRU eviction.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*list.Element
	lruList      *list.List // front = most recently used, back = least recently used
	maxSize      int        // 0 = unlimited
	systemPrompt string
}

// New creates a store whose conversations start with systemPrompt. If
// maxSize is 0, the store grows without limit.
func New(maxSize int, systemPrompt string) *Store {
	return &Store{
		entries:      make(map[string]*list.Element),
		lruList:      list.New(),
		maxSize:      maxSize,
		systemPrompt: systemPrompt,
	}
}

// Open returns the conversation with the given id, creating it when it
// does not exist. An empty id creates a conversation with a fresh id.
func (s *Store) Open(id string) (conv *Conversation, created bool) {
	if id == "" {
		id = api.NewConversationID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[id]; ok {
		s.lruList.MoveToFront(elem)
		return elem.Value.(*Conversation), false
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	conv = &Conversation{
		ID:         id,
		transcript: conversation.New(s.systemPrompt),
		updatedAt:  time.Now(),
	}
	s.entries[id] = s.lruList.PushFront(conv)
	return conv, true
}

// Get returns an existing conversation or ErrNotFound.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lruList.MoveToFront(elem)
	return elem.Value.(*Conversation), nil
}

// Delete removes a conversation. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	s.lruList.Remove(elem)
	delete(s.entries, id)
	return nil
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictOldest removes the least recently used conversation.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	conv := s.lruList.Remove(back).(*Conversation)
	delete(s.entries, conv.ID)
	observability.SessionEvictionsTotal.Inc()
	slog.Debug("conversation evicted", "conversation_id", conv.ID)
}
