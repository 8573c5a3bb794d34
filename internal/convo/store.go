// Package convo holds the in-memory conversational state: per-chat turn
// windows, character overrides, and trigger names. Nothing here survives a
// restart.
package convo

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role
	Text string
}

const (
	// MaxTurns is the sliding window per chat; oldest turns drop first.
	MaxTurns = 10
	// MaxChats bounds the number of tracked chats; the oldest-inserted
	// chat is evicted first (insertion order, not LRU-by-access).
	MaxChats = 20
)

// Store keeps a bounded turn history per chat.
type Store struct {
	mu       sync.Mutex
	contexts map[string][]Turn
	order    []string // chat GUIDs in first-insertion order
	maxTurns int
	maxChats int
}

func NewStore() *Store {
	return &Store{
		contexts: make(map[string][]Turn),
		maxTurns: MaxTurns,
		maxChats: MaxChats,
	}
}

func (s *Store) Append(chatGUID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[chatGUID]; !ok {
		s.order = append(s.order, chatGUID)
	}
	turns := append(s.contexts[chatGUID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.contexts[chatGUID] = turns
}

// Turns returns a copy of the chat's window, oldest first.
func (s *Store) Turns(chatGUID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.contexts[chatGUID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear empties a chat's window without forgetting the chat itself.
func (s *Store) Clear(chatGUID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[chatGUID]; ok {
		s.contexts[chatGUID] = nil
	}
}

func (s *Store) Chats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// PruneChats evicts oldest-inserted chats until at most maxChats remain.
func (s *Store) PruneChats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) > s.maxChats {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.contexts, evict)
	}
}

// Characters maps a chat to its persona override. An absent entry means
// the default persona applies. Overrides never expire; clearing a chat's
// context does not clear its character.
type Characters struct {
	mu       sync.Mutex
	personas map[string]string
}

func NewCharacters() *Characters {
	return &Characters{personas: make(map[string]string)}
}

func (c *Characters) Set(chatGUID, persona string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.personas[chatGUID] = persona
}

func (c *Characters) Get(chatGUID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.personas[chatGUID]
	return p, ok
}

// TriggerNames maps a chat to its conversational trigger name, settable
// with @name. Chats without an entry answer to the default name.
type TriggerNames struct {
	mu    sync.Mutex
	names map[string]string
	def   string
}

func NewTriggerNames(def string) *TriggerNames {
	return &TriggerNames{names: make(map[string]string), def: def}
}

func (t *TriggerNames) Set(chatGUID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[chatGUID] = name
}

func (t *TriggerNames) Get(chatGUID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if name, ok := t.names[chatGUID]; ok {
		return name
	}
	return t.def
}
