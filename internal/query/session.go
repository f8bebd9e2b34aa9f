package query

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"multiverse/internal/ports"
)

const sessionCacheSize = 4096

// MemoryEntry records one resolved turn inside a session.
type MemoryEntry struct {
	Turn       int    `json:"turn"`
	Intent     string `json:"intent"`
	Input      string `json:"input"`
	TemplateID string `json:"template_id"`
	Timestamp  string `json:"timestamp"`
}

// Session tracks one (player, npc) conversation.
type Session struct {
	PlayerID     string        `json:"player_id"`
	NPCID        string        `json:"npc_id"`
	LastIntent   string        `json:"last_intent"`
	History      []MemoryEntry `json:"history"`
	TurnCount    int           `json:"turn_count"`
	LastActivity time.Time     `json:"last_activity"`
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// sessionManager keys sessions by (player, npc) and resets them silently
// after the idle timeout. Each key is serial: the entry lock is held for
// the whole turn so calls on one conversation never interleave.
type sessionManager struct {
	cache *lru.Cache[string, *sessionEntry]
	idle  time.Duration
	clock ports.Clock
	mu    sync.Mutex
}

func newSessionManager(idle time.Duration, clock ports.Clock) (*sessionManager, error) {
	cache, err := lru.New[string, *sessionEntry](sessionCacheSize)
	if err != nil {
		return nil, err
	}
	return &sessionManager{cache: cache, idle: idle, clock: clock}, nil
}

func sessionKey(playerID, npcID string) string {
	return playerID + "::" + npcID
}

// checkout returns the locked session entry for the pair, creating or
// idle-resetting as needed. The caller must call entry.mu.Unlock.
func (m *sessionManager) checkout(playerID, npcID string) *sessionEntry {
	key := sessionKey(playerID, npcID)

	m.mu.Lock()
	entry, ok := m.cache.Get(key)
	if !ok {
		entry = &sessionEntry{session: Session{PlayerID: playerID, NPCID: npcID}}
		m.cache.Add(key, entry)
	}
	m.mu.Unlock()

	entry.mu.Lock()
	now := m.clock.Now()
	if !entry.session.LastActivity.IsZero() && now.Sub(entry.session.LastActivity) > m.idle {
		// silent reset, not an error to the caller
		entry.session = Session{PlayerID: playerID, NPCID: npcID}
	}
	return entry
}

// peek returns a copy of the current session state, or nil.
func (m *sessionManager) peek(playerID, npcID string) *Session {
	m.mu.Lock()
	entry, ok := m.cache.Get(sessionKey(playerID, npcID))
	m.mu.Unlock()
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	copied := entry.session
	copied.History = append([]MemoryEntry(nil), entry.session.History...)
	return &copied
}
