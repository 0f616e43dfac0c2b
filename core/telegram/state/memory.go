package state

import (
	"maps"
	"sync"
)

type memoryBackend struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewMemoryManager keeps sessions in process memory. They are lost on restart.
func NewMemoryManager() Manager {
	return manager{b: &memoryBackend{sessions: make(map[int64]*Session)}}
}

func (b *memoryBackend) load(userID int64) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := newSession()
	if cur, ok := b.sessions[userID]; ok {
		out.State = cur.State
		maps.Copy(out.TempData, cur.TempData)
	}
	return out
}

func (b *memoryBackend) update(userID int64, fn func(*Session)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[userID]
	if !ok {
		sess = newSession()
		b.sessions[userID] = sess
	}
	fn(sess)
	if sess.idle() {
		delete(b.sessions, userID)
	}
}

func (b *memoryBackend) clear(userID int64) {
	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()
}
