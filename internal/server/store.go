package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps editing workspaces in memory. Sessions expire after ttl without
// use; when the limit is reached the least recently used one is evicted.
type Store struct {
	items map[string]*storedSession
	now   func() time.Time
	ttl   time.Duration
	max   int
	mu    sync.Mutex
}

type storedSession struct {
	workspace *Workspace
	lastSeen  time.Time
	mu        sync.Mutex
}

// NewStore returns an empty store.
func NewStore(limit int, ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]*storedSession),
		now:   time.Now,
		ttl:   ttl,
		max:   limit,
	}
}

// Create stores ws under a new random id.
func (st *Store) Create(ws *Workspace) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sweepLocked()
	if st.max > 0 && len(st.items) >= st.max {
		st.evictOldestLocked()
	}

	id := uuid.NewString()
	st.items[id] = &storedSession{workspace: ws, lastSeen: st.now()}
	return id
}

// With runs fn on the workspace with the given id while holding its lock.
// It reports false when the session does not exist.
func (st *Store) With(id string, fn func(*Workspace) error) (bool, error) {
	st.mu.Lock()
	item, ok := st.items[id]
	if ok && st.expired(item) {
		delete(st.items, id)
		ok = false
	}
	if ok {
		item.lastSeen = st.now()
	}
	st.mu.Unlock()

	if !ok {
		return false, nil
	}

	item.mu.Lock()
	defer item.mu.Unlock()
	return true, fn(item.workspace)
}

// Delete drops a session.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.items[id]
	delete(st.items, id)
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}

// Run sweeps expired sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.mu.Lock()
			removed := st.sweepLocked()
			open := len(st.items)
			st.mu.Unlock()

			if removed > 0 {
				log.Debug().Int("expired", removed).Int("open", open).Msg("Sessions swept")
			}
		}
	}
}

func (st *Store) expired(item *storedSession) bool {
	return st.ttl > 0 && st.now().Sub(item.lastSeen) > st.ttl
}

func (st *Store) sweepLocked() int {
	removed := 0
	for id, item := range st.items {
		if st.expired(item) {
			delete(st.items, id)
			removed++
		}
	}
	return removed
}

func (st *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, item := range st.items {
		if oldestID == "" || item.lastSeen.Before(oldest) {
			oldestID, oldest = id, item.lastSeen
		}
	}
	if oldestID != "" {
		delete(st.items, oldestID)
		log.Debug().Str("session", oldestID).Msg("Session evicted")
	}
}
