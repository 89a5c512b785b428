package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/monynha/botecopro/domains/onboarding/be/service"
)

// MemoryStore keeps sessions in process with a sliding TTL.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	session   service.Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if now.After(item.expiresAt) {
		delete(m.items, id)
		return nil, ErrNotFound
	}
	item.expiresAt = now.Add(m.ttl)
	m.items[id] = item

	s := item.session
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *service.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s.UpdatedAt = now.UTC()
	m.items[s.ID] = memoryItem{session: *s, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
