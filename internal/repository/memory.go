package repository

import (
	"context"
	"sync"
	"time"

	"blakkisvuohi/internal/models"
)

type MemoryStateRepository struct {
	mu         sync.Mutex
	sessions   map[models.SessionKey]*models.Session
	rateLimits map[int64]*rateLimitEntry
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		sessions:   make(map[models.SessionKey]*models.Session),
		rateLimits: make(map[int64]*rateLimitEntry),
	}
}

func (r *MemoryStateRepository) GetSession(_ context.Context, key models.SessionKey) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *MemoryStateRepository) SetSession(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.Key()] = cloneSession(session)
	return nil
}

func (r *MemoryStateRepository) ClearSession(_ context.Context, key models.SessionKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, key)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, senderID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, ok := r.rateLimits[senderID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[senderID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

// cloneSession keeps callers from mutating stored state through shared maps.
func cloneSession(s *models.Session) *models.Session {
	c := *s
	if s.Data != nil {
		c.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			c.Data[k] = v
		}
	}
	return &c
}
