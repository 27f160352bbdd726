package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists users and messages.
type Repository interface {
	FindOrCreateUser(ctx context.Context, nickname string, now time.Time) (User, error)
	SaveMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, limit int) ([]Message, error)
	Ping(ctx context.Context) error
}

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	messages []Message
	nextUser int64
	nextMsg  int64
}

// NewMemoryRepository returns an empty process-local repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

func (r *MemoryRepository) FindOrCreateUser(_ context.Context, nickname string, now time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[nickname]; ok {
		return u, nil
	}
	r.nextUser++
	u := User{ID: r.nextUser, Nickname: nickname, CreatedAt: now}
	r.users[nickname] = u
	return u, nil
}

func (r *MemoryRepository) SaveMessage(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextMsg++
	msg.ID = r.nextMsg
	r.messages = append(r.messages, *msg)
	return nil
}

// ListMessages returns up to limit messages, newest first.
func (r *MemoryRepository) ListMessages(_ context.Context, limit int) ([]Message, error) {
	r.mu.RLock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
