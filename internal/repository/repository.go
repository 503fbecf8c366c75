package repository

import (
	"context"
	"sync"
)

// Fixed keys of the persisted session record.
const (
	KeyToken    = "token"
	KeyUsername = "username"
	KeyRole     = "role"
	KeyUserID   = "userId"
)

// RequiredKeys must all be present for a persisted record to be usable.
var RequiredKeys = []string{KeyToken, KeyUsername, KeyRole}

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// SessionDB is the single persisted location of the console session.
// Save replaces the whole record atomically; readers never observe a mix of
// an old and a new record.
type SessionDB interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, record map[string]string) error
	Clear(ctx context.Context) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of SessionDB
type MemoryRepo struct {
	mu     sync.RWMutex
	record map[string]string
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{record: make(map[string]string)}
}

// Load returns a copy of the stored record. An empty map means nothing is stored.
func (r *MemoryRepo) Load(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRecord(r.record), nil
}

// Save replaces the stored record
func (r *MemoryRepo) Save(_ context.Context, record map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = copyRecord(record)
	return nil
}

// Clear removes the stored record
func (r *MemoryRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = make(map[string]string)
	return nil
}

// Put sets a single key, bypassing the atomic Save. This method is intended for tests only.
func (r *MemoryRepo) Put(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record[key] = value
}

func copyRecord(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
