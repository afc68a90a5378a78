package memory

import (
	"context"
	"sync"
	"time"

	"rfp-answer-engine/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// RunLockRepository is the single-instance lock used when redis is not configured.
type RunLockRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

var _ contract.RunLockRepository = &RunLockRepository{}

func NewRunLockRepository() *RunLockRepository {
	return &RunLockRepository{
		cache: cache.New(time.Hour, 10*time.Minute),
	}
}

func (r *RunLockRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Add fails when the key exists and has not expired
	if err := r.cache.Add(key, token, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *RunLockRepository) Release(ctx context.Context, key, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(key); found && x.(string) == token {
		r.cache.Delete(key)
	}
	return nil
}
