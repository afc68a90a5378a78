package contract

import (
	"context"
	"time"
)

// RunLockRepository guards the one-run-per-project rule. Acquire is atomic and reports false
// when another holder owns key; Release only frees a lock still held under token.
type RunLockRepository interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}
