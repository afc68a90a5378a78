package implementation

import (
	"context"
	"time"

	"rfp-answer-engine/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// compare-and-delete so an expired holder cannot free a lock someone else took over
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type runLockRepository struct {
	rdb *redis.Client
}

func NewRunLockRepository(rdb *redis.Client) contract.RunLockRepository {
	return &runLockRepository{rdb: rdb}
}

func (r *runLockRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, key, token, ttl).Result()
}

func (r *runLockRepository) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, r.rdb, []string{key}, token).Err()
}
