package queue

import (
	"context"
	"sync"
	"time"

	"autodialer/pkg/utils"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLeaseKey = "autodialer:call_queue:lease"

// RedisRunLease holds a Redis key for the lifetime of a run so that two
// processes do not dial from the same account at once.
type RedisRunLease struct {
	rdb redis.Scripter
	key string
	ttl time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisRunLease sizes the TTL so one slow call cannot let the lease lapse.
func NewRedisRunLease(rdb redis.Scripter, key string, policy Policy) *RedisRunLease {
	if key == "" {
		key = DefaultLeaseKey
	}
	ttl := 2 * policy.withDefaults().perCallBudget()
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &RedisRunLease{rdb: rdb, key: key, ttl: ttl}
}

func (l *RedisRunLease) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := utils.AcquireLease(ctx, l.rdb, l.key, token, l.ttl)
	if err != nil || !ok {
		return ok, err
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisRunLease) Renew(ctx context.Context) error {
	token := l.current()
	if token == "" {
		return errors.New("run lease not held")
	}
	ok, err := utils.ExtendLease(ctx, l.rdb, l.key, token, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf("run lease %s lost", l.key)
	}
	return nil
}

func (l *RedisRunLease) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	return utils.ReleaseLease(ctx, l.rdb, l.key, token)
}

func (l *RedisRunLease) current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}
