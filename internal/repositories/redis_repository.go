package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Edit sessions expire from the lease index after this long without
// activity. The in-memory model itself lives only in the API process; the
// lease exists so operators can see who is editing a schema and since when.
const sessionLeaseTTL = 2 * time.Hour

type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

// StoreLease records that a session is editing a schema. Editing is
// last-writer-wins, so an existing lease is overwritten, not contested.
func (r *RedisRepository) StoreLease(ctx context.Context, schemaID, sessionID string) error {
	key := "edit_lease:" + schemaID
	return r.rdb.Set(ctx, key, sessionID, sessionLeaseTTL).Err()
}

// LeaseHolder returns the session currently holding the edit lease on a
// schema, or "" when nobody does.
func (r *RedisRepository) LeaseHolder(ctx context.Context, schemaID string) (string, error) {
	key := "edit_lease:" + schemaID
	holder, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return holder, err
}

// RefreshLease extends the lease on activity.
func (r *RedisRepository) RefreshLease(ctx context.Context, schemaID string) error {
	key := "edit_lease:" + schemaID
	return r.rdb.Expire(ctx, key, sessionLeaseTTL).Err()
}

// ReleaseLease drops the lease when a session closes, but only if the
// session still owns it.
func (r *RedisRepository) ReleaseLease(ctx context.Context, schemaID, sessionID string) error {
	key := "edit_lease:" + schemaID
	holder, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder != sessionID {
		return nil
	}
	return r.rdb.Del(ctx, key).Err()
}
