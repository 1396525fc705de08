package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a redis-backed Store. The state tag lives in a plain key and
// the bag in a hash; both carry the session TTL so redis expires idle
// sessions without any sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOpts holds parameters for creating a RedisStore.
type RedisStoreOpts struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // defaults to DefaultTTL
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(ctx context.Context, opts RedisStoreOpts) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("session: redis addr is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis ping %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func stateKey(userID string) string { return "reportflow:sess:" + userID + ":state" }
func dataKey(userID string) string  { return "reportflow:sess:" + userID + ":data" }

// State returns the user's current state tag, or "" when none.
func (r *RedisStore) State(ctx context.Context, userID string) (State, error) {
	val, err := r.client.Get(ctx, stateKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: get state for %s: %w", userID, err)
	}
	return State(val), nil
}

// SetState sets the user's state tag and refreshes the TTL.
func (r *RedisStore) SetState(ctx context.Context, userID string, s State) error {
	if err := r.client.Set(ctx, stateKey(userID), string(s), r.ttl).Err(); err != nil {
		return fmt.Errorf("session: set state for %s: %w", userID, err)
	}
	r.client.Expire(ctx, dataKey(userID), r.ttl)
	return nil
}

// Data returns a copy of the user's bag.
func (r *RedisStore) Data(ctx context.Context, userID string) (Bag, error) {
	vals, err := r.client.HGetAll(ctx, dataKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("session: get data for %s: %w", userID, err)
	}
	bag := make(Bag, len(vals))
	for k, v := range vals {
		bag[k] = v
	}
	return bag, nil
}

// Update merges partial into the user's bag and refreshes the TTL.
func (r *RedisStore) Update(ctx context.Context, userID string, partial Bag) error {
	if len(partial) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(partial))
	for k, v := range partial {
		fields[k] = v
	}
	key := dataKey(userID)
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("session: update data for %s: %w", userID, err)
	}
	r.client.Expire(ctx, key, r.ttl)
	r.client.Expire(ctx, stateKey(userID), r.ttl)
	return nil
}

// Clear removes the user's state tag and bag.
func (r *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, stateKey(userID), dataKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: clear %s: %w", userID, err)
	}
	return nil
}

// Close releases the redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
