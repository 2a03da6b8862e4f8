package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisKV implements KV against a Redis server. The connection is dialled
// lazily: the first use runs a ping probe, and if the probe fails the
// client is discarded so the next call retries. All calls run under a
// short timeout and a circuit breaker so a dead store fails fast instead
// of stalling the request path.
type RedisKV struct {
	addr    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker

	mu     sync.Mutex
	client *redis.Client
}

// NewRedisKV creates a RedisKV for the given address. timeout bounds each
// store round trip including the initial probe.
func NewRedisKV(addr string, timeout time.Duration) *RedisKV {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-kv",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	return &RedisKV{
		addr:    addr,
		timeout: timeout,
		breaker: cb,
	}
}

// conn returns the cached client, dialling and probing on first use.
func (r *RedisKV) conn(ctx context.Context) (*redis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         r.addr,
		DialTimeout:  r.timeout,
		ReadTimeout:  r.timeout,
		WriteTimeout: r.timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, r.addr, err)
	}

	r.client = client
	return r.client, nil
}

// discard drops the cached client so the next call re-dials.
func (r *RedisKV) discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}

// execute runs op under the call timeout and the circuit breaker, mapping
// every failure mode to ErrUnavailable.
func (r *RedisKV) execute(ctx context.Context, op func(ctx context.Context, c *redis.Client) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.breaker.Execute(func() (interface{}, error) {
		client, err := r.conn(ctx)
		if err != nil {
			return nil, err
		}
		out, err := op(ctx, client)
		if err != nil {
			r.discard()
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		log.Printf("store: redis call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

type getReply struct {
	value string
	found bool
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := r.execute(ctx, func(ctx context.Context, c *redis.Client) (interface{}, error) {
		value, err := c.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// A miss is a normal outcome, not a store failure.
			return getReply{}, nil
		}
		if err != nil {
			return nil, err
		}
		return getReply{value: value, found: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	reply := result.(getReply)
	return reply.value, reply.found, nil
}

func (r *RedisKV) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := r.execute(ctx, func(ctx context.Context, c *redis.Client) (interface{}, error) {
		return nil, c.Set(ctx, key, value, ttl).Err()
	})
	return err
}

func (r *RedisKV) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := r.execute(ctx, func(ctx context.Context, c *redis.Client) (interface{}, error) {
		count, err := c.Incr(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if count == 1 {
			if err := c.Expire(ctx, key, window).Err(); err != nil {
				return nil, err
			}
		}
		remaining, err := c.TTL(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		return [2]int64{count, int64(remaining)}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	pair := result.([2]int64)
	remaining := time.Duration(pair[1])
	if remaining < 0 {
		remaining = 0
	}
	return pair[0], remaining, nil
}

var _ KV = (*RedisKV)(nil)
