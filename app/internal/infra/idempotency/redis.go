// Package idempotency remembers which order a checkout Idempotency-Key
// produced, so a retried request gets the same order back.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	checkoutuc "example.com/storefront/app/internal/usecase/checkout"
)

const (
	keyPrefix = "storefront:checkout:idem:"
	pending   = "pending"
)

// cmdable is the part of *redis.Client the store needs.
type cmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client cmdable
	ttl    time.Duration
}

func NewRedisStore(client cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Claim stores "pending:<fingerprint>" under key unless the key exists, in
// which case the earlier record is decoded and returned.
func (s *RedisStore) Claim(ctx context.Context, key, fingerprint string) (checkoutuc.KeyRecord, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, keyPrefix+key, encode(pending, fingerprint), s.ttl).Result()
		if err != nil {
			return checkoutuc.KeyRecord{}, false, err
		}
		if ok {
			return checkoutuc.KeyRecord{}, true, nil
		}

		val, err := s.client.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return checkoutuc.KeyRecord{}, false, err
		}
		rec, err := decode(val)
		if err != nil {
			return checkoutuc.KeyRecord{}, false, fmt.Errorf("idempotency key %q holds %q: %w", key, val, err)
		}
		return rec, false, nil
	}
	return checkoutuc.KeyRecord{Fingerprint: fingerprint}, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, orderID int64) error {
	return s.client.Set(ctx, keyPrefix+key, encode(strconv.FormatInt(orderID, 10), fingerprint), s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func encode(state, fingerprint string) string {
	return state + ":" + fingerprint
}

func decode(val string) (checkoutuc.KeyRecord, error) {
	state, fp, ok := strings.Cut(val, ":")
	if !ok {
		return checkoutuc.KeyRecord{}, errors.New("missing fingerprint")
	}
	if state == pending {
		return checkoutuc.KeyRecord{Fingerprint: fp}, nil
	}
	id, err := strconv.ParseInt(state, 10, 64)
	if err != nil {
		return checkoutuc.KeyRecord{}, err
	}
	return checkoutuc.KeyRecord{OrderID: id, Fingerprint: fp}, nil
}
