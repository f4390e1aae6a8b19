package main

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedNamespace = "revoked_token"

// tokenDenylist remembers logged-out tokens until they would have expired anyway.
type tokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisDenylist struct {
	client redis.UniversalClient
}

func newRedisDenylist(addr, password string) *redisDenylist {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &redisDenylist{client: rdb}
}

func (d *redisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, revokedNamespace+":"+tokenID, 1, ttl).Err()
}

func (d *redisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, revokedNamespace+":"+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *redisDenylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// noopDenylist is used when REDIS_ADDR is unset: logout only drops the client credential.
type noopDenylist struct{}

func (noopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }
func (noopDenylist) IsRevoked(context.Context, string) (bool, error)   { return false, nil }
