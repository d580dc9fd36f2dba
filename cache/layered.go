package cache

import (
	"context"
	"log/slog"
	"time"
)

// Layered reads through a fast primary cache to a slower secondary one.
// Secondary hits are promoted into the primary. Writes go to both layers.
// Secondary failures are logged and never returned.
type Layered struct {
	primary   Cache
	secondary Cache
	// promoteTTL is used when copying a secondary hit into the primary.
	promoteTTL time.Duration
}

// NewLayered creates a two-level cache. promoteTTL bounds how long promoted
// entries live in the primary layer.
func NewLayered(primary, secondary Cache, promoteTTL time.Duration) *Layered {
	return &Layered{primary: primary, secondary: secondary, promoteTTL: promoteTTL}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := l.primary.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return v, true, nil
	}
	if l.secondary == nil {
		return nil, false, nil
	}

	v, ok, err = l.secondary.Get(ctx, key)
	if err != nil {
		slog.Warn("cache: secondary get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	if err := l.primary.Set(ctx, key, v, l.promoteTTL); err != nil {
		slog.Warn("cache: promote failed", "key", key, "error", err)
	}
	return v, true, nil
}

func (l *Layered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := l.primary.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if l.secondary != nil {
		if err := l.secondary.Set(ctx, key, value, ttl); err != nil {
			slog.Warn("cache: secondary set failed", "key", key, "error", err)
		}
	}
	return nil
}

func (l *Layered) Delete(ctx context.Context, key string) error {
	if err := l.primary.Delete(ctx, key); err != nil {
		return err
	}
	if l.secondary != nil {
		if err := l.secondary.Delete(ctx, key); err != nil {
			slog.Warn("cache: secondary delete failed", "key", key, "error", err)
		}
	}
	return nil
}
