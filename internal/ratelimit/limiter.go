// Package ratelimit implements a sliding-window request limiter stored in Redis
// sorted sets, one set per caller identifier.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "rate_limit:"

type Config struct {
	MaxRequests int           // requests allowed per window (default: 10)
	Window      time.Duration // sliding window length (default: 1 minute)
}

func DefaultConfig() Config {
	return Config{
		MaxRequests: 10,
		Window:      time.Minute,
	}
}

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

type Limiter struct {
	client redis.UniversalClient
	config Config
	now    func() time.Time
}

// New builds a limiter. A nil client disables limiting entirely, which keeps
// local runs without Redis usable.
func New(client redis.UniversalClient, config Config) *Limiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &Limiter{
		client: client,
		config: config,
		now:    time.Now,
	}
}

func (l *Limiter) Config() Config {
	return l.config
}

// Allow records a request for id if it fits in the window. Redis failures fail
// open: the request is allowed and a warning is logged.
func (l *Limiter) Allow(ctx context.Context, id string) (Result, error) {
	now := l.now()
	if l.client == nil {
		return Result{
			Allowed:   true,
			Remaining: l.config.MaxRequests,
			ResetAt:   now.Add(l.config.Window),
		}, nil
	}

	res, err := l.allow(ctx, id, now)
	if err != nil {
		logrus.WithError(err).WithField("id", id).Warn("rate limiter unavailable, allowing request")
		return Result{
			Allowed:   true,
			Remaining: l.config.MaxRequests,
			ResetAt:   now.Add(l.config.Window),
		}, err
	}
	return res, nil
}

func (l *Limiter) allow(ctx context.Context, id string, now time.Time) (Result, error) {
	key := keyPrefix + id
	nowMs := now.UnixMilli()
	windowStart := nowMs - l.config.Window.Milliseconds()

	var oldest *redis.ZSliceCmd
	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(windowStart, 10))
		count = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("read window for %s: %w", id, err)
	}

	current := int(count.Val())
	if current >= l.config.MaxRequests {
		resetAt := now.Add(l.config.Window)
		if zs := oldest.Val(); len(zs) > 0 {
			resetAt = time.UnixMilli(int64(zs[0].Score)).Add(l.config.Window)
		}
		retryAfter := resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		logrus.WithFields(logrus.Fields{
			"id":          id,
			"count":       current,
			"retry_after": retryAfter,
		}).Info("rate limit exceeded")
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())
	ttl := time.Duration(math.Ceil(l.config.Window.Seconds())) * time.Second
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, &redis.Z{Score: float64(nowMs), Member: member})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("record request for %s: %w", id, err)
	}

	return Result{
		Allowed:   true,
		Remaining: l.config.MaxRequests - current - 1,
		ResetAt:   now.Add(l.config.Window),
	}, nil
}
