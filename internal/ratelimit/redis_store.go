package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	fieldCount = "count"
	fieldReset = "reset"
)

// RedisStore keeps window records as Redis hashes that expire at the end of
// their window, so Redis itself sweeps abandoned keys.
type RedisStore struct {
	cli    redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store on top of an existing client
func NewRedisStore(cli redis.UniversalClient, prefix string) RedisStore {
	if prefix == "" {
		prefix = "quake:ratelimit:"
	}
	return RedisStore{
		cli:    cli,
		prefix: prefix,
	}
}

func (r RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	values, err := r.cli.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return Record{}, false, errors.WithMessage(err, "hgetall")
	}
	if len(values) == 0 {
		return Record{}, false, nil
	}

	count, err := strconv.Atoi(values[fieldCount])
	if err != nil {
		return Record{}, false, errors.WithMessagef(err, "parse count of '%s'", key)
	}
	resetMs, err := strconv.ParseInt(values[fieldReset], 10, 64)
	if err != nil {
		return Record{}, false, errors.WithMessagef(err, "parse reset of '%s'", key)
	}

	return Record{
		Count:     count,
		ResetTime: time.UnixMilli(resetMs),
	}, true, nil
}

func (r RedisStore) Set(ctx context.Context, key string, rec Record) error {
	k := r.key(key)
	_, err := r.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k,
			fieldCount, rec.Count,
			fieldReset, rec.ResetTime.UnixMilli(),
		)
		p.PExpireAt(ctx, k, rec.ResetTime)
		return nil
	})
	if err != nil {
		return errors.WithMessage(err, "hset with expiry")
	}
	return nil
}

func (r RedisStore) Delete(ctx context.Context, key string) error {
	err := r.cli.Del(ctx, r.key(key)).Err()
	if err != nil {
		return errors.WithMessage(err, "del")
	}
	return nil
}

// Sweep is a no-op: every key carries a PEXPIREAT at its reset time.
func (r RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r RedisStore) key(key string) string {
	return r.prefix + key
}
