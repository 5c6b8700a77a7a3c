package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Storage implementation backed by go-redis: a LIST for the FIFO
// queue, a ZSET (scored by eta, Unix nanoseconds) for the schedule, and a
// HASH for the key/value surface. Grounded on the teacher's existing
// BLMove-based dequeue and Lua-scripted atomic schedule drain.
type Redis struct {
	rdb         redis.UniversalClient
	queueKey    string
	scheduleKey string
	dataKey     string
	readTimeout time.Duration

	readScheduleScript *redis.Script
}

// NewRedis returns a Redis storage instance namespaced under name, talking
// to the given go-redis client. readTimeout bounds how long a blocking
// Dequeue waits before reporting "not found".
func NewRedis(name string, rdb redis.UniversalClient, readTimeout time.Duration) *Redis {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	return &Redis{
		rdb:         rdb,
		queueKey:    name + ".queue",
		scheduleKey: name + ".schedule",
		dataKey:     name + ".data",
		readTimeout: readTimeout,
		readScheduleScript: redis.NewScript(`
			local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
			if #due > 0 then
				redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
			end
			return due
		`),
	}
}

func (r *Redis) Enqueue(ctx context.Context, data []byte) error {
	return r.rdb.RPush(ctx, r.queueKey, data).Err()
}

func (r *Redis) Dequeue(ctx context.Context) ([]byte, bool, error) {
	result, err := r.rdb.BLPop(ctx, r.readTimeout, r.queueKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// BLPop returns [key, value].
	if len(result) < 2 {
		return nil, false, fmt.Errorf("storage: unexpected BLPOP reply %v", result)
	}
	return []byte(result[1]), true, nil
}

func (r *Redis) EnqueuedItems(ctx context.Context, limit int) ([][]byte, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := r.rdb.LRange(ctx, r.queueKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return toBytesSlice(items), nil
}

func (r *Redis) QueueSize(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, r.queueKey).Result()
}

func (r *Redis) AddToSchedule(ctx context.Context, data []byte, eta time.Time) error {
	return r.rdb.ZAdd(ctx, r.scheduleKey, redis.Z{
		Score:  float64(eta.UnixNano()),
		Member: data,
	}).Err()
}

func (r *Redis) ReadSchedule(ctx context.Context, now time.Time) ([][]byte, error) {
	res, err := r.readScheduleScript.Run(ctx, r.rdb, []string{r.scheduleKey}, now.UnixNano()).Result()
	if err != nil {
		return nil, err
	}
	items, ok := res.([]any)
	if !ok {
		return nil, nil
	}
	out := make([][]byte, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

func (r *Redis) ScheduledItems(ctx context.Context, limit int) ([][]byte, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := r.rdb.ZRange(ctx, r.scheduleKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return toBytesSlice(items), nil
}

func (r *Redis) ScheduleSize(ctx context.Context) (int64, error) {
	return r.rdb.ZCard(ctx, r.scheduleKey).Result()
}

func (r *Redis) PutData(ctx context.Context, key string, data []byte) error {
	return r.rdb.HSet(ctx, r.dataKey, key, data).Err()
}

func (r *Redis) PeekData(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.rdb.HGet(ctx, r.dataKey, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (r *Redis) PopData(ctx context.Context, key string) ([]byte, bool, error) {
	data, present, err := r.PeekData(ctx, key)
	if err != nil || !present {
		return data, present, err
	}
	if err := r.rdb.HDel(ctx, r.dataKey, key).Err(); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) PutIfEmpty(ctx context.Context, key string, data []byte) (bool, error) {
	return r.rdb.HSetNX(ctx, r.dataKey, key, data).Result()
}

func (r *Redis) ResultItems(ctx context.Context) (map[string][]byte, error) {
	all, err := r.rdb.HGetAll(ctx, r.dataKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(all))
	for k, v := range all {
		if isResultKey(k) {
			out[k] = []byte(v)
		}
	}
	return out, nil
}

// ResultStoreSize counts only result keys in the shared hash, excluding live
// revocation records and task locks (same isResultKey filter as Memory).
func (r *Redis) ResultStoreSize(ctx context.Context) (int64, error) {
	all, err := r.rdb.HKeys(ctx, r.dataKey).Result()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, k := range all {
		if isResultKey(k) {
			n++
		}
	}
	return n, nil
}

func (r *Redis) FlushAll(ctx context.Context) error {
	return r.rdb.Del(ctx, r.queueKey, r.scheduleKey, r.dataKey).Err()
}

func toBytesSlice(items []string) [][]byte {
	out := make([][]byte, len(items))
	for i, s := range items {
		out[i] = []byte(s)
	}
	return out
}
