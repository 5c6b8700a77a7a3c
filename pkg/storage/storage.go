// Package storage defines the broker abstraction the dispatcher consumes: a
// FIFO queue, an ETA-sorted schedule, and a key/value surface with
// put-if-empty semantics for locks and revocation records.
package storage

import (
	"context"
	"strings"
	"time"
)

// Revocation and lock records share the same key/value surface as stored
// results (PutData/PeekData/PopData/PutIfEmpty), distinguished only by key
// shape: "r:"+id and "rt:"+class for revocations (pkg/task.RevokeIDPrefix
// and the hive package's class-revocation keys), "<name>.lock."+name for
// task locks. isResultKey lets ResultStoreSize/ResultItems report just the
// result namespace instead of over-counting live revocations and locks.
const (
	revokeInstancePrefix = "r:"
	revokeClassPrefix    = "rt:"
	lockInfix            = ".lock."
)

func isResultKey(key string) bool {
	if strings.HasPrefix(key, revokeInstancePrefix) || strings.HasPrefix(key, revokeClassPrefix) {
		return false
	}
	return !strings.Contains(key, lockInfix)
}

// Storage is the capability set spec.md §4.1 requires of a broker driver.
// Every read operation reports presence explicitly via a bool return so a
// legitimately stored nil/empty value is never confused with "absent".
type Storage interface {
	// Enqueue appends data to the FIFO queue.
	Enqueue(ctx context.Context, data []byte) error
	// Dequeue removes and returns the oldest queued item. ok is false when
	// the queue was empty (drivers may block up to their own read timeout
	// before reporting that).
	Dequeue(ctx context.Context) (data []byte, ok bool, err error)
	// EnqueuedItems returns up to limit queued items without removing them,
	// oldest first. limit <= 0 means no limit.
	EnqueuedItems(ctx context.Context, limit int) ([][]byte, error)
	// QueueSize reports the number of items currently queued.
	QueueSize(ctx context.Context) (int64, error)

	// AddToSchedule inserts data keyed by eta into the sorted schedule.
	AddToSchedule(ctx context.Context, data []byte, eta time.Time) error
	// ReadSchedule atomically removes and returns every entry with
	// eta <= now, in eta order (ties broken deterministically).
	ReadSchedule(ctx context.Context, now time.Time) ([][]byte, error)
	// ScheduledItems returns up to limit schedule entries without removing
	// them, in eta order. limit <= 0 means no limit.
	ScheduledItems(ctx context.Context, limit int) ([][]byte, error)
	// ScheduleSize reports the number of items currently scheduled.
	ScheduleSize(ctx context.Context) (int64, error)

	// PutData stores data under key, overwriting any existing value.
	PutData(ctx context.Context, key string, data []byte) error
	// PeekData returns the value stored under key without removing it.
	PeekData(ctx context.Context, key string) (data []byte, present bool, err error)
	// PopData returns and removes the value stored under key.
	PopData(ctx context.Context, key string) (data []byte, present bool, err error)
	// PutIfEmpty stores data under key iff key is currently absent,
	// reporting whether the store happened.
	PutIfEmpty(ctx context.Context, key string, data []byte) (stored bool, err error)

	// ResultItems returns every result key/value pair currently in the KV
	// store; revocation records and task locks are left out (isResultKey).
	ResultItems(ctx context.Context) (map[string][]byte, error)
	// ResultStoreSize reports the number of result keys currently in the KV
	// store, with the same exclusions as ResultItems.
	ResultStoreSize(ctx context.Context) (int64, error)

	// FlushAll discards the queue, schedule, and KV store entirely.
	FlushAll(ctx context.Context) error
}
