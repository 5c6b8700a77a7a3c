package storage

import (
	"context"
	"time"
)

// BlackHole discards every write and reports absent/zero for every read.
// Useful for benchmarking enqueue-side overhead in isolation, or for
// intentionally fire-and-forget deployments.
type BlackHole struct{}

// NewBlackHole returns a BlackHole storage instance.
func NewBlackHole() *BlackHole { return &BlackHole{} }

func (BlackHole) Enqueue(context.Context, []byte) error { return nil }

func (BlackHole) Dequeue(context.Context) ([]byte, bool, error) { return nil, false, nil }

func (BlackHole) EnqueuedItems(context.Context, int) ([][]byte, error) { return nil, nil }

func (BlackHole) QueueSize(context.Context) (int64, error) { return 0, nil }

func (BlackHole) AddToSchedule(context.Context, []byte, time.Time) error { return nil }

func (BlackHole) ReadSchedule(context.Context, time.Time) ([][]byte, error) { return nil, nil }

func (BlackHole) ScheduledItems(context.Context, int) ([][]byte, error) { return nil, nil }

func (BlackHole) ScheduleSize(context.Context) (int64, error) { return 0, nil }

func (BlackHole) PutData(context.Context, string, []byte) error { return nil }

func (BlackHole) PeekData(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (BlackHole) PopData(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (BlackHole) PutIfEmpty(context.Context, string, []byte) (bool, error) { return true, nil }

func (BlackHole) ResultItems(context.Context) (map[string][]byte, error) { return nil, nil }

func (BlackHole) ResultStoreSize(context.Context) (int64, error) { return 0, nil }

func (BlackHole) FlushAll(context.Context) error { return nil }
