package storage

import (
	"container/heap"
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is a pure in-process Storage implementation: a FIFO linked list for
// the queue, an eta-ordered min-heap for the schedule, and a guarded map for
// the KV surface. It is the default storage backing immediate mode.
type Memory struct {
	mu sync.Mutex

	queue *list.List
	sched *scheduleHeap
	seq   int64
	data  map[string][]byte
}

// NewMemory returns an empty Memory storage instance.
func NewMemory() *Memory {
	h := &scheduleHeap{}
	heap.Init(h)
	return &Memory{
		queue: list.New(),
		sched: h,
		data:  make(map[string][]byte),
	}
}

func (m *Memory) Enqueue(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.queue.PushBack(cp)
	return nil
}

func (m *Memory) Dequeue(_ context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	front := m.queue.Front()
	if front == nil {
		return nil, false, nil
	}
	m.queue.Remove(front)
	return front.Value.([]byte), true, nil
}

func (m *Memory) EnqueuedItems(_ context.Context, limit int) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for e := m.queue.Front(); e != nil; e = e.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e.Value.([]byte))
	}
	return out, nil
}

func (m *Memory) QueueSize(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.queue.Len()), nil
}

func (m *Memory) AddToSchedule(_ context.Context, data []byte, eta time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := append([]byte(nil), data...)
	heap.Push(m.sched, &scheduleEntry{eta: eta, seq: m.seq, data: cp})
	return nil
}

func (m *Memory) ReadSchedule(_ context.Context, now time.Time) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for m.sched.Len() > 0 && !(*m.sched)[0].eta.After(now) {
		entry := heap.Pop(m.sched).(*scheduleEntry)
		out = append(out, entry.data)
	}
	return out, nil
}

func (m *Memory) ScheduledItems(_ context.Context, limit int) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]*scheduleEntry(nil), (*m.sched)...)
	sortEntries(entries)
	var out [][]byte
	for _, e := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e.data)
	}
	return out, nil
}

func (m *Memory) ScheduleSize(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.sched.Len()), nil
}

func (m *Memory) PutData(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) PeekData(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) PopData(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	delete(m.data, key)
	return v, true, nil
}

func (m *Memory) PutIfEmpty(_ context.Context, key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = append([]byte(nil), data...)
	return true, nil
}

func (m *Memory) ResultItems(_ context.Context) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		if isResultKey(k) {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *Memory) ResultStoreSize(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if isResultKey(k) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FlushAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.Init()
	h := &scheduleHeap{}
	heap.Init(h)
	m.sched = h
	m.data = make(map[string][]byte)
	return nil
}

// scheduleEntry is one item in the schedule min-heap, ordered by eta and
// then by insertion sequence so ties break deterministically.
type scheduleEntry struct {
	eta  time.Time
	seq  int64
	data []byte
}

type scheduleHeap []*scheduleEntry

func (h scheduleHeap) Len() int { return len(h) }
func (h scheduleHeap) Less(i, j int) bool {
	if h[i].eta.Equal(h[j].eta) {
		return h[i].seq < h[j].seq
	}
	return h[i].eta.Before(h[j].eta)
}
func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x any) {
	*h = append(*h, x.(*scheduleEntry))
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func sortEntries(entries []*scheduleEntry) {
	// Simple insertion sort: schedule inspection lists are expected to be
	// small and this keeps the heap's internal order untouched by callers.
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && scheduleHeap(entries).Less(j, j-1) {
			entries[j], entries[j-1] = entries[j-1], entries[j]
			j--
		}
	}
}
