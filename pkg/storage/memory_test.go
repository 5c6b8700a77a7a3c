package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemory_QueueIsFIFO(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, v := range []string{"a", "b", "c"} {
		if err := m.Enqueue(ctx, []byte(v)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		data, ok, err := m.Dequeue(ctx)
		if err != nil || !ok {
			t.Fatalf("Dequeue() = %q, %v, %v", data, ok, err)
		}
		if string(data) != want {
			t.Fatalf("Dequeue() = %q, want %q", data, want)
		}
	}

	if _, ok, _ := m.Dequeue(ctx); ok {
		t.Fatal("expected empty queue after draining")
	}
}

func TestMemory_ScheduleDrainsInETAOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	if err := m.AddToSchedule(ctx, []byte("late"), base.Add(10*time.Minute)); err != nil {
		t.Fatalf("AddToSchedule: %v", err)
	}
	if err := m.AddToSchedule(ctx, []byte("early"), base.Add(-10*time.Minute)); err != nil {
		t.Fatalf("AddToSchedule: %v", err)
	}
	if err := m.AddToSchedule(ctx, []byte("future"), base.Add(time.Hour)); err != nil {
		t.Fatalf("AddToSchedule: %v", err)
	}

	due, err := m.ReadSchedule(ctx, base)
	if err != nil {
		t.Fatalf("ReadSchedule: %v", err)
	}
	if len(due) != 2 || string(due[0]) != "early" || string(due[1]) != "late" {
		t.Fatalf("ReadSchedule = %v, want [early late]", toStrings(due))
	}

	size, err := m.ScheduleSize(ctx)
	if err != nil || size != 1 {
		t.Fatalf("ScheduleSize = %d, %v, want 1", size, err)
	}
}

func TestMemory_KVPutPeekPop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, present, err := m.PeekData(ctx, "missing"); err != nil || present {
		t.Fatalf("PeekData(missing) = present=%v err=%v, want false,nil", present, err)
	}

	if err := m.PutData(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("PutData: %v", err)
	}
	data, present, err := m.PeekData(ctx, "k")
	if err != nil || !present || string(data) != "v1" {
		t.Fatalf("PeekData(k) = %q,%v,%v, want v1,true,nil", data, present, err)
	}

	// Peek must not remove.
	data, present, err = m.PopData(ctx, "k")
	if err != nil || !present || string(data) != "v1" {
		t.Fatalf("PopData(k) = %q,%v,%v, want v1,true,nil", data, present, err)
	}
	if _, present, _ := m.PeekData(ctx, "k"); present {
		t.Fatal("expected key gone after PopData")
	}
}

func TestMemory_PutIfEmpty(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	stored, err := m.PutIfEmpty(ctx, "lock", []byte("1"))
	if err != nil || !stored {
		t.Fatalf("first PutIfEmpty = %v,%v, want true,nil", stored, err)
	}

	stored, err = m.PutIfEmpty(ctx, "lock", []byte("2"))
	if err != nil || stored {
		t.Fatalf("second PutIfEmpty = %v,%v, want false,nil", stored, err)
	}

	data, _, _ := m.PeekData(ctx, "lock")
	if string(data) != "1" {
		t.Fatalf("PeekData(lock) = %q, want unchanged 1", data)
	}
}

func TestMemory_FlushAllClearsEverything(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Enqueue(ctx, []byte("x"))
	_ = m.AddToSchedule(ctx, []byte("y"), time.Now().Add(time.Hour))
	_ = m.PutData(ctx, "k", []byte("v"))

	if err := m.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	qsize, _ := m.QueueSize(ctx)
	ssize, _ := m.ScheduleSize(ctx)
	rsize, _ := m.ResultStoreSize(ctx)
	if qsize != 0 || ssize != 0 || rsize != 0 {
		t.Fatalf("post-flush sizes = %d,%d,%d, want 0,0,0", qsize, ssize, rsize)
	}
}

func toStrings(items [][]byte) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = string(v)
	}
	return out
}
