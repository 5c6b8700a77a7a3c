package hive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/storage"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

func newDeferredHive(t *testing.T) *Hive {
	t.Helper()
	h, err := New("test-"+t.Name(), WithStorage(storage.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestResultGet_NonBlockingReturnsNilWhenNothingStoredYet(t *testing.T) {
	h := newDeferredHive(t)
	res := h.Result("does-not-exist")

	val, err := res.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != nil {
		t.Fatalf("Get() = %v, want nil", val)
	}
}

func TestResultGet_BlockingWaitsForValueToAppear(t *testing.T) {
	h := newDeferredHive(t)
	res := h.Result("eventual")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = h.storeValue(context.Background(), "eventual", "arrived")
	}()

	val, err := res.Get(context.Background(), Blocking(), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "arrived" {
		t.Fatalf("Get() = %v, want arrived", val)
	}
}

func TestResultGet_BlockingTimesOutWhenNothingArrives(t *testing.T) {
	h := newDeferredHive(t)
	res := h.Result("never")

	_, err := res.Get(context.Background(), Blocking(), WithTimeout(30*time.Millisecond))
	if !errors.Is(err, taskerrs.ErrDataStoreTimeout) {
		t.Fatalf("err = %v, want ErrDataStoreTimeout", err)
	}
}

func TestResultGet_PreserveLeavesValueInStorage(t *testing.T) {
	h := newDeferredHive(t)
	_ = h.storeValue(context.Background(), "keep-me", "value")
	res := h.Result("keep-me")

	if _, err := res.Get(context.Background(), Preserve()); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A fresh Result handle (no cache) should still find it.
	res2 := h.Result("keep-me")
	val, err := res2.Get(context.Background())
	if err != nil {
		t.Fatalf("Get (second handle): %v", err)
	}
	if val != "value" {
		t.Fatalf("Get() = %v, want value", val)
	}
}

func TestResultGet_ErrorRecordSurfacesAsTaskException(t *testing.T) {
	h := newDeferredHive(t)
	_ = h.storeError(context.Background(), "failed-task", errorRecord{Error: "it broke", RetriesRemaining: 0})
	res := h.Result("failed-task")

	_, err := res.Get(context.Background())
	var te *taskerrs.TaskException
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *taskerrs.TaskException", err)
	}
	if te.ErrorRepr != "it broke" {
		t.Fatalf("ErrorRepr = %q, want %q", te.ErrorRepr, "it broke")
	}
}

func TestResult_ResetClearsCache(t *testing.T) {
	h := newDeferredHive(t)
	_ = h.storeValue(context.Background(), "cached", "v1")
	res := h.Result("cached")

	val, _ := res.Get(context.Background())
	if val != "v1" {
		t.Fatalf("first Get() = %v, want v1", val)
	}

	// Pop the value out from under the cache, then reset and refetch —
	// without Reset, the cached value would still be returned.
	_, _, _ = h.getStorage().PopData(context.Background(), "cached")
	_ = h.storeValue(context.Background(), "cached", "v2")
	res.Reset()

	val, _ = res.Get(context.Background())
	if val != "v2" {
		t.Fatalf("Get() after Reset = %v, want v2", val)
	}
}
