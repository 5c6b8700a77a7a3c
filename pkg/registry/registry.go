// Package registry maps task-class names to the executors that run them,
// and converts between in-process Task values and their wire Message shape.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/schedule"
	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
	"github.com/jgarrity-dev/taskhive/pkg/wire"
)

// Executor runs a task's body and returns its value.
type Executor interface {
	Execute(ctx context.Context, t *task.Task) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t *task.Task) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, t *task.Task) (any, error) {
	return f(ctx, t)
}

// periodicEntry holds the predicate that decides when a periodic task class
// is due; its executor lives in the executors map like any other class.
type periodicEntry struct {
	predicate schedule.Predicate
}

// Registry is a per-dispatcher-instance bi-map of class name to executor,
// plus the set of periodic task classes and their due-predicates.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	periodic  map[string]periodicEntry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
		periodic:  make(map[string]periodicEntry),
	}
}

// Register adds class under name. Re-registering a name replaces its
// executor (the declaration site is expected to do this at most once per
// process, at startup).
func (r *Registry) Register(name string, ex Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = ex
}

// RegisterPeriodic adds class under name as a periodic task, storing the
// predicate that decides when it's due alongside the executor, per Design
// Notes §9 ("periodic tasks carry the predicate alongside the executor").
func (r *Registry) RegisterPeriodic(name string, ex Executor, predicate schedule.Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = ex
	r.periodic[name] = periodicEntry{predicate: predicate}
}

// Unregister removes name from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executors, name)
	delete(r.periodic, name)
}

// Lookup returns the executor registered under name, if any.
func (r *Registry) Lookup(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.executors[name]
	return ex, ok
}

// IsPeriodic reports whether name was registered as a periodic task class.
func (r *Registry) IsPeriodic(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.periodic[name]
	return ok
}

// DuePeriodicClasses returns the names of every registered periodic task
// class whose predicate matches ts.
func (r *Registry) DuePeriodicClasses(ts time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, entry := range r.periodic {
		if entry.predicate(ts) {
			out = append(out, name)
		}
	}
	return out
}

// CreateMessage captures t's fields into its wire Message, recursing through
// both continuation chains. It does not consult the registry — any Task can
// be turned into a Message regardless of whether its class is registered in
// this process (a producer may not register the classes a remote consumer
// executes).
func CreateMessage(t *task.Task) (*wire.Message, error) {
	return createMessage(t, 0)
}

func createMessage(t *task.Task, depth int) (*wire.Message, error) {
	if t == nil {
		return nil, nil
	}
	if depth >= wire.MaxChainDepth {
		return nil, wire.ErrChainTooDeep
	}

	onComplete, err := createMessage(t.OnComplete, depth+1)
	if err != nil {
		return nil, err
	}
	onError, err := createMessage(t.OnError, depth+1)
	if err != nil {
		return nil, err
	}

	return &wire.Message{
		Class:      t.Class,
		ID:         t.ID,
		Args:       t.Args,
		Kwargs:     t.Kwargs,
		ETA:        t.ETA,
		Retries:    t.Retries,
		RetryDelay: t.RetryDelay,
		OnComplete: onComplete,
		OnError:    onError,
		Periodic:   t.Periodic,
	}, nil
}

// CreateTask looks up m.Class in the registry and reconstructs a fresh Task
// from the message, re-linking continuations recursively. It fails with
// taskerrs.ErrUnknownTask when the class is not registered.
func (r *Registry) CreateTask(m *wire.Message) (*task.Task, error) {
	return r.createTask(m, 0)
}

func (r *Registry) createTask(m *wire.Message, depth int) (*task.Task, error) {
	if m == nil {
		return nil, nil
	}
	if depth >= wire.MaxChainDepth {
		return nil, wire.ErrChainTooDeep
	}

	if _, ok := r.Lookup(m.Class); !ok {
		return nil, fmt.Errorf("%w: %q", taskerrs.ErrUnknownTask, m.Class)
	}

	onComplete, err := r.createTask(m.OnComplete, depth+1)
	if err != nil {
		return nil, err
	}
	onError, err := r.createTask(m.OnError, depth+1)
	if err != nil {
		return nil, err
	}

	return &task.Task{
		ID:         m.ID,
		Class:      m.Class,
		Args:       m.Args,
		Kwargs:     m.Kwargs,
		ETA:        m.ETA,
		Retries:    m.Retries,
		RetryDelay: m.RetryDelay,
		OnComplete: onComplete,
		OnError:    onError,
		Periodic:   m.Periodic,
	}, nil
}
