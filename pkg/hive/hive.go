// Package hive is the dispatcher: it mediates between a Storage broker and
// user-registered task executors — enqueue, dequeue, execute, retry, chain,
// revoke, schedule — and carries the Result/ResultGroup and TaskLock
// surfaces that need its private key/value helpers.
package hive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jgarrity-dev/taskhive/pkg/logger"
	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/schedule"
	"github.com/jgarrity-dev/taskhive/pkg/serializer"
	"github.com/jgarrity-dev/taskhive/pkg/signalbus"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
	"github.com/jgarrity-dev/taskhive/pkg/wire"

	"sync"
)

// Hive is the dispatcher: an explicit value passed to producers and
// consumers, never a package-level singleton (Design Notes §9).
type Hive struct {
	name      string
	results   bool
	storeNone bool
	utc       bool

	serializer serializer.Serializer
	registry   *registry.Registry

	storageMu       sync.RWMutex
	store           storage.Storage
	externalStorage storage.Storage

	immediateMu        sync.RWMutex
	immediate          bool
	immediateUseMemory bool

	locksMu sync.Mutex
	locks   map[string]struct{}

	hooksMu     sync.RWMutex
	preExecute  []namedPreHook
	postExecute []namedPostHook
	startup     []namedStartupHook

	signals *signalbus.Bus
	log     zerolog.Logger
}

type hiveConfig struct {
	results            bool
	storeNone          bool
	utc                bool
	immediate          bool
	immediateUseMemory bool
	serializer         serializer.Serializer
	storage            storage.Storage
	log                zerolog.Logger
}

// Option configures a Hive at construction time.
type Option func(*hiveConfig)

func WithResults(v bool) Option             { return func(c *hiveConfig) { c.results = v } }
func WithStoreNone(v bool) Option           { return func(c *hiveConfig) { c.storeNone = v } }
func WithUTC(v bool) Option                 { return func(c *hiveConfig) { c.utc = v } }
func WithImmediate(v bool) Option           { return func(c *hiveConfig) { c.immediate = v } }
func WithImmediateUseMemory(v bool) Option  { return func(c *hiveConfig) { c.immediateUseMemory = v } }
func WithSerializer(s serializer.Serializer) Option {
	return func(c *hiveConfig) { c.serializer = s }
}
func WithStorage(s storage.Storage) Option { return func(c *hiveConfig) { c.storage = s } }
func WithLogger(l zerolog.Logger) Option   { return func(c *hiveConfig) { c.log = l } }

// New constructs a Hive named name. By default results are stored, UTC
// is used for scheduling, and immediate mode (when enabled) switches to
// an in-memory broker automatically. An explicit WithStorage is required
// unless immediate mode with the in-memory default is in effect.
func New(name string, opts ...Option) (*Hive, error) {
	cfg := hiveConfig{
		results:            true,
		utc:                true,
		immediateUseMemory: true,
		serializer:         serializer.New(),
		log:                logger.Log,
	}
	for _, o := range opts {
		o(&cfg)
	}

	h := &Hive{
		name:               name,
		results:            cfg.results,
		storeNone:          cfg.storeNone,
		utc:                cfg.utc,
		serializer:         cfg.serializer,
		registry:           registry.New(),
		immediate:          cfg.immediate,
		immediateUseMemory: cfg.immediateUseMemory,
		locks:              make(map[string]struct{}),
		log:                cfg.log,
	}
	h.signals = signalbus.New(func(kind signalbus.Kind, rec any) {
		h.log.Error().Interface("panic", rec).Str("signal", string(kind)).Msg("signal receiver panicked")
	})

	h.externalStorage = cfg.storage
	if h.immediate && h.immediateUseMemory {
		h.store = storage.NewMemory()
	} else if cfg.storage != nil {
		h.store = cfg.storage
	} else {
		return nil, fmt.Errorf("%w: no storage driver configured", taskerrs.ErrConfiguration)
	}

	return h, nil
}

// Name returns the dispatcher's configured name, used to namespace lock keys.
func (h *Hive) Name() string { return h.name }

func (h *Hive) getStorage() storage.Storage {
	h.storageMu.RLock()
	defer h.storageMu.RUnlock()
	return h.store
}

// Immediate reports whether immediate mode is currently active.
func (h *Hive) Immediate() bool {
	h.immediateMu.RLock()
	defer h.immediateMu.RUnlock()
	return h.immediate
}

// SetImmediate toggles immediate mode. When the in-memory default is in
// effect, changing modes swaps the storage handle: any work already
// enqueued on an external broker is not visible after switching into
// immediate mode, and vice versa.
func (h *Hive) SetImmediate(v bool) {
	h.immediateMu.Lock()
	changed := h.immediate != v
	h.immediate = v
	h.immediateMu.Unlock()

	if !changed || !h.immediateUseMemory {
		return
	}
	h.storageMu.Lock()
	defer h.storageMu.Unlock()
	if v {
		h.store = storage.NewMemory()
	} else if h.externalStorage != nil {
		h.store = h.externalStorage
	}
}

func (h *Hive) now() time.Time {
	if h.utc {
		return time.Now().UTC()
	}
	return time.Now()
}

// Task registers ex under class and returns a TaskWrapper for enqueuing
// invocations of it.
func (h *Hive) Task(class string, ex registry.Executor, opts ...TaskOption) *TaskWrapper {
	w := &TaskWrapper{hive: h, class: class}
	for _, o := range opts {
		o(w)
	}
	h.registry.Register(class, ex)
	return w
}

// PeriodicTask registers ex under class as a periodic task due whenever
// predicate matches, and returns a TaskWrapper.
func (h *Hive) PeriodicTask(class string, predicate schedule.Predicate, ex registry.Executor, opts ...TaskOption) *TaskWrapper {
	w := &TaskWrapper{hive: h, class: class}
	for _, o := range opts {
		o(w)
	}
	h.registry.RegisterPeriodic(class, ex, predicate)
	return w
}

// Unregister removes class from the registry entirely.
func (h *Hive) Unregister(class string) {
	h.registry.Unregister(class)
}

// Signal subscribes fn under name to kinds (or every kind, if kinds is empty).
func (h *Hive) Signal(name string, fn signalbus.Receiver, kinds ...signalbus.Kind) {
	h.signals.Connect(name, fn, kinds...)
}

// DisconnectSignal removes fn (registered under name) from kinds (or every
// kind, if kinds is empty).
func (h *Hive) DisconnectSignal(name string, kinds ...signalbus.Kind) {
	h.signals.Disconnect(name, kinds...)
}

func (h *Hive) serializeTask(t *task.Task) ([]byte, error) {
	msg, err := registry.CreateMessage(t)
	if err != nil {
		return nil, err
	}
	return h.serializer.Serialize(msg)
}

func (h *Hive) deserializeTask(data []byte) (*task.Task, error) {
	var msg wire.Message
	if err := h.serializer.Deserialize(data, &msg); err != nil {
		return nil, err
	}
	msg.Normalize()
	return h.registry.CreateTask(&msg)
}

func (h *Hive) deserializeAll(items [][]byte) ([]*task.Task, error) {
	out := make([]*task.Task, 0, len(items))
	for _, data := range items {
		t, err := h.deserializeTask(data)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadyToRun reports whether t's ETA has arrived by now (no ETA means
// immediately ready).
func (h *Hive) ReadyToRun(t *task.Task, now time.Time) bool {
	return t.ETA == nil || !t.ETA.After(now)
}

// AddSchedule serializes t and inserts it into the storage schedule keyed
// by its ETA (or the Unix epoch, if unset), emitting Scheduled.
func (h *Hive) AddSchedule(ctx context.Context, t *task.Task) error {
	data, err := h.serializeTask(t)
	if err != nil {
		return err
	}
	eta := time.Unix(0, 0)
	if t.ETA != nil {
		eta = *t.ETA
	}
	if err := h.getStorage().AddToSchedule(ctx, data, eta); err != nil {
		return err
	}
	h.log.Info().Str("task", t.String()).Time("eta", eta).Msg("added task to schedule")
	h.signals.Send(signalbus.Scheduled, t, nil)
	return nil
}

// ReadSchedule returns every schedule entry due at or before now, removing
// them from the schedule in the process, deserialized into Tasks.
func (h *Hive) ReadSchedule(ctx context.Context, now time.Time) ([]*task.Task, error) {
	items, err := h.getStorage().ReadSchedule(ctx, now)
	if err != nil {
		return nil, err
	}
	return h.deserializeAll(items)
}

// ReadPeriodic returns the class names of every registered periodic task
// whose predicate matches now. It is a pure query: instantiating and
// enqueuing fresh invocations for due classes is RunScheduler's job.
func (h *Hive) ReadPeriodic(now time.Time) []string {
	return h.registry.DuePeriodicClasses(now)
}

// Pending returns up to limit queued tasks without removing them.
// limit <= 0 means no limit.
func (h *Hive) Pending(ctx context.Context, limit int) ([]*task.Task, error) {
	items, err := h.getStorage().EnqueuedItems(ctx, limit)
	if err != nil {
		return nil, err
	}
	return h.deserializeAll(items)
}

// PendingCount reports the number of queued tasks.
func (h *Hive) PendingCount(ctx context.Context) (int64, error) {
	return h.getStorage().QueueSize(ctx)
}

// Scheduled returns up to limit scheduled tasks without removing them.
func (h *Hive) Scheduled(ctx context.Context, limit int) ([]*task.Task, error) {
	items, err := h.getStorage().ScheduledItems(ctx, limit)
	if err != nil {
		return nil, err
	}
	return h.deserializeAll(items)
}

// ScheduledCount reports the number of scheduled tasks.
func (h *Hive) ScheduledCount(ctx context.Context) (int64, error) {
	return h.getStorage().ScheduleSize(ctx)
}

// AllResults returns every stored result (or error record), keyed by task
// ID, without removing them.
func (h *Hive) AllResults(ctx context.Context) (map[string]any, error) {
	raw, err := h.getStorage().ResultItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for id, data := range raw {
		var env resultEnvelope
		if err := h.serializer.Deserialize(data, &env); err != nil {
			continue
		}
		if env.Kind == "error" {
			out[id] = env.Error
		} else {
			out[id] = env.Value
		}
	}
	return out, nil
}

// ResultCount reports the number of stored results (and error records).
func (h *Hive) ResultCount(ctx context.Context) (int64, error) {
	return h.getStorage().ResultStoreSize(ctx)
}

// Flush discards the queue, schedule, and KV store entirely.
func (h *Hive) Flush(ctx context.Context) error {
	return h.getStorage().FlushAll(ctx)
}

// Len reports the number of queued tasks (mirrors PendingCount).
func (h *Hive) Len(ctx context.Context) (int64, error) {
	return h.PendingCount(ctx)
}
