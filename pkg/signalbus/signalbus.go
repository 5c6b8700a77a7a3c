// Package signalbus is a synchronous publish/subscribe bus keyed by signal
// kind. Receivers run on the publishing goroutine: those subscribed to every
// kind first, then those subscribed to the specific kind, each group in
// registration order. A receiver's panic never propagates to the publisher.
package signalbus

import (
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

// Kind identifies a point in the task lifecycle a receiver can subscribe to.
type Kind string

const (
	Enqueued Kind = "enqueued"
	Scheduled Kind = "scheduled"
	Revoked  Kind = "revoked"
	Executing Kind = "executing"
	Complete Kind = "complete"
	Error    Kind = "error"
	Locked   Kind = "locked"
	Retrying Kind = "retrying"
	Canceled Kind = "canceled"
)

// Receiver observes a signal firing for a task, plus any kind-specific
// extra argument (e.g. the exception for Error).
type Receiver func(kind Kind, t *task.Task, extra any)

// Bus is a per-Kind ordered list of receivers. An empty subscription set
// (passed to Connect) subscribes the receiver to every kind.
type Bus struct {
	all  []namedReceiver
	byKind map[Kind][]namedReceiver
	logFailure func(kind Kind, err any)
}

type namedReceiver struct {
	name string
	fn   Receiver
}

// New returns an empty Bus. logFailure, if non-nil, is invoked whenever a
// receiver panics — callers typically wire this to a logger.
func New(logFailure func(kind Kind, err any)) *Bus {
	return &Bus{
		byKind:     make(map[Kind][]namedReceiver),
		logFailure: logFailure,
	}
}

// Connect registers fn under name for the given kinds. An empty kinds list
// subscribes fn to every signal.
func (b *Bus) Connect(name string, fn Receiver, kinds ...Kind) {
	nr := namedReceiver{name: name, fn: fn}
	if len(kinds) == 0 {
		b.all = append(b.all, nr)
		return
	}
	for _, k := range kinds {
		b.byKind[k] = append(b.byKind[k], nr)
	}
}

// Disconnect removes every receiver registered under name from kinds (or
// from every kind, if kinds is empty).
func (b *Bus) Disconnect(name string, kinds ...Kind) {
	if len(kinds) == 0 {
		b.all = removeNamed(b.all, name)
		for k, receivers := range b.byKind {
			b.byKind[k] = removeNamed(receivers, name)
		}
		return
	}
	for _, k := range kinds {
		b.byKind[k] = removeNamed(b.byKind[k], name)
	}
}

func removeNamed(receivers []namedReceiver, name string) []namedReceiver {
	out := receivers[:0:0]
	for _, r := range receivers {
		if r.name != name {
			out = append(out, r)
		}
	}
	return out
}

// Send fires kind for t with extra, running every subscribed receiver on
// the calling goroutine. A receiver panic is recovered and reported via
// logFailure rather than propagating to the caller.
func (b *Bus) Send(kind Kind, t *task.Task, extra any) {
	for _, r := range b.all {
		b.safeCall(r, kind, t, extra)
	}
	for _, r := range b.byKind[kind] {
		b.safeCall(r, kind, t, extra)
	}
}

func (b *Bus) safeCall(r namedReceiver, kind Kind, t *task.Task, extra any) {
	defer func() {
		if rec := recover(); rec != nil && b.logFailure != nil {
			b.logFailure(kind, rec)
		}
	}()
	r.fn(kind, t, extra)
}
