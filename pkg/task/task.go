// Package task defines the value type carried through every stage of the
// queue: built by a producer, handed to a Registry for serialization, and
// eventually executed by a consumer.
package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RevokeIDPrefix is prepended to a task's ID to form its per-instance
// revocation key.
const RevokeIDPrefix = "r:"

// Task is a unit of work: identity, arguments, scheduling metadata, retry
// budget, and forward-linked continuations.
//
// id is immutable once set by New; callers must not mutate it directly.
type Task struct {
	ID    string
	Class string

	Args   []any
	Kwargs map[string]any

	ETA        *time.Time
	Retries    int
	RetryDelay time.Duration

	OnComplete *Task
	OnError    *Task

	// Periodic is true for tasks produced by a periodic-task executor. No
	// result is ever stored for these, even on a non-nil return value.
	Periodic bool
}

// New constructs a Task with a fresh random ID. args/kwargs may be nil.
func New(class string, args []any, kwargs map[string]any) *Task {
	return &Task{
		ID:     uuid.New().String(),
		Class:  class,
		Args:   args,
		Kwargs: kwargs,
	}
}

// RevokeID returns the per-instance revocation key for this task.
func (t *Task) RevokeID() string {
	return RevokeIDPrefix + t.ID
}

// ExtendData merges a predecessor's completion value into this task's
// arguments per the chain rule: a tuple-like []any is appended to Args, a
// map[string]any is merged into Kwargs without overwriting existing keys,
// and anything else is appended as a single positional argument.
func (t *Task) ExtendData(data any) {
	if data == nil {
		return
	}
	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return
		}
		t.Args = append(t.Args, v...)
	case map[string]any:
		if t.Kwargs == nil {
			t.Kwargs = make(map[string]any, len(v))
		}
		for k, val := range v {
			if _, exists := t.Kwargs[k]; !exists {
				t.Kwargs[k] = val
			}
		}
	default:
		t.Args = append(t.Args, v)
	}
}

// Then appends next to the end of this task's on-complete chain, recursing
// through any existing continuation so repeated calls build a linked list
// rather than overwriting one another.
func (t *Task) Then(next *Task) *Task {
	if t.OnComplete != nil {
		t.OnComplete.Then(next)
	} else {
		t.OnComplete = next
	}
	return t
}

// OnErrorThen appends next to the end of this task's on-error chain, with
// the same append-don't-overwrite recursion as Then.
func (t *Task) OnErrorThen(next *Task) *Task {
	if t.OnError != nil {
		t.OnError.OnErrorThen(next)
	} else {
		t.OnError = next
	}
	return t
}

// String renders a one-line description of the task, its eta, its retry
// budget, and both continuations — correctly attributing on_error to its
// own field (the original implementation this was ported from prints
// on_complete twice; that bug is not reproduced here).
func (t *Task) String() string {
	s := fmt.Sprintf("%s: %s", t.Class, t.ID)
	if t.ETA != nil {
		s += fmt.Sprintf(" @%s", t.ETA.Format(time.RFC3339))
	}
	if t.Retries > 0 {
		s += fmt.Sprintf(" %d retries", t.Retries)
	}
	if t.OnComplete != nil {
		s += fmt.Sprintf(" -> %s", t.OnComplete)
	}
	if t.OnError != nil {
		s += fmt.Sprintf(", on error %s", t.OnError)
	}
	return s
}
