// Package taskerrs collects the error kinds the dispatcher and its
// collaborators raise, per the error-handling design: configuration errors
// are synchronous and fatal, execution-control errors (locked, retry,
// cancel) steer the execute path, and client-facing errors (timeout,
// task exception) surface from Result.Get.
package taskerrs

import (
	"errors"
	"fmt"
)

// ErrUnknownTask is returned when a deserialized message names a class that
// is not registered in this process.
var ErrUnknownTask = errors.New("taskhive: unknown task class")

// ErrConfiguration indicates misuse at construction time (bad storage
// driver, invalid cron field, etc).
var ErrConfiguration = errors.New("taskhive: configuration error")

// ErrDataStoreTimeout is raised by Result.Get when blocking polling
// exhausts its timeout without observing a stored value.
var ErrDataStoreTimeout = errors.New("taskhive: timed out waiting for result")

// TaskLockedError is recorded as the terminating exception when a task body
// fails to acquire a TaskLock it requires.
type TaskLockedError struct {
	Name string
}

func (e *TaskLockedError) Error() string {
	return fmt.Sprintf("taskhive: unable to acquire lock %q", e.Name)
}

// NewTaskLocked builds a TaskLockedError for the given lock name.
func NewTaskLocked(name string) error {
	return &TaskLockedError{Name: name}
}

// RetryTask is raised by a task body to request at least one retry,
// regardless of the task's configured retry budget.
type RetryTask struct{}

func (e *RetryTask) Error() string { return "taskhive: retry requested" }

// ErrRetryTask is the canonical RetryTask value; task bodies can return it
// directly instead of constructing their own.
var ErrRetryTask error = &RetryTask{}

// CancelExecution is raised by a pre-execute hook to suppress a task's body
// without recording an error.
type CancelExecution struct{}

func (e *CancelExecution) Error() string { return "taskhive: execution canceled by pre-execute hook" }

// ErrCancelExecution is the canonical CancelExecution value.
var ErrCancelExecution error = &CancelExecution{}

// TaskException is raised by Result.Get when the stored value is an error
// record rather than a return value.
type TaskException struct {
	ErrorRepr        string
	RetriesRemaining int
	Traceback        string
}

func (e *TaskException) Error() string {
	return fmt.Sprintf("taskhive: task failed: %s", e.ErrorRepr)
}

// IsTaskLocked reports whether err is (or wraps) a TaskLockedError.
func IsTaskLocked(err error) bool {
	var tle *TaskLockedError
	return errors.As(err, &tle)
}

// IsRetryTask reports whether err is (or wraps) ErrRetryTask.
func IsRetryTask(err error) bool {
	var rt *RetryTask
	return errors.As(err, &rt)
}

// IsCancelExecution reports whether err is (or wraps) ErrCancelExecution.
func IsCancelExecution(err error) bool {
	var ce *CancelExecution
	return errors.As(err, &ce)
}
