package hive

import (
	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

// PreExecuteHook runs before a task body. Returning taskerrs.ErrCancelExecution
// (or a *taskerrs.CancelExecution) aborts the task with no body call and no
// result; any other error is logged and swallowed, and execution proceeds.
type PreExecuteHook func(t *task.Task) error

// PostExecuteHook runs after a task body, whether it succeeded or not. value
// is nil on failure; execErr is nil on success.
type PostExecuteHook func(t *task.Task, value any, execErr error)

// StartupHook runs once when a consumer starts, before it begins dequeuing.
type StartupHook func()

type namedPreHook struct {
	name string
	fn   PreExecuteHook
}

type namedPostHook struct {
	name string
	fn   PostExecuteHook
}

type namedStartupHook struct {
	name string
	fn   StartupHook
}

// PreExecute registers fn under name, replacing any existing hook with that
// name in place (its original position in the run order is preserved).
func (h *Hive) PreExecute(name string, fn PreExecuteHook) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.preExecute {
		if hk.name == name {
			h.preExecute[i].fn = fn
			return
		}
	}
	h.preExecute = append(h.preExecute, namedPreHook{name, fn})
}

// UnregisterPreExecute removes the hook registered under name, reporting
// whether one was found.
func (h *Hive) UnregisterPreExecute(name string) bool {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.preExecute {
		if hk.name == name {
			h.preExecute = append(h.preExecute[:i], h.preExecute[i+1:]...)
			return true
		}
	}
	return false
}

// PostExecute registers fn under name (see PreExecute for replace semantics).
func (h *Hive) PostExecute(name string, fn PostExecuteHook) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.postExecute {
		if hk.name == name {
			h.postExecute[i].fn = fn
			return
		}
	}
	h.postExecute = append(h.postExecute, namedPostHook{name, fn})
}

// UnregisterPostExecute removes the hook registered under name, reporting
// whether one was found.
func (h *Hive) UnregisterPostExecute(name string) bool {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.postExecute {
		if hk.name == name {
			h.postExecute = append(h.postExecute[:i], h.postExecute[i+1:]...)
			return true
		}
	}
	return false
}

// OnStartup registers fn under name (see PreExecute for replace semantics).
func (h *Hive) OnStartup(name string, fn StartupHook) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.startup {
		if hk.name == name {
			h.startup[i].fn = fn
			return
		}
	}
	h.startup = append(h.startup, namedStartupHook{name, fn})
}

// UnregisterOnStartup removes the hook registered under name, reporting
// whether one was found.
func (h *Hive) UnregisterOnStartup(name string) bool {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	for i, hk := range h.startup {
		if hk.name == name {
			h.startup = append(h.startup[:i], h.startup[i+1:]...)
			return true
		}
	}
	return false
}

// RunStartupHooks invokes every registered startup hook, in registration
// order. A panicking hook is recovered and logged; the rest still run.
func (h *Hive) RunStartupHooks() {
	h.hooksMu.RLock()
	hooks := append([]namedStartupHook(nil), h.startup...)
	h.hooksMu.RUnlock()

	for _, hk := range hooks {
		h.runStartupHook(hk)
	}
}

func (h *Hive) runStartupHook(hk namedStartupHook) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error().Interface("panic", rec).Str("hook", hk.name).Msg("on_startup hook panicked")
		}
	}()
	hk.fn()
}

// runPreExecute runs every registered pre-execute hook in order. If one
// requests cancellation, that error is returned immediately and no further
// hooks run; any other error is logged and swallowed.
func (h *Hive) runPreExecute(t *task.Task) error {
	h.hooksMu.RLock()
	hooks := append([]namedPreHook(nil), h.preExecute...)
	h.hooksMu.RUnlock()

	for _, hk := range hooks {
		if err := h.callPreExecute(hk, t); err != nil {
			if taskerrs.IsCancelExecution(err) {
				return err
			}
			h.log.Error().Err(err).Str("hook", hk.name).Str("task", t.String()).Msg("pre_execute hook failed")
		}
	}
	return nil
}

func (h *Hive) callPreExecute(hk namedPreHook, t *task.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error().Interface("panic", rec).Str("hook", hk.name).Msg("pre_execute hook panicked")
			err = nil
		}
	}()
	return hk.fn(t)
}

// runPostExecute runs every registered post-execute hook in order, never
// letting a panic escape to the caller.
func (h *Hive) runPostExecute(t *task.Task, value any, execErr error) {
	h.hooksMu.RLock()
	hooks := append([]namedPostHook(nil), h.postExecute...)
	h.hooksMu.RUnlock()

	for _, hk := range hooks {
		h.callPostExecute(hk, t, value, execErr)
	}
}

func (h *Hive) callPostExecute(hk namedPostHook, t *task.Task, value any, execErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error().Interface("panic", rec).Str("hook", hk.name).Msg("post_execute hook panicked")
		}
	}()
	hk.fn(t, value, execErr)
}
