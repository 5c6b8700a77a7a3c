package hive

import (
	"context"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/task"
)

// revokeRecord is what gets stored in the KV store under a revoke key.
// Exactly one of the two fields is meaningful: RevokeOnce, if set, clears
// itself the first time it is consulted; otherwise RevokeUntil (nil means
// "indefinitely") bounds how long the revocation holds.
type revokeRecord struct {
	RevokeOnce  bool       `json:"revoke_once,omitempty"`
	RevokeUntil *time.Time `json:"revoke_until,omitempty"`
}

func classRevokeKey(class string) string { return "rt:" + class }

func (h *Hive) put(ctx context.Context, key string, value any) error {
	data, err := h.serializer.Serialize(value)
	if err != nil {
		return err
	}
	return h.getStorage().PutData(ctx, key, data)
}

func (h *Hive) get(ctx context.Context, key string, peek bool, out any) (bool, error) {
	var data []byte
	var present bool
	var err error
	if peek {
		data, present, err = h.getStorage().PeekData(ctx, key)
	} else {
		data, present, err = h.getStorage().PopData(ctx, key)
	}
	if err != nil || !present {
		return present, err
	}
	if err := h.serializer.Deserialize(data, out); err != nil {
		return true, err
	}
	return true, nil
}

// Revoke suppresses t's instance (by ID) until restored (revokeUntil nil),
// until revokeUntil, or for exactly one future revocation check if
// revokeOnce is set.
func (h *Hive) Revoke(ctx context.Context, t *task.Task, revokeUntil *time.Time, revokeOnce bool) error {
	return h.put(ctx, t.RevokeID(), revokeRecord{RevokeOnce: revokeOnce, RevokeUntil: revokeUntil})
}

// RevokeByID is Revoke for a bare task ID, with no other Task fields known.
func (h *Hive) RevokeByID(ctx context.Context, id string, revokeUntil *time.Time, revokeOnce bool) error {
	return h.Revoke(ctx, &task.Task{ID: id}, revokeUntil, revokeOnce)
}

// Restore clears an instance-level revocation for t, reporting whether one
// was set.
func (h *Hive) Restore(ctx context.Context, t *task.Task) (bool, error) {
	_, present, err := h.getStorage().PopData(ctx, t.RevokeID())
	return present, err
}

// RestoreByID is Restore for a bare task ID.
func (h *Hive) RestoreByID(ctx context.Context, id string) (bool, error) {
	return h.Restore(ctx, &task.Task{ID: id})
}

// RevokeAll suppresses every invocation of class, subject to the same
// revokeUntil/revokeOnce semantics as Revoke.
func (h *Hive) RevokeAll(ctx context.Context, class string, revokeUntil *time.Time, revokeOnce bool) error {
	return h.put(ctx, classRevokeKey(class), revokeRecord{RevokeOnce: revokeOnce, RevokeUntil: revokeUntil})
}

// RestoreAll clears a class-level revocation, reporting whether one was set.
func (h *Hive) RestoreAll(ctx context.Context, class string) (bool, error) {
	_, present, err := h.getStorage().PopData(ctx, classRevokeKey(class))
	return present, err
}

// checkRevoked reads (non-destructively) the revoke record at key and
// decides whether it currently applies. canRestore reports whether the
// caller should delete the record afterward — true whenever peek is false
// and the record was consulted in a way that consumes it (a once-only
// revocation, or an expired time-bounded one).
func (h *Hive) checkRevoked(ctx context.Context, key string, now time.Time, peek bool) (isRevoked, canRestore bool, err error) {
	var rec revokeRecord
	present, err := h.get(ctx, key, true, &rec)
	if err != nil || !present {
		return false, false, err
	}
	switch {
	case rec.RevokeOnce:
		return true, !peek, nil
	case rec.RevokeUntil != nil && !rec.RevokeUntil.After(now):
		return false, !peek, nil
	default:
		return true, false, nil
	}
}

// IsRevoked checks both t's instance-level and class-level revocation
// records as of now, consuming (deleting) any record that canRestore
// reports as spent. peek=false lets a once-only or expired revocation be
// cleared as a side effect of this check (the behavior the execute path
// wants); peek=true (the default for inspection calls) leaves records
// untouched.
func (h *Hive) IsRevoked(ctx context.Context, t *task.Task, now time.Time, peek bool) (bool, error) {
	isRevoked, canRestore, err := h.checkRevoked(ctx, t.RevokeID(), now, peek)
	if err != nil {
		return false, err
	}
	if canRestore {
		if _, err := h.Restore(ctx, t); err != nil {
			return false, err
		}
	}
	if isRevoked {
		return true, nil
	}
	return h.IsClassRevoked(ctx, t.Class, now, peek)
}

// IsClassRevoked is IsRevoked restricted to the class-level record only.
func (h *Hive) IsClassRevoked(ctx context.Context, class string, now time.Time, peek bool) (bool, error) {
	isRevoked, canRestore, err := h.checkRevoked(ctx, classRevokeKey(class), now, peek)
	if err != nil {
		return false, err
	}
	if canRestore {
		if _, err := h.RestoreAll(ctx, class); err != nil {
			return false, err
		}
	}
	return isRevoked, nil
}
