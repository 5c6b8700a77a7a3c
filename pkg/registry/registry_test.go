package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
	"github.com/jgarrity-dev/taskhive/pkg/wire"
)

func noopExecutor() ExecutorFunc {
	return func(ctx context.Context, t *task.Task) (any, error) { return nil, nil }
}

func TestRegister_LookupRoundTrip(t *testing.T) {
	r := New()
	r.Register("demo", noopExecutor())

	ex, ok := r.Lookup("demo")
	require.True(t, ok)
	require.NotNil(t, ex)
}

func TestUnregister_RemovesClass(t *testing.T) {
	r := New()
	r.Register("demo", noopExecutor())
	r.Unregister("demo")

	_, ok := r.Lookup("demo")
	require.False(t, ok)
}

func TestRegisterPeriodic_MarksClassPeriodicAndDue(t *testing.T) {
	r := New()
	always := func(ts time.Time) bool { return true }
	r.RegisterPeriodic("heartbeat", noopExecutor(), always)

	require.True(t, r.IsPeriodic("heartbeat"))
	require.Equal(t, []string{"heartbeat"}, r.DuePeriodicClasses(time.Now()))
}

func TestDuePeriodicClasses_SkipsNotDue(t *testing.T) {
	r := New()
	never := func(ts time.Time) bool { return false }
	r.RegisterPeriodic("midnight-only", noopExecutor(), never)

	require.Empty(t, r.DuePeriodicClasses(time.Now()))
}

func TestCreateMessage_RoundTripsChain(t *testing.T) {
	r := New()
	r.Register("a", noopExecutor())
	r.Register("b", noopExecutor())

	a := task.New("a", []any{1}, nil)
	b := task.New("b", []any{2}, nil)
	a.Then(b)

	msg, err := CreateMessage(a)
	require.NoError(t, err)
	require.Equal(t, "a", msg.Class)
	require.NotNil(t, msg.OnComplete)
	require.Equal(t, "b", msg.OnComplete.Class)

	rebuilt, err := r.CreateTask(msg)
	require.NoError(t, err)
	require.Equal(t, "a", rebuilt.Class)
	require.NotNil(t, rebuilt.OnComplete)
	require.Equal(t, "b", rebuilt.OnComplete.Class)
}

func TestCreateTask_UnknownClassFails(t *testing.T) {
	r := New()
	_, err := r.CreateTask(&wire.Message{Class: "nope", ID: "x"})
	require.ErrorIs(t, err, taskerrs.ErrUnknownTask)
}

func TestCreateTask_ChainTooDeepFails(t *testing.T) {
	r := New()
	r.Register("link", noopExecutor())

	var head *wire.Message
	for i := 0; i <= wire.MaxChainDepth; i++ {
		head = &wire.Message{Class: "link", ID: "x", OnComplete: head}
	}

	_, err := r.CreateTask(head)
	require.ErrorIs(t, err, wire.ErrChainTooDeep)
}

func TestCreateMessage_ChainTooDeepFails(t *testing.T) {
	var head *task.Task
	for i := 0; i <= wire.MaxChainDepth; i++ {
		next := task.New("link", nil, nil)
		next.OnComplete = head
		head = next
	}

	_, err := CreateMessage(head)
	require.ErrorIs(t, err, wire.ErrChainTooDeep)
}
