// Package demotasks holds a small set of example task classes, shared by
// cmd/producer and cmd/consumer the way a real deployment would share a
// tasks.go between the process that enqueues work and the one that runs
// it — both sides need the class registered even though only the consumer
// ever calls its executor (the producer needs it to deserialize queue/
// schedule contents for inspection).
package demotasks

import (
	"context"
	"fmt"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/hive"
	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/schedule"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

const (
	SendEmail   = "demo.send_email"
	ResizeImage = "demo.resize_image"
	Generic     = "demo.generic"
	Heartbeat   = "demo.heartbeat"
)

// Handles bundles the TaskWrapper for every registered demo class, so
// callers can Call/Schedule them without repeating the class name.
type Handles struct {
	SendEmail   *hive.TaskWrapper
	ResizeImage *hive.TaskWrapper
	Generic     *hive.TaskWrapper
	Heartbeat   *hive.TaskWrapper
}

// Register wires every demo task class onto h and returns their wrappers.
func Register(h *hive.Hive) *Handles {
	heartbeatDue, err := schedule.Crontab("*", "*", "*", "*", "*")
	if err != nil {
		// Crontab("*","*","*","*","*") can never fail to parse; a non-nil
		// err here would mean this package itself is broken.
		panic(err)
	}

	return &Handles{
		SendEmail: h.Task(SendEmail, registry.ExecutorFunc(sendEmail),
			hive.WithRetries(3), hive.WithRetryDelay(5*time.Second)),
		ResizeImage: h.Task(ResizeImage, registry.ExecutorFunc(resizeImage),
			hive.WithRetries(2), hive.WithRetryDelay(10*time.Second)),
		Generic: h.Task(Generic, registry.ExecutorFunc(generic)),
		Heartbeat: h.PeriodicTask(Heartbeat, heartbeatDue, registry.ExecutorFunc(heartbeat)),
	}
}

func sendEmail(ctx context.Context, t *task.Task) (any, error) {
	to, _ := t.Kwargs["to"].(string)
	subject, _ := t.Kwargs["subject"].(string)
	if to == "" {
		return nil, fmt.Errorf("demo.send_email: missing %q", "to")
	}
	time.Sleep(200 * time.Millisecond)
	return map[string]any{"status": "sent", "to": to, "subject": subject}, nil
}

func resizeImage(ctx context.Context, t *task.Task) (any, error) {
	time.Sleep(500 * time.Millisecond)
	return map[string]any{"status": "resized"}, nil
}

func generic(ctx context.Context, t *task.Task) (any, error) {
	time.Sleep(100 * time.Millisecond)
	return map[string]any{"status": "done", "args": t.Args}, nil
}

func heartbeat(ctx context.Context, t *task.Task) (any, error) {
	return map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)}, nil
}
