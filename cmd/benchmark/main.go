// Package main is a benchmark tool for taskhive: it enqueues a large number
// of tasks and measures enqueue throughput.
//
// Usage:
//
//	go run cmd/benchmark/main.go -tasks 100000
package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jgarrity-dev/taskhive/internal/demotasks"
	"github.com/jgarrity-dev/taskhive/pkg/hive"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
)

func main() {
	numTasks := flag.Int("tasks", 100000, "number of tasks to enqueue")
	numWorkers := flag.Int("workers", 10, "number of concurrent enqueuers")
	flag.Parse()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := storage.NewRedis("taskhive-bench", rdb, 5*time.Second)

	h, err := hive.New("taskhive-bench", hive.WithStorage(store), hive.WithResults(false))
	if err != nil {
		fmt.Printf("failed to construct hive: %v\n", err)
		return
	}
	handles := demotasks.Register(h)

	fmt.Printf("taskhive benchmark\n")
	fmt.Printf("===================\n")
	fmt.Printf("tasks to enqueue: %d\n", *numTasks)
	fmt.Printf("concurrent enqueuers: %d\n\n", *numWorkers)

	ctx := context.Background()
	start := time.Now()

	var wg sync.WaitGroup
	var enqueued atomic.Int64
	perWorker := *numTasks / *numWorkers

	for w := 0; w < *numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				args := []any{workerID, i}
				if _, err := handles.Generic.Call(ctx, args, nil); err != nil {
					fmt.Printf("error enqueuing: %v\n", err)
					return
				}
				enqueued.Add(1)
			}
		}(w)
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := enqueued.Load()
	fmt.Printf("enqueued %d tasks in %s (%.0f tasks/sec)\n", total, elapsed, float64(total)/elapsed.Seconds())
}
