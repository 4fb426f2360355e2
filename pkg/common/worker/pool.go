package worker

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

// Job is a unit of background work.
type Job func()

var (
	pool     *ants.Pool
	initOnce sync.Once
	mu       sync.RWMutex
	stats    = struct {
		Submitted uint64
		Completed uint64
		LastJob   string
		LastErr   string
		LastDur   time.Duration
		LastAt    time.Time
	}{}
)

// DefaultSize is used when Submit runs before Init.
const DefaultSize = 2

// Init initializes the global worker pool with the given size. Safe to call multiple times.
func Init(size int) error {
	var err error
	initOnce.Do(func() {
		if size <= 0 {
			size = DefaultSize
		}
		pool, err = ants.NewPool(size, ants.WithNonblocking(true))
	})
	return err
}

// Submit enqueues a named job for asynchronous execution. With a full pool
// it fails with ants.ErrPoolOverload instead of blocking.
func Submit(name string, j Job) error {
	if pool == nil {
		if err := Init(DefaultSize); err != nil {
			return err
		}
	}
	mu.Lock()
	stats.Submitted++
	mu.Unlock()
	err := pool.Submit(func() {
		start := time.Now()
		defer func() {
			r := recover()
			if r != nil {
				log.Error().Interface("panic", r).Str("job", name).Msg("worker panic recovered")
			}
			mu.Lock()
			if r != nil {
				stats.LastErr = "panic"
			} else {
				stats.LastErr = ""
			}
			stats.Completed++
			stats.LastJob = name
			stats.LastDur = time.Since(start)
			stats.LastAt = time.Now()
			mu.Unlock()
		}()
		j()
	})
	if err != nil {
		mu.Lock()
		stats.Submitted--
		mu.Unlock()
	}
	return err
}

// Cap returns pool capacity.
func Cap() int {
	if pool == nil {
		return 0
	}
	return pool.Cap()
}

// Running returns currently running goroutines.
func Running() int {
	if pool == nil {
		return 0
	}
	return pool.Running()
}

// Release stops the pool and forgets it so a later Init starts fresh.
func Release() {
	if pool != nil {
		pool.Release()
	}
	pool = nil
	initOnce = sync.Once{}
	mu.Lock()
	stats.Submitted, stats.Completed = 0, 0
	stats.LastJob, stats.LastErr = "", ""
	stats.LastDur, stats.LastAt = 0, time.Time{}
	mu.Unlock()
}

// StatsSnapshot returns a copy of current pool statistics.
func StatsSnapshot() map[string]any {
	mu.RLock()
	defer mu.RUnlock()
	return map[string]any{
		"capacity":         Cap(),
		"running":          Running(),
		"submitted":        stats.Submitted,
		"completed":        stats.Completed,
		"last_job":         stats.LastJob,
		"last_error":       stats.LastErr,
		"last_duration_ms": stats.LastDur.Milliseconds(),
		"last_finished_at": stats.LastAt,
	}
}
