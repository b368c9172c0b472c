// Package parallel provides a fixed-size work-stealing worker pool with
// scoped task groups.
//
// Tasks are scheduled onto the spawning worker's local deque (popped LIFO by
// the owner, stolen FIFO by idle workers) so recently spawned work stays hot
// on the spawning thread while idle workers drain the oldest work first.
// A Scope guarantees every task spawned within it has completed before
// Pool.Scope returns.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of work executed on a pool worker. The worker running the
// task is passed in so the task can spawn follow-up work onto the same
// local deque and address per-worker state by Worker.Index.
type Task func(w *Worker)

// ============================================================================
// Pool Configuration
// ============================================================================

// DefaultWorkers returns the default pool size: NumCPU capped at 8.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 2 {
		n = 2
	}
	return n
}

// PoolMetrics holds scheduling counters. All fields are maintained with
// atomics and may be read while the pool is running.
type PoolMetrics struct {
	TasksSpawned   atomic.Int64
	TasksInjected  atomic.Int64
	TasksStolen    atomic.Int64
	TasksCompleted atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of PoolMetrics.
type MetricsSnapshot struct {
	TasksSpawned   int64
	TasksInjected  int64
	TasksStolen    int64
	TasksCompleted int64
}

// ============================================================================
// Pool
// ============================================================================

// Pool is a fixed-size work-stealing worker pool.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	workers []*Worker
	inject  []Task // global FIFO queue for tasks submitted from outside the pool
	closed  bool
	done    sync.WaitGroup
	metrics PoolMetrics
}

// NewPool creates a pool with n workers and starts them. If n <= 0 the
// default size is used.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = DefaultWorkers()
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.workers = make([]*Worker, n)
	for i := 0; i < n; i++ {
		p.workers[i] = &Worker{pool: p, index: i, rng: uint64(i)*0x9e3779b97f4a7c15 + 1}
	}
	p.done.Add(n)
	for _, w := range p.workers {
		go w.run()
	}
	return p
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return len(p.workers)
}

// Metrics returns a snapshot of the scheduling counters.
func (p *Pool) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TasksSpawned:   p.metrics.TasksSpawned.Load(),
		TasksInjected:  p.metrics.TasksInjected.Load(),
		TasksStolen:    p.metrics.TasksStolen.Load(),
		TasksCompleted: p.metrics.TasksCompleted.Load(),
	}
}

// Close shuts the pool down and waits for the workers to exit. All scopes
// must have returned before Close is called; tasks still queued at close
// time are not run.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.done.Wait()
}

// push enqueues a task. Tasks spawned by a worker go onto that worker's
// local deque; tasks from outside the pool go onto the global inject queue.
func (p *Pool) push(w *Worker, t Task) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("parallel: push on closed pool")
	}
	if w != nil {
		w.local = append(w.local, t)
		p.metrics.TasksSpawned.Add(1)
	} else {
		p.inject = append(p.inject, t)
		p.metrics.TasksInjected.Add(1)
	}
	p.cond.Signal()
	p.mu.Unlock()
}

// takeLocked finds the next task for w: its own deque first (LIFO), then the
// inject queue, then a steal from another worker (FIFO). Caller holds p.mu.
func (p *Pool) takeLocked(w *Worker) (Task, bool) {
	if n := len(w.local); n > 0 {
		t := w.local[n-1]
		w.local[n-1] = nil
		w.local = w.local[:n-1]
		return t, true
	}
	if len(p.inject) > 0 {
		t := p.inject[0]
		p.inject[0] = nil
		p.inject = p.inject[1:]
		return t, true
	}
	// Steal the oldest task from a victim, starting at a random offset so
	// workers do not all converge on the same victim.
	n := len(p.workers)
	start := int(w.nextRand() % uint64(n))
	for i := 0; i < n; i++ {
		victim := p.workers[(start+i)%n]
		if victim == w || len(victim.local) == 0 {
			continue
		}
		t := victim.local[0]
		victim.local[0] = nil
		victim.local = victim.local[1:]
		p.metrics.TasksStolen.Add(1)
		return t, true
	}
	return nil, false
}

// ============================================================================
// Worker
// ============================================================================

// Worker is one pool thread. A Worker value is only ever used by the
// goroutine it belongs to.
type Worker struct {
	pool  *Pool
	index int
	rng   uint64

	// local is the worker's deque, guarded by pool.mu.
	local []Task
}

// Index returns the worker's slot in the pool, in [0, Workers()).
func (w *Worker) Index() int {
	return w.index
}

// HasPendingTasks reports whether the worker's local deque holds queued
// tasks it has not started yet.
func (w *Worker) HasPendingTasks() bool {
	w.pool.mu.Lock()
	pending := len(w.local) > 0
	w.pool.mu.Unlock()
	return pending
}

// nextRand is an xorshift step for victim selection. Caller holds pool.mu.
func (w *Worker) nextRand() uint64 {
	x := w.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	w.rng = x
	return x
}

func (w *Worker) run() {
	defer w.pool.done.Done()
	p := w.pool
	for {
		p.mu.Lock()
		var t Task
		for {
			var ok bool
			if t, ok = p.takeLocked(w); ok {
				break
			}
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
		}
		p.mu.Unlock()

		t(w)
		p.metrics.TasksCompleted.Add(1)
	}
}
