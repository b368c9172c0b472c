package parallel

import (
	"sync"
	"sync/atomic"
)

// Scope is a task group: every task spawned through it is guaranteed to
// have completed before Pool.Scope returns. Tasks may spawn further tasks
// into the same scope recursively.
//
// The join counter never drops to zero while spawns are still possible: the
// scope's root task is counted before any Spawn, and Spawn is only called
// from tasks that are themselves still counted.
type Scope struct {
	pool    *Pool
	wg      sync.WaitGroup
	spawned atomic.Int64
}

// Spawn schedules fn into the scope. w must be the worker currently running
// the spawning task, or nil when spawning from outside the pool; the task
// lands on w's local deque so idle workers can steal it.
func (s *Scope) Spawn(w *Worker, fn Task) {
	s.wg.Add(1)
	s.spawned.Add(1)
	s.pool.push(w, func(w2 *Worker) {
		defer s.wg.Done()
		fn(w2)
	})
}

// SpawnCount returns the number of tasks spawned into the scope so far.
// Stable only after the scope has joined.
func (s *Scope) SpawnCount() int64 {
	return s.spawned.Load()
}

// Scope runs fn on a pool worker and blocks until fn and every task spawned
// into the scope have completed. This is the only blocking operation the
// pool exposes.
func (p *Pool) Scope(fn func(s *Scope, w *Worker)) {
	s := &Scope{pool: p}
	s.wg.Add(1)
	p.push(nil, func(w *Worker) {
		defer s.wg.Done()
		fn(s, w)
	})
	s.wg.Wait()
}
