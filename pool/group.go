package pool

import (
	"sync"
	"sync/atomic"
)

// Group is a set of tasks submitted to a Pool that can be joined.
//
// Wait executes queued tasks on the waiting goroutine until the group is
// finished, so a task may fan out into its own pool and join the result
// without starving the pool of workers.
type Group struct {
	pool    *Pool
	pending int64
	wg      sync.WaitGroup
}

func (p *Pool) Group() *Group {
	return &Group{pool: p}
}

func (g *Group) Go(task func()) {
	atomic.AddInt64(&g.pending, 1)
	g.wg.Add(1)
	g.pool.Submit(func() {
		defer func() {
			atomic.AddInt64(&g.pending, -1)
			g.wg.Done()
		}()
		task()
	})
}

func (g *Group) Wait() {
	for atomic.LoadInt64(&g.pending) > 0 {
		if !g.pool.runOne() {
			break
		}
	}
	g.wg.Wait()
}
