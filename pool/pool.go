// Package pool runs tasks on a fixed set of worker goroutines fed by one FIFO
// queue.
package pool

import (
	"log"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is the panic value of Submit on a closed pool.
var ErrClosed = errors.New("pool: submit on closed pool")

type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	stopped bool

	size int
	wg   sync.WaitGroup
}

// DefaultSize keeps one CPU for the owning thread.
func DefaultSize() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// New starts n workers. n < 1 starts DefaultSize workers.
func New(n int) *Pool {
	if n < 1 {
		n = DefaultSize()
	}
	p := &Pool{size: n}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int {
	return p.size
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Submit appends task to the queue and wakes one worker.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		panic(ErrClosed)
	}
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops accepting tasks and blocks until the workers have run every
// queued task and exited.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.tasks) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.pop()
		p.mu.Unlock()
		run(task)
	}
}

// runOne runs the oldest queued task on the calling goroutine.
func (p *Pool) runOne() bool {
	p.mu.Lock()
	if len(p.tasks) == 0 {
		p.mu.Unlock()
		return false
	}
	task := p.pop()
	p.mu.Unlock()
	run(task)
	return true
}

// pop must be called with mu held.
func (p *Pool) pop() func() {
	task := p.tasks[0]
	p.tasks[0] = nil
	p.tasks = p.tasks[1:]
	return task
}

func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pool: task panic: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
