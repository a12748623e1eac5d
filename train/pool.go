package train

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("train: pool closed")

// Pool runs tasks of type T on a fixed number of workers pulling from one
// FIFO queue. Submit never blocks.
type Pool[T any] struct {
	handle func(T)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	pending sync.WaitGroup
	workers sync.WaitGroup
}

// NewPool starts workers goroutines, at least one.
func NewPool[T any](workers int, handle func(T)) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	p := &Pool[T]{handle: handle}
	p.cond = sync.NewCond(&p.mu)
	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Submit queues t.
func (p *Pool[T]) Submit(t T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.pending.Add(1)
	p.queue = append(p.queue, t)
	p.cond.Signal()
	return nil
}

// Wait blocks until every submitted task has been handled.
func (p *Pool[T]) Wait() {
	p.pending.Wait()
}

// Close lets the workers finish what is queued and stops them.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.workers.Wait()
}

func (p *Pool[T]) next() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	var t T
	if len(p.queue) == 0 {
		return t, false
	}
	t = p.queue[0]
	var zero T
	p.queue[0] = zero
	p.queue = p.queue[1:]
	return t, true
}

func (p *Pool[T]) work() {
	defer p.workers.Done()
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.handle(t)
		p.pending.Done()
	}
}
