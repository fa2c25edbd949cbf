package threadpool

import (
	"context"
	"sync"
)

// Pool runs a resizable, fixed set of worker goroutines pulling jobs off a
// Queue, mirroring depspawn's ThreadPool: workers park on a condition
// variable when the queue is empty and are woken on every successful push
// or on shutdown, rather than busy-spinning.
type Pool struct {
	queue *Queue[func()]

	mu      sync.Mutex
	cond    *sync.Cond
	closed  bool
	wg      sync.WaitGroup
	active  int
	wantN   int
	nextGen uint64
}

// NewPool creates a pool bound to an existing job queue and launches n
// worker goroutines immediately.
func NewPool(queue *Queue[func()], n int) *Pool {
	p := &Pool{queue: queue}
	p.cond = sync.NewCond(&p.mu)
	p.Resize(n)
	return p
}

// Resize grows or shrinks the worker count to n. Shrinking only stops
// workers at their next idle point; it never interrupts a running job.
func (p *Pool) Resize(n int) {
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	p.wantN = n
	toLaunch := 0
	if n > p.active {
		toLaunch = n - p.active
		p.active = n
	}
	p.mu.Unlock()

	for i := 0; i < toLaunch; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	p.cond.Broadcast()
}

// Notify wakes any worker parked waiting for jobs. Call after pushing onto
// the bound queue.
func (p *Pool) Notify() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		if job, ok := p.queue.TryPop(); ok {
			job()
			continue
		}

		p.mu.Lock()
		job, ok, stop := p.awaitWork()
		p.mu.Unlock()
		if stop {
			return
		}
		if ok {
			job()
		}
	}
}

// awaitWork parks on the condition variable until a job is available or
// the worker should exit (closed, or shrunk below its slot). Caller must
// hold p.mu; it is released and re-acquired across Wait.
func (p *Pool) awaitWork() (job func(), ok bool, stop bool) {
	for {
		if p.closed {
			p.active--
			return nil, false, true
		}
		if p.active > p.wantN {
			p.active--
			return nil, false, true
		}
		if job, ok := p.queue.TryPop(); ok {
			return job, true, false
		}
		p.cond.Wait()
	}
}

// Close stops accepting new work and waits for in-flight jobs to drain,
// honoring ctx for a bounded shutdown wait.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
