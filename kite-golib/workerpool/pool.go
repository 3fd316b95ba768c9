package workerpool

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Job is a unit of work run by the pool.
type Job func() error

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	m       sync.Mutex
	cond    *sync.Cond
	queue   []Job
	pending int // queued + running
	stopped bool
	err     error
}

// New starts a pool with n workers, n is raised to 1 if needed.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.m)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

// Add queues jobs for execution. Jobs added after Stop are ignored.
func (p *Pool) Add(jobs []Job) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.stopped {
		return
	}
	p.queue = append(p.queue, jobs...)
	p.pending += len(jobs)
	p.cond.Broadcast()
}

// AddJob queues a single job.
func (p *Pool) AddJob(job Job) {
	p.Add([]Job{job})
}

// Wait blocks until every queued job has run (or been dropped by Stop) and returns
// the errors of all jobs that failed, combined.
func (p *Pool) Wait() error {
	p.m.Lock()
	defer p.m.Unlock()
	for p.pending > 0 {
		p.cond.Wait()
	}
	return p.err
}

// Stop drops queued jobs that have not started and releases the workers once
// running jobs complete.
func (p *Pool) Stop() {
	p.m.Lock()
	defer p.m.Unlock()
	p.stopped = true
	p.pending -= len(p.queue)
	p.queue = nil
	p.cond.Broadcast()
}

func (p *Pool) loop() {
	for {
		p.m.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.m.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.m.Unlock()

		err := run(job)

		p.m.Lock()
		p.pending--
		p.err = multierr.Append(p.err, err)
		p.cond.Broadcast()
		p.m.Unlock()
	}
}

func run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job panicked: %v", r)
		}
	}()
	return job()
}
