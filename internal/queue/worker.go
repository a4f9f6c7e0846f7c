package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const taskTimeout = 30 * time.Second

// WorkerPool runs tasks in-process on a fixed number of goroutines.
type WorkerPool struct {
	mux     *Mux
	tasks   chan Task
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(mux *Mux, workers, buffer int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &WorkerPool{
		mux:     mux,
		tasks:   make(chan Task, buffer),
		workers: workers,
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for t := range p.tasks {
				p.run(ctx, id, t)
			}
		}(i)
	}
}

func (p *WorkerPool) run(ctx context.Context, worker int, t Task) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), taskTimeout)
	defer cancel()

	start := time.Now()
	err := p.mux.Dispatch(ctx, t)

	entry := logrus.WithFields(logrus.Fields{
		"task_id":  t.ID,
		"type":     t.Type,
		"worker":   worker,
		"duration": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("Task failed")
		return
	}
	entry.Debug("Task completed")
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (p *WorkerPool) Enqueue(ctx context.Context, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
