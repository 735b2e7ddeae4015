package notify

import (
	"context"
	"fmt"
	"time"

	"accountsvc/internal/concurrent"
	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

const sendTimeout = 10 * time.Second

// QueueDepth reports how many notices are waiting for a worker.
type QueueDepth interface {
	QueueLength() int
	QueueCapacity() int
}

// Dispatcher implements domain.ResetNotifier by queueing notices onto a
// worker pool. NotifyPasswordReset fails only when the queue is full or the
// dispatcher is stopped; delivery errors are logged by the pool.
type Dispatcher struct {
	pool *concurrent.WorkerPool[domain.ResetNotice]
}

func NewDispatcher(sender Sender, workers, queueSize int, log logger.Logger) *Dispatcher {
	process := func(ctx context.Context, notice domain.ResetNotice) error {
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := sender.Send(ctx, notice); err != nil {
			return fmt.Errorf("deliver reset notice for account %s: %w", notice.AccountID, err)
		}
		return nil
	}
	return &Dispatcher{
		pool: concurrent.NewWorkerPool("reset-notifier", workers, queueSize, process, log),
	}
}

func (d *Dispatcher) Start() {
	d.pool.Start()
}

func (d *Dispatcher) NotifyPasswordReset(_ context.Context, notice domain.ResetNotice) error {
	return d.pool.Submit(notice)
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.pool.Stop(ctx)
}

func (d *Dispatcher) Stats() concurrent.Stats {
	return d.pool.GetStats()
}

func (d *Dispatcher) QueueLength() int {
	return d.pool.QueueLength()
}

func (d *Dispatcher) QueueCapacity() int {
	return d.pool.QueueCapacity()
}
