package concurrent

import (
	"context"
	"errors"
	"sync"
	"time"

	"accountsvc/pkg/logger"
	"accountsvc/pkg/metrics"
)

var (
	ErrPoolNotStarted = errors.New("worker pool is not running")
	ErrQueueFull      = errors.New("worker pool queue is full")
)

type Processor[T any] func(ctx context.Context, job T) error

// WorkerPool runs jobs of type T on a fixed set of goroutines fed by a
// bounded queue. Submit never blocks.
type WorkerPool[T any] struct {
	name           string
	numWorkers     int
	jobQueue       chan T
	processor      Processor[T]
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	logger         logger.Logger
	started        bool
	mutex          sync.Mutex
	statsCollector *StatsCollector
}

func NewWorkerPool[T any](name string, numWorkers, queueSize int, processor Processor[T], logger logger.Logger) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool[T]{
		name:           name,
		numWorkers:     numWorkers,
		jobQueue:       make(chan T, queueSize),
		processor:      processor,
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger,
		statsCollector: NewStatsCollector(),
	}
}

func (wp *WorkerPool[T]) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if wp.started {
		return
	}

	wp.logger.Info("Starting worker pool", map[string]interface{}{
		"pool":        wp.name,
		"num_workers": wp.numWorkers,
		"queue_size":  cap(wp.jobQueue),
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		workerID := i
		go func() {
			defer wp.wg.Done()
			wp.worker(workerID)
		}()
	}

	wp.started = true
}

// Stop closes the queue and waits for queued jobs to drain. If ctx expires
// first, in-flight jobs see their context cancelled.
func (wp *WorkerPool[T]) Stop(ctx context.Context) error {
	wp.mutex.Lock()
	if !wp.started {
		wp.mutex.Unlock()
		return nil
	}
	wp.started = false
	close(wp.jobQueue)
	wp.mutex.Unlock()

	wp.logger.Info("Stopping worker pool", map[string]interface{}{
		"pool":    wp.name,
		"pending": len(wp.jobQueue),
	})

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	defer wp.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}

func (wp *WorkerPool[T]) Submit(job T) error {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if !wp.started {
		return ErrPoolNotStarted
	}

	select {
	case wp.jobQueue <- job:
		wp.statsCollector.IncrementSubmitted()
		metrics.UpdateNotifierStats(len(wp.jobQueue), int(wp.statsCollector.active.Load()))
		return nil
	default:
		wp.statsCollector.IncrementRejected()
		wp.logger.Warn("Worker pool queue is full, job rejected", map[string]interface{}{
			"pool":     wp.name,
			"capacity": cap(wp.jobQueue),
		})
		return ErrQueueFull
	}
}

func (wp *WorkerPool[T]) worker(id int) {
	for job := range wp.jobQueue {
		active := wp.statsCollector.begin()
		metrics.UpdateNotifierStats(len(wp.jobQueue), int(active))

		startTime := time.Now()
		err := wp.process(job)
		processingTime := time.Since(startTime)

		active = wp.statsCollector.finish(processingTime, err)
		metrics.UpdateNotifierStats(len(wp.jobQueue), int(active))

		if err != nil {
			wp.logger.Error("Job failed", map[string]interface{}{
				"pool":            wp.name,
				"worker_id":       id,
				"error":           err.Error(),
				"processing_time": processingTime.String(),
			})
		} else {
			wp.logger.Debug("Job completed", map[string]interface{}{
				"pool":            wp.name,
				"worker_id":       id,
				"processing_time": processingTime.String(),
			})
		}
	}
}

func (wp *WorkerPool[T]) process(job T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Job panicked", map[string]interface{}{
				"pool":  wp.name,
				"panic": r,
			})
			err = errors.New("job panicked")
		}
	}()
	return wp.processor(wp.ctx, job)
}

func (wp *WorkerPool[T]) GetStats() Stats {
	return wp.statsCollector.GetStats()
}

func (wp *WorkerPool[T]) QueueLength() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool[T]) QueueCapacity() int {
	return cap(wp.jobQueue)
}
