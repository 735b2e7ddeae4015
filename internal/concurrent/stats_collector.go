package concurrent

import (
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	Submitted      int64
	Completed      int64
	Failed         int64
	Rejected       int64
	Active         int64
	AvgProcessTime time.Duration
}

type StatsCollector struct {
	submitted      atomic.Int64
	completed      atomic.Int64
	failed         atomic.Int64
	rejected       atomic.Int64
	active         atomic.Int64
	totalProcTime  int64
	processedCount int64
	mutex          sync.RWMutex
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

func (sc *StatsCollector) IncrementSubmitted() { sc.submitted.Add(1) }
func (sc *StatsCollector) IncrementRejected()  { sc.rejected.Add(1) }

// begin marks a job as picked up by a worker and returns the number of jobs
// currently in flight.
func (sc *StatsCollector) begin() int64 {
	return sc.active.Add(1)
}

// finish records the outcome of a job started with begin.
func (sc *StatsCollector) finish(d time.Duration, err error) int64 {
	if err != nil {
		sc.failed.Add(1)
	} else {
		sc.completed.Add(1)
	}

	sc.mutex.Lock()
	sc.totalProcTime += d.Nanoseconds()
	sc.processedCount++
	sc.mutex.Unlock()

	return sc.active.Add(-1)
}

func (sc *StatsCollector) GetStats() Stats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	stats := Stats{
		Submitted: sc.submitted.Load(),
		Completed: sc.completed.Load(),
		Failed:    sc.failed.Load(),
		Rejected:  sc.rejected.Load(),
		Active:    sc.active.Load(),
	}

	if sc.processedCount > 0 {
		stats.AvgProcessTime = time.Duration(sc.totalProcTime / sc.processedCount)
	}

	return stats
}
