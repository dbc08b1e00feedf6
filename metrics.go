package lazyframe

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/generic"

	"github.com/frameql/lazyframe/sql"
)

// Metrics accumulates the statistics of the jobs run by an executor. The
// counters can be replaced by any go-kit counter to export them.
type Metrics struct {
	// ExecutionCounter counts the jobs run.
	ExecutionCounter metrics.Counter
	// BytesProcessedCounter accumulates the bytes processed by the jobs.
	BytesProcessedCounter metrics.Counter
	// SlotMillisCounter accumulates the slot time consumed by the jobs.
	SlotMillisCounter metrics.Counter
}

// NewMetrics creates metrics backed by in-memory counters.
func NewMetrics() *Metrics {
	return &Metrics{
		ExecutionCounter:      generic.NewCounter("lazyframe_job_executions"),
		BytesProcessedCounter: generic.NewCounter("lazyframe_job_bytes_processed"),
		SlotMillisCounter:     generic.NewCounter("lazyframe_job_slot_millis"),
	}
}

// Update adds the statistics of a finished job.
func (m *Metrics) Update(stats sql.JobStats) {
	m.ExecutionCounter.Add(1)
	m.BytesProcessedCounter.Add(float64(stats.BytesProcessed))
	m.SlotMillisCounter.Add(float64(stats.SlotMillis))
}

// ExecutionCount is the number of jobs run.
func (m *Metrics) ExecutionCount() int64 {
	return counterValue(m.ExecutionCounter)
}

// BytesProcessed is the total number of bytes processed by the jobs.
func (m *Metrics) BytesProcessed() int64 {
	return counterValue(m.BytesProcessedCounter)
}

// SlotMillis is the total slot time consumed by the jobs.
func (m *Metrics) SlotMillis() int64 {
	return counterValue(m.SlotMillisCounter)
}

// counterValue reads in-memory counters. Other counters are write only and
// read as zero.
func counterValue(c metrics.Counter) int64 {
	if g, ok := c.(*generic.Counter); ok {
		return int64(g.Value())
	}
	return 0
}
