package ingestion

import "time"

// MetricsObserver receives run measurements. metrics.Recorder implements it
// with Prometheus; NoopMetrics discards everything.
type MetricsObserver interface {
	// RecordBatch is called once per finished batch.
	RecordBatch(size, succeeded, failed int, duration time.Duration)

	// RecordUpsert is called after each collection write.
	RecordUpsert(collection string, points int, err error)

	// RecordRun is called once when a run reaches a terminal state.
	RecordRun(state string, duration time.Duration, embeddingCalls, embeddingFailures int64)
}

// NoopMetrics is a no-op implementation of MetricsObserver.
type NoopMetrics struct{}

func (NoopMetrics) RecordBatch(int, int, int, time.Duration)      {}
func (NoopMetrics) RecordUpsert(string, int, error)               {}
func (NoopMetrics) RecordRun(string, time.Duration, int64, int64) {}
