package ingestion

import (
	"time"
)

// BatchOutcome is the result of one batch, delivered to the run's single
// accumulation point.
type BatchOutcome struct {
	Index     int
	Offset    int
	Size      int
	Succeeded int
	Failed    int
	Failures  []RecordFailure
	WriteErr  error
	Duration  time.Duration
}

// RunStats accumulates the counts of one run. It is owned by the goroutine
// draining batch outcomes; workers never touch it.
type RunStats struct {
	Total          int       `json:"total"`
	Processed      int       `json:"processed"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Batches        int       `json:"batches"`
	FailedBatches  int       `json:"failed_batches"`
	EmbeddingCalls int64     `json:"embedding_calls"`
	StartTime      time.Time `json:"start_time"`
}

// add merges one batch outcome.
func (s *RunStats) add(o *BatchOutcome) {
	s.Batches++
	s.Processed += o.Size
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	if o.WriteErr != nil {
		s.FailedBatches++
	}
}

// SuccessRate returns succeeded over total, in percent.
func (s *RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}
