// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shelfvec"

// Recorder collects import metrics. It satisfies ingestion.MetricsObserver.
type Recorder struct {
	registry *prometheus.Registry

	records         *prometheus.CounterVec
	batches         *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	upsertedPoints  *prometheus.CounterVec
	upsertErrors    *prometheus.CounterVec
	embeddingCalls  prometheus.Counter
	embeddingErrors prometheus.Counter
	runDuration     prometheus.Gauge
	runState        *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Book records processed, by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches processed, by outcome.",
		}, []string{"outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to embed and write one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		upsertedPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserted_points_total",
			Help:      "Points written, by collection.",
		}, []string{"collection"}),
		upsertErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upsert_errors_total",
			Help:      "Rejected batch writes, by collection.",
		}, []string{"collection"}),
		embeddingCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_calls_total",
			Help:      "Embedding requests made, excluding retries and cache hits.",
		}),
		embeddingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Embedding requests that failed after all attempts.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		runState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_state",
			Help:      "Terminal state of the last run (1 for the reached state).",
		}, []string{"state"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.records,
		r.batches,
		r.batchDuration,
		r.upsertedPoints,
		r.upsertErrors,
		r.embeddingCalls,
		r.embeddingErrors,
		r.runDuration,
		r.runState,
		r.lastRun,
	)
	return r
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordBatch records one finished batch.
func (r *Recorder) RecordBatch(size, succeeded, failed int, duration time.Duration) {
	r.records.WithLabelValues("succeeded").Add(float64(succeeded))
	r.records.WithLabelValues("failed").Add(float64(failed))
	outcome := "succeeded"
	if succeeded == 0 && size > 0 {
		outcome = "failed"
	}
	r.batches.WithLabelValues(outcome).Inc()
	r.batchDuration.Observe(duration.Seconds())
}

// RecordUpsert records one collection write.
func (r *Recorder) RecordUpsert(collection string, points int, err error) {
	if err != nil {
		r.upsertErrors.WithLabelValues(collection).Inc()
		return
	}
	r.upsertedPoints.WithLabelValues(collection).Add(float64(points))
}

// RecordRun records the end of a run.
func (r *Recorder) RecordRun(state string, duration time.Duration, embeddingCalls, embeddingFailures int64) {
	r.embeddingCalls.Add(float64(embeddingCalls))
	r.embeddingErrors.Add(float64(embeddingFailures))
	r.runDuration.Set(duration.Seconds())
	r.runState.Reset()
	r.runState.WithLabelValues(state).Set(1)
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile writes every metric in the text exposition format. The file
// is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
