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

package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/poiesic/shelfvec/core"
)

// CollectionReport is the verification result for one collection.
type CollectionReport struct {
	Name         string `json:"name"`
	PointsCount  uint64 `json:"points_count"`
	VectorsCount uint64 `json:"vectors_count"`
	VectorSize   int    `json:"vector_size,omitempty"`
	Status       string `json:"status,omitempty"`
	Orphans      int    `json:"orphans,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newCollectionReport(state *core.CollectionState) CollectionReport {
	return CollectionReport{
		Name:         state.Name,
		PointsCount:  state.PointsCount,
		VectorsCount: state.VectorsCount,
		VectorSize:   state.VectorSize,
		Status:       state.Status,
	}
}

// SummaryConfig echoes the settings a run used.
type SummaryConfig struct {
	BatchSize      int    `json:"batch_size"`
	Concurrency    int    `json:"concurrency"`
	ClearExisting  bool   `json:"clear_existing"`
	TagCollection  string `json:"tag_collection"`
	DescCollection string `json:"desc_collection"`
}

// Summary is the final record of a run. It is produced for every run,
// including failed ones.
type Summary struct {
	State            string             `json:"state"`
	Error            string             `json:"error,omitempty"`
	Source           string             `json:"source,omitempty"`
	InputDigest      string             `json:"input_digest,omitempty"`
	Stats            RunStats           `json:"stats"`
	FinishedAt       time.Time          `json:"finished_at"`
	ElapsedSeconds   float64            `json:"elapsed_seconds"`
	RecordsPerSecond float64            `json:"records_per_second"`
	SuccessRate      float64            `json:"success_rate"`
	Collections      []CollectionReport `json:"collections,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
	Config           SummaryConfig      `json:"config"`
}

// Elapsed returns the run's wall time.
func (s *Summary) Elapsed() time.Duration {
	return time.Duration(s.ElapsedSeconds * float64(time.Second))
}

func (s *Summary) finish(state State, err error) {
	s.State = state.String()
	if err != nil {
		s.Error = err.Error()
	}
	s.FinishedAt = time.Now().UTC()
	elapsed := s.FinishedAt.Sub(s.Stats.StartTime)
	s.ElapsedSeconds = elapsed.Seconds()
	if elapsed > 0 {
		s.RecordsPerSecond = float64(s.Stats.Processed) / elapsed.Seconds()
	}
	s.SuccessRate = s.Stats.SuccessRate()
}

// WriteFile writes the summary as indented JSON.
func (s *Summary) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Report prints the human-readable final report.
func (s *Summary) Report(w io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Import finished: %s\n", s.State)
	if s.Error != "" {
		fmt.Fprintf(w, "  Error:            %s\n", s.Error)
	}
	fmt.Fprintf(w, "  Total records:    %d\n", s.Stats.Total)
	fmt.Fprintf(w, "  Processed:        %d\n", s.Stats.Processed)
	fmt.Fprintf(w, "  Succeeded:        %d\n", s.Stats.Succeeded)
	fmt.Fprintf(w, "  Failed:           %d\n", s.Stats.Failed)
	fmt.Fprintf(w, "  Failed batches:   %d/%d\n", s.Stats.FailedBatches, s.Stats.Batches)
	fmt.Fprintf(w, "  Embedding calls:  %d\n", s.Stats.EmbeddingCalls)
	fmt.Fprintf(w, "  Elapsed:          %s\n", s.Elapsed().Round(100*time.Millisecond))
	fmt.Fprintf(w, "  Average speed:    %.1f records/s\n", s.RecordsPerSecond)
	fmt.Fprintf(w, "  Success rate:     %.1f%%\n", s.SuccessRate)
	for _, c := range s.Collections {
		if c.Error != "" {
			fmt.Fprintf(w, "  %s: unavailable (%s)\n", c.Name, c.Error)
			continue
		}
		fmt.Fprintf(w, "  %s: %d points, %d vectors\n", c.Name, c.PointsCount, c.VectorsCount)
	}
	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	fmt.Fprintln(w, rule)
}
