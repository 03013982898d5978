package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()

	r.RecordBatch(10, 9, 1, 120*time.Millisecond)
	r.RecordBatch(2, 0, 2, 80*time.Millisecond)
	r.RecordUpsert("tags_vecs", 9, nil)
	r.RecordUpsert("desc_vecs", 0, errors.New("boom"))
	r.RecordRun("Done", 3*time.Second, 24, 1)

	path := filepath.Join(t.TempDir(), "shelfvec.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `shelfvec_records_total{outcome="succeeded"} 9`)
	assert.Contains(t, out, `shelfvec_records_total{outcome="failed"} 3`)
	assert.Contains(t, out, `shelfvec_batches_total{outcome="succeeded"} 1`)
	assert.Contains(t, out, `shelfvec_batches_total{outcome="failed"} 1`)
	assert.Contains(t, out, `shelfvec_upserted_points_total{collection="tags_vecs"} 9`)
	assert.Contains(t, out, `shelfvec_upsert_errors_total{collection="desc_vecs"} 1`)
	assert.Contains(t, out, `shelfvec_embedding_calls_total 24`)
	assert.Contains(t, out, `shelfvec_embedding_failures_total 1`)
	assert.Contains(t, out, `shelfvec_run_duration_seconds 3`)
	assert.Contains(t, out, `shelfvec_run_state{state="Done"} 1`)
	assert.Contains(t, out, `shelfvec_batch_duration_seconds_count 2`)
}

func TestRecorder_RunStateReplaced(t *testing.T) {
	r := NewRecorder()
	r.RecordRun("Failed", time.Second, 0, 0)
	r.RecordRun("Done", time.Second, 0, 0)

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "shelfvec_run_state" {
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, "Done", mf.GetMetric()[0].GetLabel()[0].GetValue())
		}
	}
}
