package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

type fakeAPI struct {
	runs     []carbon.CalculationRun
	audited  []int64
	auditErr error
}

func (f *fakeAPI) ListRuns(context.Context) ([]carbon.CalculationRun, error) {
	return f.runs, nil
}

func (f *fakeAPI) RunAudit(_ context.Context, id int64) (*carbon.AuditReport, error) {
	if f.auditErr != nil {
		return nil, f.auditErr
	}
	f.audited = append(f.audited, id)
	return &carbon.AuditReport{RunID: id, Score: 90, Raw: json.RawMessage(`{"run_id":1}`)}, nil
}

func (f *fakeAPI) EnqueueAudit(_ context.Context, id int64) (*carbon.AuditJob, error) {
	return &carbon.AuditJob{OK: true, JobID: "job-1"}, nil
}

func TestFirstRunSelectedByDefault(t *testing.T) {
	api := &fakeAPI{runs: []carbon.CalculationRun{{ID: 9}, {ID: 4}}}
	w := NewWorkflow(api, nil)
	assert.Zero(t, w.Selected())

	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, int64(9), w.Selected())

	w.Select(4)
	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, int64(4), w.Selected())

	api.runs = []carbon.CalculationRun{{ID: 11}}
	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, int64(11), w.Selected())
}

func TestAuditKeepsReport(t *testing.T) {
	api := &fakeAPI{runs: []carbon.CalculationRun{{ID: 1}}}
	w := NewWorkflow(api, nil)
	require.NoError(t, w.Refresh(context.Background()))

	rep, err := w.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, api.audited)
	assert.Same(t, rep, w.Report())

	api.auditErr = errors.New(`{"detail":"Run not found"}`)
	_, err = w.Audit(context.Background())
	require.Error(t, err)
	assert.Same(t, rep, w.Report())
	assert.EqualError(t, w.Status.Err(), `{"detail":"Run not found"}`)
}

func TestAuditWithoutRuns(t *testing.T) {
	w := NewWorkflow(&fakeAPI{}, nil)
	require.NoError(t, w.Refresh(context.Background()))

	_, err := w.Audit(context.Background())
	assert.ErrorIs(t, err, ErrNoRun)
	_, err = w.Enqueue(context.Background())
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestEnqueue(t *testing.T) {
	w := NewWorkflow(&fakeAPI{runs: []carbon.CalculationRun{{ID: 2}}}, nil)
	require.NoError(t, w.Refresh(context.Background()))

	job, err := w.Enqueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.JobID)
	assert.NoError(t, w.Status.Err())
}
