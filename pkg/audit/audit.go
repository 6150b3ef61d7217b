// Package audit runs platform audits against calculation runs.
package audit

import (
	"context"
	"errors"

	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
)

var ErrNoRun = errors.New("no run selected")

type API interface {
	ListRuns(ctx context.Context) ([]carbon.CalculationRun, error)
	RunAudit(ctx context.Context, runID int64) (*carbon.AuditReport, error)
	EnqueueAudit(ctx context.Context, runID int64) (*carbon.AuditJob, error)
}

type Workflow struct {
	api  API
	runs *collection.Collection[carbon.CalculationRun]

	selected int64
	report   *carbon.AuditReport
	Status   collection.Status
}

func NewWorkflow(api API, log collection.Logger) *Workflow {
	return &Workflow{
		api:  api,
		runs: collection.New[carbon.CalculationRun]("runs", api.ListRuns, log),
	}
}

func (w *Workflow) Runs() []carbon.CalculationRun { return w.runs.Items() }

// Refresh reloads the runs. If nothing valid is selected the first run becomes the
// selection.
func (w *Workflow) Refresh(ctx context.Context) error {
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.SelectDefault()
	return nil
}

// Load reloads the runs and leaves the selection alone.
func (w *Workflow) Load(ctx context.Context) error {
	return w.Status.Record(w.runs.Load(ctx))
}

// SelectDefault selects the first run unless the selection is still in the list.
func (w *Workflow) SelectDefault() {
	runs := w.runs.Items()
	if containsRun(runs, w.selected) {
		return
	}
	w.selected = 0
	if len(runs) > 0 {
		w.selected = runs[0].ID
	}
}

func containsRun(runs []carbon.CalculationRun, id int64) bool {
	for _, r := range runs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Selected is the run the next audit targets, 0 if none.
func (w *Workflow) Selected() int64 { return w.selected }

func (w *Workflow) Select(id int64) { w.selected = id }

// Report is the last audit report received, or nil.
func (w *Workflow) Report() *carbon.AuditReport { return w.report }

// Audit audits the selected run and keeps the report verbatim. A failure keeps the
// previous report.
func (w *Workflow) Audit(ctx context.Context) (*carbon.AuditReport, error) {
	rep, err := w.AuditRun(ctx, w.selected)
	if err != nil {
		return nil, err
	}
	w.report = rep
	return rep, nil
}

// AuditRun audits run id without keeping the report.
func (w *Workflow) AuditRun(ctx context.Context, id int64) (*carbon.AuditReport, error) {
	if id == 0 {
		return nil, w.Status.Record(ErrNoRun)
	}
	rep, err := w.api.RunAudit(ctx, id)
	if err != nil {
		return nil, w.Status.Record(err)
	}
	w.Status.Clear()
	return rep, nil
}

// Enqueue schedules an audit of the selected run on the platform's worker.
func (w *Workflow) Enqueue(ctx context.Context) (*carbon.AuditJob, error) {
	return w.EnqueueRun(ctx, w.selected)
}

func (w *Workflow) EnqueueRun(ctx context.Context, id int64) (*carbon.AuditJob, error) {
	if id == 0 {
		return nil, w.Status.Record(ErrNoRun)
	}
	job, err := w.api.EnqueueAudit(ctx, id)
	return job, w.Status.Record(err)
}
