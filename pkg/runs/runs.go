// Package runs drives calculation runs: pick activities, submit a run, and work with the
// resulting reports.
package runs

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"golang.org/x/sync/errgroup"
)

// Selection is the set of checked activity ids. Unchecked ids are not stored.
type Selection struct {
	checked map[int64]bool
}

func NewSelection(ids ...int64) *Selection {
	s := &Selection{checked: map[int64]bool{}}
	for _, id := range ids {
		s.checked[id] = true
	}
	return s
}

// Toggle flips id and reports whether it is now checked.
func (s *Selection) Toggle(id int64) bool {
	if s.checked[id] {
		delete(s.checked, id)
		return false
	}
	s.checked[id] = true
	return true
}

func (s *Selection) Checked(id int64) bool { return s.checked[id] }

func (s *Selection) Len() int { return len(s.checked) }

// IDs returns the checked ids in ascending order.
func (s *Selection) IDs() []int64 {
	ids := make([]int64, 0, len(s.checked))
	for id := range s.checked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Selection) Clear() { s.checked = map[int64]bool{} }

// API is the part of the platform client the runs page uses.
type API interface {
	ListActivities(ctx context.Context) ([]carbon.Activity, error)
	ListRuns(ctx context.Context) ([]carbon.CalculationRun, error)
	CreateRun(ctx context.Context, req carbon.RunRequest) (*carbon.RunResult, error)
	ReviewRun(ctx context.Context, id int64, notes string) (*carbon.ReviewResult, error)
	ApproveRun(ctx context.Context, id int64, notes string) (*carbon.ReviewResult, error)
	SignRun(ctx context.Context, id int64) (*carbon.Signature, error)
	VerifyRun(ctx context.Context, id int64) (*carbon.SignatureCheck, error)
	ReportURL(id int64, format carbon.ReportFormat) string
	ExportReport(ctx context.Context, id int64, format carbon.ReportFormat, w io.Writer) (int64, error)
}

type Orchestrator struct {
	api        API
	activities *collection.Collection[carbon.Activity]
	runs       *collection.Collection[carbon.CalculationRun]

	Selection *Selection
	RunType   carbon.RunType
	Status    collection.Status
}

func NewOrchestrator(api API, log collection.Logger) *Orchestrator {
	return &Orchestrator{
		api:        api,
		activities: collection.New[carbon.Activity]("activities", api.ListActivities, log),
		runs:       collection.New[carbon.CalculationRun]("runs", api.ListRuns, log),
		Selection:  NewSelection(),
		RunType:    carbon.RunCFO,
	}
}

func (o *Orchestrator) Activities() []carbon.Activity { return o.activities.Items() }

func (o *Orchestrator) Runs() []carbon.CalculationRun { return o.runs.Items() }

// Refresh loads activities and runs side by side.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return o.activities.Load(ctx) })
	g.Go(func() error { return o.runs.Load(ctx) })
	return o.Status.Record(g.Wait())
}

// Run submits the checked activities as a run of type rt and reloads the run list.
// On failure the run list stays as it was last loaded.
func (o *Orchestrator) Run(ctx context.Context, rt carbon.RunType) (*carbon.RunResult, error) {
	return o.RunActivities(ctx, rt, o.Selection.IDs())
}

// RunActivities is Run over an explicit id list.
func (o *Orchestrator) RunActivities(ctx context.Context, rt carbon.RunType, ids []int64) (*carbon.RunResult, error) {
	req := carbon.RunRequest{RunType: rt, ActivityIDs: ids}
	var res *carbon.RunResult
	err := o.runs.Mutate(ctx, func(ctx context.Context) error {
		var err error
		res, err = o.api.CreateRun(ctx, req)
		return err
	})
	if res == nil && err == nil {
		err = fmt.Errorf("platform returned no run")
	}
	return res, o.Status.Record(err)
}

// Review marks a run as reviewed.
func (o *Orchestrator) Review(ctx context.Context, id int64, notes string) (*carbon.ReviewResult, error) {
	var res *carbon.ReviewResult
	err := o.runs.Mutate(ctx, func(ctx context.Context) error {
		var err error
		res, err = o.api.ReviewRun(ctx, id, notes)
		return err
	})
	return res, o.Status.Record(err)
}

// Approve marks a run as approved.
func (o *Orchestrator) Approve(ctx context.Context, id int64, notes string) (*carbon.ReviewResult, error) {
	var res *carbon.ReviewResult
	err := o.runs.Mutate(ctx, func(ctx context.Context) error {
		var err error
		res, err = o.api.ApproveRun(ctx, id, notes)
		return err
	})
	return res, o.Status.Record(err)
}

// Sign has the platform sign the run's report. The run list does not change, so it is
// not reloaded.
func (o *Orchestrator) Sign(ctx context.Context, id int64) (*carbon.Signature, error) {
	res, err := o.api.SignRun(ctx, id)
	return res, o.Status.Record(err)
}

func (o *Orchestrator) Verify(ctx context.Context, id int64) (*carbon.SignatureCheck, error) {
	res, err := o.api.VerifyRun(ctx, id)
	return res, o.Status.Record(err)
}

func (o *Orchestrator) ReportURL(id int64, format carbon.ReportFormat) string {
	return o.api.ReportURL(id, format)
}

// Export writes the report artifact for run id to w without looking at it.
func (o *Orchestrator) Export(ctx context.Context, id int64, format carbon.ReportFormat, w io.Writer) (int64, error) {
	n, err := o.api.ExportReport(ctx, id, format, w)
	return n, o.Status.Record(err)
}
