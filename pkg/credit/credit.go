// Package credit edits carbon-credit projects and asks the platform to compute their
// credits. All arithmetic happens server-side.
package credit

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
)

type API interface {
	ListProjects(ctx context.Context) ([]carbon.CreditProject, error)
	UpsertProject(ctx context.Context, p carbon.CreditProject) error
	CalcCredit(ctx context.Context, projectCode string) (*carbon.CreditCalculation, error)
}

// DemoProject is what a fresh project form holds.
func DemoProject() carbon.CreditProject {
	return carbon.CreditProject{
		ProjectCode:   "PJT_DEMO_001",
		Name:          "Demo Project",
		Methodology:   "Demo Methodology",
		BaselineTCO2e: carbon.Quantity{Decimal: decimal.NewFromInt(10000)},
		ProjectTCO2e:  carbon.Quantity{Decimal: decimal.NewFromInt(2000)},
		LeakageTCO2e:  carbon.Quantity{Decimal: decimal.NewFromInt(200)},
		BufferPct:     carbon.Quantity{Decimal: decimal.New(1, -1)},
		Vintage:       "2025",
	}
}

type Workflow struct {
	api      API
	projects *collection.Collection[carbon.CreditProject]

	// Project is the editable form.
	Project carbon.CreditProject
	last    *carbon.CreditCalculation
	Status  collection.Status
}

func NewWorkflow(api API, log collection.Logger) *Workflow {
	return &Workflow{
		api:      api,
		projects: collection.New[carbon.CreditProject]("credit projects", api.ListProjects, log),
		Project:  DemoProject(),
	}
}

func (w *Workflow) Projects() []carbon.CreditProject { return w.projects.Items() }

// Last is the most recent calculation result, or nil.
func (w *Workflow) Last() *carbon.CreditCalculation { return w.last }

func (w *Workflow) Refresh(ctx context.Context) error {
	return w.Status.Record(w.projects.Load(ctx))
}

// Edit loads an existing project into the form.
func (w *Workflow) Edit(code string) bool {
	for _, p := range w.projects.Items() {
		if p.ProjectCode == code {
			w.Project = p
			return true
		}
	}
	return false
}

// Save upserts the form's project and reloads.
func (w *Workflow) Save(ctx context.Context) error {
	return w.SaveProject(ctx, w.Project)
}

// SaveProject upserts p and reloads.
func (w *Workflow) SaveProject(ctx context.Context, p carbon.CreditProject) error {
	return w.Status.Record(w.projects.Mutate(ctx, func(ctx context.Context) error {
		return w.api.UpsertProject(ctx, p)
	}))
}

// Calculate asks for the credits of the form's project code and reloads.
func (w *Workflow) Calculate(ctx context.Context) (*carbon.CreditCalculation, error) {
	res, err := w.CalculateCode(ctx, w.Project.ProjectCode)
	if res != nil {
		w.last = res
	}
	return res, err
}

// CalculateCode asks for the credits of project code and reloads. Last is not updated.
func (w *Workflow) CalculateCode(ctx context.Context, code string) (*carbon.CreditCalculation, error) {
	var res *carbon.CreditCalculation
	err := w.projects.Mutate(ctx, func(ctx context.Context) error {
		var err error
		res, err = w.api.CalcCredit(ctx, code)
		return err
	})
	return res, w.Status.Record(err)
}
