package credit

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
	projects []carbon.CreditProject
	calcErr  error
	lists    int
}

func (f *fakeAPI) ListProjects(context.Context) ([]carbon.CreditProject, error) {
	f.lists++
	return append([]carbon.CreditProject(nil), f.projects...), nil
}

func (f *fakeAPI) UpsertProject(_ context.Context, p carbon.CreditProject) error {
	for i := range f.projects {
		if f.projects[i].ProjectCode == p.ProjectCode {
			f.projects[i] = p
			return nil
		}
	}
	f.projects = append(f.projects, p)
	return nil
}

func (f *fakeAPI) CalcCredit(_ context.Context, code string) (*carbon.CreditCalculation, error) {
	if f.calcErr != nil {
		return nil, f.calcErr
	}
	net, _ := carbon.NewQuantity("7020")
	return &carbon.CreditCalculation{RunID: 5, ProjectCode: code, NetTCO2e: net}, nil
}

func TestDemoProjectWire(t *testing.T) {
	b, err := json.Marshal(DemoProject())
	require.NoError(t, err)
	assert.JSONEq(t, `{"project_code":"PJT_DEMO_001","name":"Demo Project","methodology":"Demo Methodology",
		"baseline_tco2e":10000,"project_tco2e":2000,"leakage_tco2e":200,"buffer_pct":0.1,"vintage":"2025"}`, string(b))
}

func TestSaveUpsertsAndReloads(t *testing.T) {
	api := &fakeAPI{}
	w := NewWorkflow(api, nil)

	require.NoError(t, w.Save(context.Background()))
	require.NoError(t, w.Save(context.Background()))
	assert.Len(t, w.Projects(), 1)
	assert.Equal(t, 2, api.lists)

	w.Project.Name = "Renamed"
	require.NoError(t, w.Save(context.Background()))
	assert.Equal(t, "Renamed", w.Projects()[0].Name)
}

func TestCalculate(t *testing.T) {
	api := &fakeAPI{}
	w := NewWorkflow(api, nil)

	res, err := w.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PJT_DEMO_001", res.ProjectCode)
	assert.Equal(t, "7020.000000", res.NetTCO2e.StringFixed(6))
	assert.Same(t, res, w.Last())
	assert.Equal(t, 1, api.lists)

	api.calcErr = errors.New(`{"detail":"Project not found"}`)
	_, err = w.Calculate(context.Background())
	require.Error(t, err)
	assert.Same(t, res, w.Last())
	assert.EqualError(t, w.Status.Err(), `{"detail":"Project not found"}`)
}

func TestEdit(t *testing.T) {
	api := &fakeAPI{projects: []carbon.CreditProject{{ProjectCode: "P2", Name: "Two"}}}
	w := NewWorkflow(api, nil)
	require.NoError(t, w.Refresh(context.Background()))

	assert.True(t, w.Edit("P2"))
	assert.Equal(t, "Two", w.Project.Name)
	assert.False(t, w.Edit("nope"))
}
