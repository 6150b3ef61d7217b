// Package activity manages the activity list and the EF schemas it is entered against.
package activity

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"github.com/sw33tLie/carbonscope/pkg/form"
	"golang.org/x/sync/errgroup"
)

// API is the part of the platform client the activity page uses.
type API interface {
	ListEFs(ctx context.Context, q string, limit int) ([]carbon.EmissionFactor, error)
	ListActivities(ctx context.Context) ([]carbon.Activity, error)
	CreateActivity(ctx context.Context, in carbon.ActivityInput) (int64, error)
	DeleteActivity(ctx context.Context, id int64) error
	ImportActivities(ctx context.Context, filename string, r io.Reader) (*carbon.ImportResult, error)
}

type Manager struct {
	api    API
	efs    *collection.Collection[carbon.EmissionFactor]
	acts   *collection.Collection[carbon.Activity]
	log    collection.Logger
	Form   *form.Form
	Status collection.Status
}

func NewManager(api API, log collection.Logger, opts ...form.Option) *Manager {
	m := &Manager{api: api, log: log, Form: form.New(nil, opts...)}
	m.efs = collection.New[carbon.EmissionFactor]("emission factors", func(ctx context.Context) ([]carbon.EmissionFactor, error) {
		return api.ListEFs(ctx, "", 0)
	}, log)
	m.acts = collection.New[carbon.Activity]("activities", api.ListActivities, log)
	return m
}

func (m *Manager) Schemas() []carbon.EmissionFactor { return m.efs.Items() }
func (m *Manager) Activities() []carbon.Activity    { return m.acts.Items() }

// Refresh loads schemas and activities side by side and hands the schemas to Form. A
// failure leaves the list that failed at its previous state.
func (m *Manager) Refresh(ctx context.Context) error {
	err := m.Load(ctx)
	m.Form.SetSchemas(m.efs.Items())
	return err
}

// Load is Refresh without touching Form, for callers that run it off the goroutine owning
// the form.
func (m *Manager) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return m.efs.Load(ctx) })
	g.Go(func() error { return m.acts.Load(ctx) })
	return m.Status.Record(g.Wait())
}

// Create submits f and reloads the activity list. f is cleared only once the platform
// accepted the activity and the reload confirmed it; any failure leaves f as it was.
func (m *Manager) Create(ctx context.Context, f *form.Form) (int64, error) {
	payload, err := f.Payload()
	if err != nil {
		return 0, m.Status.Record(err)
	}
	id, err := m.Submit(ctx, payload)
	if err != nil {
		return id, err
	}
	f.Clear()
	return id, nil
}

// Submit creates the activity and reloads the list. The error covers both steps.
func (m *Manager) Submit(ctx context.Context, payload carbon.ActivityInput) (int64, error) {
	var id int64
	err := m.acts.Mutate(ctx, func(ctx context.Context) error {
		var err error
		id, err = m.api.CreateActivity(ctx, payload)
		return err
	})
	return id, m.Status.Record(err)
}

// Delete removes one activity and reloads.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	return m.Status.Record(m.acts.Mutate(ctx, func(ctx context.Context) error {
		return m.api.DeleteActivity(ctx, id)
	}))
}

// Import uploads the file at path unparsed and reloads on success.
func (m *Manager) Import(ctx context.Context, path string) (*carbon.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, m.Status.Record(fmt.Errorf("opening import file: %w", err))
	}
	defer f.Close()
	return m.ImportReader(ctx, filepath.Base(path), f)
}

func (m *Manager) ImportReader(ctx context.Context, filename string, r io.Reader) (*carbon.ImportResult, error) {
	var res *carbon.ImportResult
	err := m.acts.Mutate(ctx, func(ctx context.Context) error {
		var err error
		res, err = m.api.ImportActivities(ctx, filename, r)
		return err
	})
	if err != nil {
		return res, m.Status.Record(err)
	}
	m.Status.Clear()
	if m.log != nil && res != nil {
		m.log.Infof("Imported %d activities from %s", res.Imported, filename)
	}
	return res, nil
}
