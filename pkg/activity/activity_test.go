package activity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/form"
)

type fakeAPI struct {
	mu        sync.Mutex
	efs       []carbon.EmissionFactor
	acts      []carbon.Activity
	nextID    int64
	created   []carbon.ActivityInput
	createErr error
	listErr   error
	importErr error
}

func (f *fakeAPI) ListEFs(context.Context, string, int) ([]carbon.EmissionFactor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.efs, nil
}

func (f *fakeAPI) ListActivities(context.Context) ([]carbon.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]carbon.Activity(nil), f.acts...), nil
}

func (f *fakeAPI) CreateActivity(_ context.Context, in carbon.ActivityInput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.created = append(f.created, in)
	f.acts = append(f.acts, carbon.Activity{ID: f.nextID, Name: in.Name, EFKey: in.EFKey, Inputs: in.Inputs, Scope: in.Scope, Period: in.Period})
	return f.nextID, nil
}

func (f *fakeAPI) DeleteActivity(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.acts {
		if a.ID == id {
			f.acts = append(f.acts[:i], f.acts[i+1:]...)
			return nil
		}
	}
	return errors.New(`{"detail":"Not found"}`)
}

func (f *fakeAPI) ImportActivities(_ context.Context, _ string, r io.Reader) (*carbon.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.importErr != nil {
		return nil, f.importErr
	}
	b, _ := io.ReadAll(r)
	n := strings.Count(strings.TrimSpace(string(b)), "\n")
	for i := 0; i < n; i++ {
		f.nextID++
		f.acts = append(f.acts, carbon.Activity{ID: f.nextID, Name: "imported"})
	}
	return &carbon.ImportResult{OK: true, Imported: n}, nil
}

func dieselAPI() *fakeAPI {
	return &fakeAPI{efs: []carbon.EmissionFactor{{
		Key:  "EF_DIESEL",
		Name: "Diesel",
		ActivityIDFields: carbon.ActivityFields{
			Fields: carbon.FieldSet{{Name: "liters", Type: carbon.FieldNumber}},
		},
	}}}
}

func TestRefreshLoadsBoth(t *testing.T) {
	api := dieselAPI()
	api.acts = []carbon.Activity{{ID: 1, Name: "a"}}
	m := NewManager(api, nil)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Len(t, m.Schemas(), 1)
	assert.Len(t, m.Activities(), 1)
	require.NoError(t, m.Form.Select("EF_DIESEL"))
}

func TestCreateClearsFormAfterReload(t *testing.T) {
	api := dieselAPI()
	m := NewManager(api, nil, form.WithPeriod("2025"))
	require.NoError(t, m.Refresh(context.Background()))

	require.NoError(t, m.Form.Select("EF_DIESEL"))
	require.NoError(t, m.Form.Set("liters", "100"))

	id, err := m.Create(context.Background(), m.Form)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.Len(t, api.created, 1)
	assert.Equal(t, map[string]interface{}{"liters": 100.0}, api.created[0].Inputs)
	assert.Equal(t, "2025", api.created[0].Period)

	assert.Len(t, m.Activities(), 1)
	assert.Empty(t, m.Form.Inputs())
	assert.Equal(t, "EF_DIESEL", m.Form.SelectedKey())
	assert.NoError(t, m.Status.Err())
}

func TestCreateFailureKeepsForm(t *testing.T) {
	api := dieselAPI()
	m := NewManager(api, nil)
	require.NoError(t, m.Refresh(context.Background()))
	m.Form.Select("EF_DIESEL")
	m.Form.Set("liters", "3")
	m.Form.Name = "Generator"

	api.createErr = errors.New(`{"detail":"EF not found"}`)
	_, err := m.Create(context.Background(), m.Form)
	require.Error(t, err)
	assert.Equal(t, `{"detail":"EF not found"}`, m.Status.Err().Error())
	assert.Equal(t, "Generator", m.Form.Name)
	assert.Equal(t, "3", m.Form.Raw("liters"))
}

func TestCreateReloadFailureKeepsForm(t *testing.T) {
	api := dieselAPI()
	m := NewManager(api, nil)
	require.NoError(t, m.Refresh(context.Background()))
	m.Form.Select("EF_DIESEL")
	m.Form.Set("liters", "3")

	api.listErr = errors.New("connection refused")
	_, err := m.Create(context.Background(), m.Form)
	require.Error(t, err)
	assert.Equal(t, "3", m.Form.Raw("liters"))
	assert.Len(t, api.created, 1)
}

func TestCreateWithoutSchema(t *testing.T) {
	m := NewManager(dieselAPI(), nil)
	_, err := m.Create(context.Background(), m.Form)
	assert.ErrorIs(t, err, form.ErrNoSchema)
	assert.ErrorIs(t, m.Status.Err(), form.ErrNoSchema)
}

func TestDelete(t *testing.T) {
	api := dieselAPI()
	api.acts = []carbon.Activity{{ID: 1}, {ID: 2}}
	m := NewManager(api, nil)
	require.NoError(t, m.Refresh(context.Background()))

	require.NoError(t, m.Delete(context.Background(), 1))
	assert.Equal(t, []carbon.Activity{{ID: 2}}, m.Activities())

	require.Error(t, m.Delete(context.Background(), 42))
	assert.Error(t, m.Status.Err())
	assert.Len(t, m.Activities(), 1)
}

func TestImportFromFile(t *testing.T) {
	api := dieselAPI()
	m := NewManager(api, nil)
	path := filepath.Join(t.TempDir(), "acts.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,ef_key\na,EF_DIESEL\nb,EF_DIESEL\n"), 0o600))

	res, err := m.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Len(t, m.Activities(), 2)

	_, err = m.Import(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

// An import the platform rejects surfaces the platform's message and leaves the list as
// it was.
func TestImportMissingNameColumn(t *testing.T) {
	var listCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/activities":
			listCalls++
			json.NewEncoder(w).Encode([]carbon.Activity{{ID: 1, Name: "existing", Inputs: map[string]interface{}{}}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/efs":
			w.Write([]byte(`[]`))
		case r.URL.Path == "/api/activities/import":
			file, hdr, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			assert.Equal(t, "bad.csv", hdr.Filename)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Missing required column: name"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := carbon.NewClient(carbon.Config{BaseURL: srv.URL}, carbon.StaticToken("t"))
	m := NewManager(client, nil)
	require.NoError(t, m.Refresh(context.Background()))
	before := m.Activities()

	_, err := m.ImportReader(context.Background(), "bad.csv", strings.NewReader("ef_key,scope\nEF_DIESEL,Scope1\n"))
	require.Error(t, err)
	assert.Equal(t, `{"detail":"Missing required column: name"}`, m.Status.Err().Error())
	assert.Equal(t, before, m.Activities())
	assert.Equal(t, 1, listCalls)
}
