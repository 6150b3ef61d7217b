package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

func TestSelection(t *testing.T) {
	s := NewSelection()
	for _, id := range []int64{3, 1, 2} {
		assert.True(t, s.Toggle(id))
	}
	assert.False(t, s.Toggle(2))
	assert.False(t, s.Checked(2))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []int64{1, 3}, s.IDs())

	s.Clear()
	assert.Equal(t, []int64{}, s.IDs())
}

// platform is a minimal calc API: runs are created from posted activity ids and listed
// newest first.
type platform struct {
	mu       sync.Mutex
	runs     []map[string]interface{}
	posted   []string
	failRun  bool
	runLists int
}

func (p *platform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/activities":
		w.Write([]byte(`[{"id":1,"name":"a","ef_key":"EF_DIESEL","inputs":{},"scope":"Scope1","period":"2025"},
			{"id":3,"name":"c","ef_key":"EF_DIESEL","inputs":{},"scope":"Scope1","period":"2025"}]`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/calc/runs":
		p.runLists++
		json.NewEncoder(w).Encode(p.runs)
	case r.Method == http.MethodPost && r.URL.Path == "/api/calc/run":
		b, _ := io.ReadAll(r.Body)
		p.posted = append(p.posted, string(b))
		if p.failRun {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"No activities selected"}`))
			return
		}
		id := len(p.runs) + 1
		run := map[string]interface{}{"id": id, "run_type": "CFO", "total_tco2e": 0.2684, "review_status": "DRAFT", "created_at": "2025-06-01T08:00:00"}
		p.runs = append([]map[string]interface{}{run}, p.runs...)
		fmt.Fprintf(w, `{"ok":true,"run_id":%d,"run_type":"CFO","total_kgco2e":268.4,"total_tco2e":0.2684}`, id)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/review"):
		w.Write([]byte(`{"ok":true,"run_id":1,"review_status":"REVIEWED"}`))
		p.runs[0]["review_status"] = "REVIEWED"
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sign"):
		w.Write([]byte(`{"ok":true,"run_id":1,"hash":"abc","signature_b64":"c2ln"}`))
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/verify"):
		w.Write([]byte(`{"ok":true,"algo":"ed25519","hash":"abc","signed_by":"admin","signed_at":"2025-06-01T09:00:00"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/reports/run/1.xlsx":
		w.Write([]byte("PK\x03\x04"))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not Found"}`))
	}
}

func newOrchestrator(t *testing.T, p *platform) *Orchestrator {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return NewOrchestrator(carbon.NewClient(carbon.Config{BaseURL: srv.URL}, carbon.StaticToken("t")), nil)
}

func TestRunPostsSelectionAndReloads(t *testing.T) {
	p := &platform{}
	o := newOrchestrator(t, p)
	require.NoError(t, o.Refresh(context.Background()))
	assert.Len(t, o.Activities(), 2)
	assert.Empty(t, o.Runs())

	o.Selection.Toggle(3)
	o.Selection.Toggle(1)

	res, err := o.Run(context.Background(), carbon.RunCFO)
	require.NoError(t, err)
	require.Len(t, p.posted, 1)
	assert.JSONEq(t, `{"run_type":"CFO","activity_ids":[1,3]}`, p.posted[0])
	assert.Equal(t, int64(1), res.RunID)
	assert.Equal(t, "0.268400", res.TotalTCO2e.StringFixed(6))

	runs := o.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, "0.268400", runs[0].TotalTCO2e.StringFixed(6))
	assert.NoError(t, o.Status.Err())
}

func TestFailedRunKeepsList(t *testing.T) {
	p := &platform{}
	o := newOrchestrator(t, p)
	o.Selection.Toggle(1)
	_, err := o.Run(context.Background(), carbon.RunCFP)
	require.NoError(t, err)
	lists := p.runLists

	p.failRun = true
	_, err = o.Run(context.Background(), carbon.RunCFO)
	require.Error(t, err)
	assert.Equal(t, `{"detail":"No activities selected"}`, o.Status.Err().Error())
	assert.Len(t, o.Runs(), 1)
	assert.Equal(t, lists, p.runLists)
}

func TestReviewSignVerifyExport(t *testing.T) {
	p := &platform{}
	o := newOrchestrator(t, p)
	_, err := o.Run(context.Background(), carbon.RunCFO)
	require.NoError(t, err)

	rev, err := o.Review(context.Background(), 1, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, "REVIEWED", rev.ReviewStatus)
	assert.Equal(t, "REVIEWED", o.Runs()[0].ReviewStatus)

	lists := p.runLists
	sig, err := o.Sign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "abc", sig.Hash)

	chk, err := o.Verify(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, chk.OK)
	assert.Equal(t, "admin", chk.SignedBy)
	assert.Equal(t, lists, p.runLists, "sign and verify leave the run list alone")

	var buf bytes.Buffer
	n, err := o.Export(context.Background(), 1, carbon.FormatXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "PK\x03\x04", buf.String())

	_, err = o.Approve(context.Background(), 1, "")
	require.Error(t, err)
	assert.Equal(t, `{"detail":"Not Found"}`, o.Status.Err().Error())

	assert.True(t, strings.HasSuffix(o.ReportURL(1, carbon.FormatPDF), "/api/reports/run/1.pdf"))
}
