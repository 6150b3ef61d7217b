package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

// withConfig sets viper keys for one test and puts the previous values back afterwards.
func withConfig(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		prev := viper.GetString(k)
		viper.Set(k, v)
		k := k
		t.Cleanup(func() { viper.Set(k, prev) })
	}
}

// tokenOf maps a bearer token to the roles /api/auth/me reports for it.
var tokenOf = map[string][]string{
	"tok-calc":    {nav.RoleCalculator},
	"tok-auditor": {nav.RoleAuditor},
	"tok-admin":   {nav.RoleAdmin},
}

func platformHandler(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	roles, ok := tokenOf[tok]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid token"}`))
		return
	}
	switch {
	case r.URL.Path == "/api/auth/me":
		w.Write([]byte(`{"username":"alice","roles":["` + strings.Join(roles, `","`) + `"]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/activities/import":
		w.Write([]byte(`{"ok":true,"imported":3}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/activities":
		w.Write([]byte(`[
		  {"id":5,"name":"zeta","ef_key":"EF_DIESEL","inputs":{},"scope":"Scope1","period":"2025"},
		  {"id":2,"name":"alpha","ef_key":"EF_DIESEL","inputs":{},"scope":"Scope1","period":"2025"},
		  {"id":9,"name":"mid","ef_key":"EF_DIESEL","inputs":{},"scope":"Scope1","period":"2025"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// loggedInAs points the config at a fake platform and saves token as the held credential.
// An empty token leaves no token file.
func loggedInAs(t *testing.T, token string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(platformHandler))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "token")
	if token != "" {
		if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
			t.Fatalf("writing token: %v", err)
		}
	}
	withConfig(t, map[string]string{"api.base": srv.URL, "auth.tokenfile": path, "output": outputTable})
	return path
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"7.5", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriteYAMLKeepsKeyOrder(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{
			name: "dashboard counts in platform order",
			in:   carbon.Dashboard{Counts: []carbon.Count{{Label: "runs", Value: "2"}, {Label: "efs", Value: "12"}, {Label: "avg", Value: "0.5"}}},
			want: "counts:\n  runs: 2\n  efs: 12\n  avg: 0.5\n",
		},
		{
			name: "struct fields in declaration order",
			in:   carbon.ImportResult{OK: true, Imported: 3},
			want: "ok: true\nimported: 3\n",
		},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeYAML(&buf, tt.in); err != nil {
			t.Fatalf("%s: writeYAML: %v", tt.name, err)
		}
		if buf.String() != tt.want {
			t.Errorf("%s:\nwant: %q\ngot:  %q", tt.name, tt.want, buf.String())
		}
	}
}

func TestAuthorizedChecksRoles(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		tab      nav.Tab
		wantRole bool
		wantAuth bool
		wantNone bool
	}{
		{name: "calculator on activities", token: "tok-calc", tab: nav.Activities},
		{name: "calculator on audit", token: "tok-calc", tab: nav.Audit, wantRole: true},
		{name: "auditor on audit", token: "tok-auditor", tab: nav.Audit},
		{name: "auditor on credits", token: "tok-auditor", tab: nav.Credits, wantRole: true},
		{name: "admin everywhere", token: "tok-admin", tab: nav.Credits},
		{name: "rejected token", token: "tok-expired", tab: nav.Dashboard, wantAuth: true},
		{name: "no token", token: "", tab: nav.Dashboard, wantNone: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loggedInAs(t, tt.token)
			sess, err := authorized(context.Background(), tt.tab)

			var roleErr *nav.RoleError
			switch {
			case tt.wantRole:
				if !errors.As(err, &roleErr) {
					t.Fatalf("want a role error, got %v", err)
				}
				if roleErr.Tab != tt.tab {
					t.Errorf("role error for %s, want %s", roleErr.Tab, tt.tab)
				}
			case tt.wantAuth:
				if !carbon.IsAuthFailure(err) || !strings.Contains(err.Error(), "carbonscope login") {
					t.Fatalf("want an auth failure pointing at login, got %v", err)
				}
			case tt.wantNone:
				if !errors.Is(err, carbon.ErrNoToken) {
					t.Fatalf("want ErrNoToken, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("authorized: %v", err)
				}
				if sess.Identity().Username != "alice" {
					t.Errorf("identity = %+v", sess.Identity())
				}
			}
		})
	}
}

func TestActivitiesImportPrintsServerOrder(t *testing.T) {
	loggedInAs(t, "tok-calc")
	file := filepath.Join(t.TempDir(), "acts.csv")
	if err := os.WriteFile(file, []byte("name,ef_key\nzeta,EF_DIESEL\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := activitiesImportCmd
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })

	if err := cmd.RunE(cmd, []string{file}); err != nil {
		t.Fatalf("import: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Imported 3 activities.") {
		t.Errorf("missing summary in:\n%s", got)
	}
	zeta, alpha, mid := strings.Index(got, "zeta"), strings.Index(got, "alpha"), strings.Index(got, "mid")
	if zeta < 0 || !(zeta < alpha && alpha < mid) {
		t.Errorf("activities not in the order the platform sent them:\n%s", got)
	}
}
