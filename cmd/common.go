package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/nav"
	"github.com/sw33tLie/carbonscope/pkg/session"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func outputFormat() string {
	return viper.GetString("output")
}

func apiConfig() carbon.Config {
	return carbon.Config{
		BaseURL: viper.GetString("api.base"),
		Org:     viper.GetString("api.org"),
	}
}

func openStore() (*session.FileStore, error) {
	path, err := tokenFile()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(path)
}

func newSession() (*session.Session, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return session.New(apiConfig(), store)
}

// authorized builds a session and confirms it with the platform. When tab is given the
// confirmed roles must reach it, with the same rule the TUI's tab bar uses.
func authorized(ctx context.Context, tabs ...nav.Tab) (*session.Session, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	id, err := sess.Check(ctx)
	if err != nil {
		if carbon.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w (run 'carbonscope login')", err)
		}
		return nil, err
	}
	utils.Log.Debugf("Authenticated as %s %v", id.Username, id.Roles)
	for _, t := range tabs {
		if err := nav.Require(id.Roles, t); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// render writes v as JSON or YAML, or calls table for the default output.
func render(cmd *cobra.Command, v interface{}, table func(w *tabwriter.Writer)) error {
	out := cmd.OutOrStdout()
	switch outputFormat() {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(out, v)
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	table(w)
	return w.Flush()
}

// writeYAML goes through JSON first so the json tags and custom marshalers decide the
// field names and number formatting. Decoding into a yaml.Node keeps key order.
func writeYAML(out io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles the JSON source left on every node.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func tco2e(q carbon.Quantity) string {
	return q.StringFixed(6)
}
