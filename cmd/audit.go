package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/audit"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit calculation runs",
}

func newAuditWorkflow(cmd *cobra.Command, args []string) (*audit.Workflow, error) {
	sess, err := authorized(cmd.Context(), nav.Audit)
	if err != nil {
		return nil, err
	}
	wf := audit.NewWorkflow(sess.Client(), utils.Log)
	if len(args) > 0 {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		wf.Select(id)
		return wf, nil
	}
	if err := wf.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return wf, nil
}

var auditRunCmd = &cobra.Command{
	Use:   "run [RUN_ID]",
	Short: "Audit a run (default: the most recent run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newAuditWorkflow(cmd, args)
		if err != nil {
			return err
		}
		rep, err := wf.Audit(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, rep.Raw, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Run:\t%d\n", rep.RunID)
			fmt.Fprintf(w, "Score:\t%g\n", rep.Score)
			fmt.Fprintf(w, "Summary:\tcritical %d | major %d | minor %d | info %d\n",
				rep.Summary.Critical, rep.Summary.Major, rep.Summary.Minor, rep.Summary.Info)
			fmt.Fprintln(w)
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, rep.Raw, "", "  "); err != nil {
				pretty.Write(rep.Raw)
			}
			fmt.Fprintln(w, pretty.String())
		})
	},
}

var auditEnqueueCmd = &cobra.Command{
	Use:   "enqueue RUN_ID",
	Short: "Queue an audit on the platform's background worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newAuditWorkflow(cmd, args)
		if err != nil {
			return err
		}
		job, err := wf.Enqueue(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, job, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Queued audit of run %d as job %s\n", wf.Selected(), job.JobID)
		})
	},
}

func init() {
	auditCmd.AddCommand(auditRunCmd, auditEnqueueCmd)
	rootCmd.AddCommand(auditCmd)
}
