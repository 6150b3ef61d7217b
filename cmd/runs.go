package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/nav"
	"github.com/sw33tLie/carbonscope/pkg/runs"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Calculation runs and their reports",
}

func newOrchestrator(cmd *cobra.Command) (*runs.Orchestrator, error) {
	sess, err := authorized(cmd.Context(), nav.Runs)
	if err != nil {
		return nil, err
	}
	return runs.NewOrchestrator(sess.Client(), utils.Log), nil
}

func printRuns(w *tabwriter.Writer, rs []carbon.CalculationRun) {
	fmt.Fprintln(w, "ID\tTYPE\tTOTAL tCO2e\tSTATUS\tCREATED\t")
	for _, r := range rs {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(time.DateTime)
		}
		status := r.ReviewStatus
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", r.ID, r.RunType, tco2e(r.TotalTCO2e), status, created)
	}
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calculation runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		if err := o.Refresh(cmd.Context()); err != nil {
			return err
		}
		rs := o.Runs()
		return render(cmd, rs, func(w *tabwriter.Writer) { printRuns(w, rs) })
	},
}

var runsCreateCmd = &cobra.Command{
	Use:   "create --type CFO|CFP ACTIVITY_ID...",
	Short: "Run a calculation over the given activities",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeStr, _ := cmd.Flags().GetString("type")
		rt, err := carbon.ParseRunType(typeStr)
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return err
			}
			if !o.Selection.Checked(id) {
				o.Selection.Toggle(id)
			}
		}

		res, err := o.Run(cmd.Context(), rt)
		if err != nil {
			return err
		}
		return render(cmd, res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Run created: %d total tCO2e=%s\n\n", res.RunID, tco2e(res.TotalTCO2e))
			printRuns(w, o.Runs())
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export RUN_ID --format pdf|xlsx",
	Short: "Download a run's report",
	Long: `Download a run's report as produced by the platform. Without --out the file is
saved as run-<id>.<format>; use --out - to write to stdout, or --url to only print the
report address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		formatStr, _ := cmd.Flags().GetString("format")
		format, err := carbon.ParseReportFormat(formatStr)
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("out")
		urlOnly, _ := cmd.Flags().GetBool("url")

		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		if urlOnly {
			fmt.Fprintln(cmd.OutOrStdout(), o.ReportURL(id, format))
			return nil
		}

		if outPath == "" {
			outPath = fmt.Sprintf("run-%d.%s", id, format)
		}
		var w io.Writer = cmd.OutOrStdout()
		if outPath != "-" {
			f, err := os.CreateTemp(filepath.Dir(outPath), fmt.Sprintf(".run-%d-*.%s", id, format))
			if err != nil {
				return err
			}
			defer os.Remove(f.Name())
			defer f.Close()
			w = f

			n, err := o.Export(cmd.Context(), id, format, w)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			if err := os.Rename(f.Name(), outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", n, outPath)
			return nil
		}

		_, err = o.Export(cmd.Context(), id, format, w)
		return err
	},
}

func reviewCommand(use, short string, action func(o *runs.Orchestrator, cmd *cobra.Command, id int64, notes string) (*carbon.ReviewResult, error)) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " RUN_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")
			o, err := newOrchestrator(cmd)
			if err != nil {
				return err
			}
			res, err := action(o, cmd, id, notes)
			if err != nil {
				return err
			}
			return render(cmd, res, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Run %d is now %s\n", res.RunID, res.ReviewStatus)
			})
		},
	}
	c.Flags().String("notes", "", "Review notes")
	return c
}

var runsReviewCmd = reviewCommand("review", "Mark a run as reviewed", func(o *runs.Orchestrator, cmd *cobra.Command, id int64, notes string) (*carbon.ReviewResult, error) {
	return o.Review(cmd.Context(), id, notes)
})

var runsApproveCmd = reviewCommand("approve", "Approve a run", func(o *runs.Orchestrator, cmd *cobra.Command, id int64, notes string) (*carbon.ReviewResult, error) {
	return o.Approve(cmd.Context(), id, notes)
})

var runsSignCmd = &cobra.Command{
	Use:   "sign RUN_ID",
	Short: "Have the platform sign a run's report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		sig, err := o.Sign(cmd.Context(), id)
		if err != nil {
			return err
		}
		return render(cmd, sig, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Run:\t%d\n", sig.RunID)
			fmt.Fprintf(w, "Hash:\t%s\n", sig.Hash)
			fmt.Fprintf(w, "Signature:\t%s\n", sig.SignatureB64)
		})
	},
}

var runsVerifyCmd = &cobra.Command{
	Use:   "verify RUN_ID",
	Short: "Check a run's report signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cmd)
		if err != nil {
			return err
		}
		chk, err := o.Verify(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := render(cmd, chk, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Valid:\t%t\n", chk.OK)
			fmt.Fprintf(w, "Algorithm:\t%s\n", chk.Algo)
			fmt.Fprintf(w, "Hash:\t%s\n", chk.Hash)
			fmt.Fprintf(w, "Signed by:\t%s\n", chk.SignedBy)
			fmt.Fprintf(w, "Signed at:\t%s\n", chk.SignedAt)
		}); err != nil {
			return err
		}
		if !chk.OK {
			return fmt.Errorf("signature of run %d does not verify", id)
		}
		return nil
	},
}

func init() {
	runsCreateCmd.Flags().String("type", string(carbon.RunCFO), "Run type: CFO or CFP")
	runsExportCmd.Flags().String("format", string(carbon.FormatPDF), "Report format: pdf or xlsx")
	runsExportCmd.Flags().String("out", "", "Output file (- for stdout)")
	runsExportCmd.Flags().Bool("url", false, "Only print the report URL")

	runsCmd.AddCommand(runsListCmd, runsCreateCmd, runsExportCmd, runsReviewCmd, runsApproveCmd, runsSignCmd, runsVerifyCmd)
	rootCmd.AddCommand(runsCmd)
}
