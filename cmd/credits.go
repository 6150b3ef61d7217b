package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/credit"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Carbon-credit projects",
}

func newCreditWorkflow(cmd *cobra.Command) (*credit.Workflow, error) {
	sess, err := authorized(cmd.Context(), nav.Credits)
	if err != nil {
		return nil, err
	}
	return credit.NewWorkflow(sess.Client(), utils.Log), nil
}

func printProjects(w *tabwriter.Writer, ps []carbon.CreditProject) {
	fmt.Fprintln(w, "CODE\tNAME\tMETHODOLOGY\tBASELINE\tPROJECT\tLEAKAGE\tBUFFER\tVINTAGE\t")
	for _, p := range ps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", p.ProjectCode, p.Name, p.Methodology,
			p.BaselineTCO2e, p.ProjectTCO2e, p.LeakageTCO2e, p.BufferPct, p.Vintage)
	}
}

var creditsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credit projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newCreditWorkflow(cmd)
		if err != nil {
			return err
		}
		if err := wf.Refresh(cmd.Context()); err != nil {
			return err
		}
		ps := wf.Projects()
		return render(cmd, ps, func(w *tabwriter.Writer) { printProjects(w, ps) })
	},
}

var creditsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a credit project",
	Long: `Create or update the project identified by --code. Flags not given keep the demo
defaults (PJT_DEMO_001, baseline 10000, project 2000, leakage 200, buffer 0.1, vintage 2025).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := credit.DemoProject()
		flags := cmd.Flags()
		if v, _ := flags.GetString("code"); v != "" {
			p.ProjectCode = v
		}
		if v, _ := flags.GetString("name"); v != "" {
			p.Name = v
		}
		if v, _ := flags.GetString("methodology"); v != "" {
			p.Methodology = v
		}
		if v, _ := flags.GetString("vintage"); v != "" {
			p.Vintage = v
		}
		for flag, dst := range map[string]*carbon.Quantity{
			"baseline": &p.BaselineTCO2e,
			"project":  &p.ProjectTCO2e,
			"leakage":  &p.LeakageTCO2e,
			"buffer":   &p.BufferPct,
		} {
			v, _ := flags.GetString(flag)
			if v == "" {
				continue
			}
			q, err := carbon.NewQuantity(v)
			if err != nil {
				return fmt.Errorf("--%s: %w", flag, err)
			}
			*dst = q
		}

		wf, err := newCreditWorkflow(cmd)
		if err != nil {
			return err
		}
		wf.Project = p
		if err := wf.Save(cmd.Context()); err != nil {
			return err
		}
		ps := wf.Projects()
		return render(cmd, ps, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Saved %s\n\n", p.ProjectCode)
			printProjects(w, ps)
		})
	},
}

var creditsCalcCmd = &cobra.Command{
	Use:   "calc CODE",
	Short: "Calculate the credits of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newCreditWorkflow(cmd)
		if err != nil {
			return err
		}
		wf.Project.ProjectCode = args[0]
		res, err := wf.Calculate(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Run:\t%d\n", res.RunID)
			fmt.Fprintf(w, "Project:\t%s\n", res.ProjectCode)
			if res.Methodology != "" {
				fmt.Fprintf(w, "Methodology:\t%s\n", res.Methodology)
			}
			fmt.Fprintf(w, "Gross tCO2e:\t%s\n", tco2e(res.GrossTCO2e))
			fmt.Fprintf(w, "Buffer tCO2e:\t%s\n", tco2e(res.BufferTCO2e))
			fmt.Fprintf(w, "Net tCO2e:\t%s\n", tco2e(res.NetTCO2e))
			if res.Vintage != "" {
				fmt.Fprintf(w, "Vintage:\t%s\n", res.Vintage)
			}
		})
	},
}

func init() {
	creditsSaveCmd.Flags().String("code", "", "Project code")
	creditsSaveCmd.Flags().String("name", "", "Project name")
	creditsSaveCmd.Flags().String("methodology", "", "Methodology")
	creditsSaveCmd.Flags().String("baseline", "", "Baseline emissions, tCO2e")
	creditsSaveCmd.Flags().String("project", "", "Project emissions, tCO2e")
	creditsSaveCmd.Flags().String("leakage", "", "Leakage, tCO2e")
	creditsSaveCmd.Flags().String("buffer", "", "Buffer fraction (0.1 = 10%)")
	creditsSaveCmd.Flags().String("vintage", "", "Vintage year")

	creditsCmd.AddCommand(creditsListCmd, creditsSaveCmd, creditsCalcCmd)
	rootCmd.AddCommand(creditsCmd)
}
