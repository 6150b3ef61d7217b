package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/activity"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/form"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

var activitiesCmd = &cobra.Command{
	Use:     "activities",
	Aliases: []string{"act"},
	Short:   "Record and manage emission activities",
}

var activitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		acts, err := sess.Client().ListActivities(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, acts, func(w *tabwriter.Writer) {
			printActivities(w, acts)
		})
	},
}

func printActivities(w *tabwriter.Writer, acts []carbon.Activity) {
	fmt.Fprintln(w, "ID\tNAME\tEF\tSCOPE\tPERIOD\tINPUTS\t")
	for _, a := range acts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n", a.ID, a.Name, a.EFKey, a.Scope, a.Period, formatInputs(a.Inputs))
	}
}

func formatInputs(in map[string]interface{}) string {
	if len(in) == 0 {
		return "{}"
	}
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Sprint(in)
	}
	return string(b)
}

var activitiesCreateCmd = &cobra.Command{
	Use:   "create --ef KEY [--set field=value ...]",
	Short: "Create an activity from an emission factor's form",
	Long: `Create an activity. The fields accepted by --set come from the emission factor's
schema ('carbonscope efs show KEY'); fields with a default start from it, and fields
left empty are not sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		efKey, _ := cmd.Flags().GetString("ef")
		name, _ := cmd.Flags().GetString("name")
		scopeStr, _ := cmd.Flags().GetString("scope")
		period, _ := cmd.Flags().GetString("period")
		sets, _ := cmd.Flags().GetStringArray("set")

		scope, err := carbon.ParseScope(scopeStr)
		if err != nil {
			return err
		}

		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		var opts []form.Option
		if period != "" {
			opts = append(opts, form.WithPeriod(period))
		}
		m := activity.NewManager(sess.Client(), utils.Log, opts...)
		if err := m.Refresh(cmd.Context()); err != nil {
			return err
		}

		f := m.Form
		if err := f.Select(efKey); err != nil {
			return err
		}
		f.Name = name
		f.Scope = scope
		for _, kv := range sets {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("--set %q: want field=value", kv)
			}
			if err := f.Set(k, v); err != nil {
				return err
			}
		}

		payload, err := f.Payload()
		if err != nil {
			return err
		}
		id, err := m.Create(cmd.Context(), f)
		if err != nil {
			return err
		}

		out := struct {
			ID int64 `json:"id"`
			carbon.ActivityInput
		}{id, payload}
		return render(cmd, out, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Created activity #%d\n", id)
			fmt.Fprintf(w, "Name:\t%s\n", payload.Name)
			fmt.Fprintf(w, "EF:\t%s\n", payload.EFKey)
			fmt.Fprintf(w, "Inputs:\t%s\n", formatInputs(payload.Inputs))
			if fm := f.Formula(); fm != nil {
				fmt.Fprintf(w, "Formula:\t%s = %s [%s]\n", fm.Output, fm.Expression, fm.Unit)
			}
		})
	},
}

var activitiesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		m := activity.NewManager(sess.Client(), utils.Log)
		if err := m.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted activity #%d, %d left.\n", id, len(m.Activities()))
		return nil
	},
}

var activitiesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Bulk-import activities (required columns: name, ef_key)",
	Long: `Upload a CSV/Excel file of activities. The platform parses it; required columns are
name and ef_key, optional inputs (JSON), scope and period.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		m := activity.NewManager(sess.Client(), utils.Log)
		res, err := m.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd, res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Imported %d activities.\n\n", res.Imported)
			printActivities(w, m.Activities())
		})
	},
}

func init() {
	activitiesCreateCmd.Flags().String("ef", "", "Emission factor key")
	activitiesCreateCmd.Flags().String("name", "", "Activity name (default: the EF name)")
	activitiesCreateCmd.Flags().String("scope", string(carbon.Scope3), "Scope1, Scope2 or Scope3")
	activitiesCreateCmd.Flags().String("period", "", "Reporting period (default: current year)")
	activitiesCreateCmd.Flags().StringArray("set", nil, "Field value as field=value (repeatable)")
	activitiesCreateCmd.MarkFlagRequired("ef")

	activitiesCmd.AddCommand(activitiesListCmd, activitiesCreateCmd, activitiesDeleteCmd, activitiesImportCmd)
	rootCmd.AddCommand(activitiesCmd)
}
