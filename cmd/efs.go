package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/form"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

var efsCmd = &cobra.Command{
	Use:   "efs",
	Short: "Browse and maintain emission factors",
}

var efsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List emission factors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("q")
		limit, _ := cmd.Flags().GetInt("limit")

		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		efs, err := sess.Client().ListEFs(cmd.Context(), q, limit)
		if err != nil {
			return err
		}
		return render(cmd, efs, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "KEY\tNAME\tSCOPE\tUNIT\tFIELDS\t")
			for _, ef := range efs {
				names := make([]string, 0, len(ef.ActivityIDFields.Fields))
				for _, f := range ef.ActivityIDFields.Fields {
					names = append(names, f.Name)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", ef.Key, ef.Name, ef.Scope, ef.Unit, strings.Join(names, ","))
			}
		})
	},
}

var efsShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show one emission factor and the form it drives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		ef, err := sess.Client().GetEF(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd, ef, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Key:\t%s\n", ef.Key)
			fmt.Fprintf(w, "Name:\t%s\n", ef.Name)
			if ef.Scope != "" {
				fmt.Fprintf(w, "Scope:\t%s\n", ef.Scope)
			}
			if ef.Region != "" {
				fmt.Fprintf(w, "Region:\t%s\n", ef.Region)
			}
			if ef.LifecycleStatus != "" {
				fmt.Fprintf(w, "Status:\t%s\n", ef.LifecycleStatus)
			}
			if f := ef.ActivityIDFields.Formula; f != nil {
				fmt.Fprintf(w, "Formula:\t%s = %s [%s]\n", f.Output, f.Expression, f.Unit)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "FIELD\tLABEL\tTYPE\tUNIT\tDEFAULT\t")
			for _, wd := range form.Widgets(ef.ActivityIDFields.Fields) {
				def := "-"
				if wd.HasDefault {
					def = fmt.Sprint(wd.Default)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", wd.Name, wd.Label, wd.Kind, wd.Unit, def)
			}
		})
	},
}

var efsUpsertCmd = &cobra.Command{
	Use:   "upsert FILE.json",
	Short: "Create or replace an emission factor from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var ef carbon.EmissionFactor
		if err := json.Unmarshal(b, &ef); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		if err := sess.Client().UpsertEF(cmd.Context(), ef); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", ef.Key)
		return nil
	},
}

var efsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Bulk-import emission factors (the platform parses the file)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context(), nav.Activities)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := sess.Client().ImportEFs(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		return render(cmd, res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Imported %d emission factors.\n", res.Imported)
		})
	},
}

func init() {
	efsListCmd.Flags().String("q", "", "Search text")
	efsListCmd.Flags().Int("limit", 0, "Maximum number of results (0 = platform default)")
	efsCmd.AddCommand(efsListCmd, efsShowCmd, efsUpsertCmd, efsImportCmd)
	rootCmd.AddCommand(efsCmd)
}
