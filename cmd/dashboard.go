package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/pkg/nav"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the summary counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context(), nav.Dashboard)
		if err != nil {
			return err
		}
		d, err := sess.Client().Dashboard(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, d, func(w *tabwriter.Writer) {
			if len(d.Counts) == 0 {
				fmt.Fprintln(w, "Nothing to show yet.")
				return
			}
			fmt.Fprintln(w, "WHAT\tCOUNT\t")
			for _, c := range d.Counts {
				fmt.Fprintf(w, "%s\t%s\t\n", c.Label, c.Value)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
