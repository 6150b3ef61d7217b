package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/carbonscope/internal/tui"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/session"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive interface",
	Long: `Start the interactive interface. Logs go to $HOME/.config/carbonscope/tui.log while it
runs. Logging in or out from another terminal is picked up live.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := utils.ConfigDir()
		if err != nil {
			return err
		}
		logs, err := utils.LogToFile(filepath.Join(dir, "tui.log"))
		if err != nil {
			return err
		}
		defer logs.Close()

		store, err := openStore()
		if err != nil {
			return err
		}
		sess, err := session.New(apiConfig(), store)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		watch, err := store.Watch(ctx)
		if err != nil {
			utils.Log.Warnf("Not watching %s: %v", store.Path(), err)
			watch = nil
		}

		utils.Log.Infof("Starting TUI against %s (org %s)", sess.Client().BaseURL(), sess.Client().Org())
		return tui.Run(ctx, tui.Options{
			Session:  sess,
			Watch:    watch,
			Username: viper.GetString("auth.username"),
			Log:      utils.Log,
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
