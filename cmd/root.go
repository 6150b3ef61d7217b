package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/whttp"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `                 _
  ___ __ _ _ __ | |__   ___  _ __  ___  ___ ___  _ __   ___
 / __/ _' | '__|| '_ \ / _ \| '_ \/ __|/ __/ _ \| '_ \ / _ \
| (_| (_| | |   | |_) | (_) | | | \__ \ (_| (_) | |_) |  __/
 \___\__,_|_|   |_.__/ \___/|_| |_|___/\___\___/| .__/ \___|
                                                |_|
`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carbonscope",
	Short: "Terminal client for the carbon accounting platform.",
	Long: LOGO + `carbonscope lets you record emission activities, run CFO/CFP calculations, audit
results and manage carbon-credit projects from your command line.

Run 'carbonscope tui' for the interactive interface.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := utils.SetLogLevel(viper.GetString("loglevel")); err != nil {
			return err
		}
		if proxy := viper.GetString("api.proxy"); proxy != "" {
			if err := whttp.SetupProxy(proxy); err != nil {
				return err
			}
		}
		switch outputFormat() {
		case outputTable, outputJSON, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q (want table, json or yaml)", outputFormat())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.carbonscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("output", "o", outputTable, "Output format. Available: table, json, yaml")
	rootCmd.PersistentFlags().String("base", "", "Platform base URL (default "+carbon.DefaultBaseURL+")")
	rootCmd.PersistentFlags().String("org", "", "Tenant slug sent as X-Org-Slug (default "+carbon.DefaultOrg+")")

	viper.BindPFlag("api.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("loglevel"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("api.base", rootCmd.PersistentFlags().Lookup("base"))
	viper.BindPFlag("api.org", rootCmd.PersistentFlags().Lookup("org"))
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error reading .env: %s\n", err)
	}

	viper.SetDefault("api.base", carbon.DefaultBaseURL)
	viper.SetDefault("api.org", carbon.DefaultOrg)
	viper.SetDefault("api.proxy", "")
	viper.SetDefault("auth.username", "admin")
	viper.SetDefault("auth.tokenfile", "")
	viper.SetDefault("loglevel", "info")

	home, err := homedir.Dir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.SetConfigName(".carbonscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("carbonscope")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("api.base", "CARBONSCOPE_API_BASE", "VITE_API_BASE")
	viper.BindEnv("api.org", "CARBONSCOPE_API_ORG", "VITE_ORG_SLUG")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			configPath := filepath.Join(home, ".carbonscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating config file: %s\n", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

// tokenFile is auth.tokenfile, or $HOME/.config/carbonscope/token.
func tokenFile() (string, error) {
	if p := viper.GetString("auth.tokenfile"); p != "" {
		return homedir.Expand(p)
	}
	dir, err := utils.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}
