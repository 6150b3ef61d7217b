package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/carbonscope/pkg/nav"
	"github.com/sw33tLie/carbonscope/pkg/session"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the token",
	Long: `Log in to the platform. The token is stored in $HOME/.config/carbonscope/token
(or auth.tokenfile) and reused by every other command until 'carbonscope logout'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" {
			username = viper.GetString("auth.username")
		}
		if password == "" {
			p, err := readPassword(cmd)
			if err != nil {
				return err
			}
			password = p
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		id, err := sess.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		return render(cmd, id, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Logged in as %s\n", id.Username)
			fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(id.Roles, ", "))
			fmt.Fprintf(w, "Tabs:\t%s\n", tabNames(nav.VisibleTabs(id.Roles)))
		})
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	// Piped: first line of stdin.
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		if err := sess.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

type whoami struct {
	Username  string     `json:"username"`
	Roles     []string   `json:"roles"`
	Tabs      []string   `json:"tabs"`
	Org       string     `json:"org"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who the stored token belongs to",
	Long: `Asks the platform who the stored token belongs to. Roles and tabs always come from
the platform; the token's own expiry is shown for information.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := authorized(cmd.Context())
		if err != nil {
			return err
		}
		id := sess.Identity()
		out := whoami{Username: id.Username, Roles: id.Roles, Org: sess.Client().Org()}
		for _, t := range nav.VisibleTabs(id.Roles) {
			out.Tabs = append(out.Tabs, t.String())
		}
		if claims, err := session.PeekClaims(sess.Token()); err == nil && !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			out.ExpiresAt = &exp
		}

		return render(cmd, out, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "User:\t%s\n", out.Username)
			fmt.Fprintf(w, "Org:\t%s\n", out.Org)
			fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(out.Roles, ", "))
			fmt.Fprintf(w, "Tabs:\t%s\n", strings.Join(out.Tabs, ", "))
			if out.ExpiresAt != nil {
				fmt.Fprintf(w, "Token expires:\t%s (in %s)\n", out.ExpiresAt.Local().Format(time.RFC1123), time.Until(*out.ExpiresAt).Round(time.Minute))
			}
		})
	},
}

func tabNames(tabs []nav.Tab) string {
	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username (default auth.username)")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
