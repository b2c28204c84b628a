package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"awsom/awsconfig"
	errUtils "awsom/errors"
	"awsom/styles"
	"awsom/tui"
)

var (
	sessionOutput string
	sessionScopes string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sso-session blocks in the AWS config file",
}

var sessionAddCmd = &cobra.Command{
	Use:   "add [name start-url region]",
	Short: "Add or update an sso-session",
	Args:  cobra.RangeArgs(0, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		var s awsconfig.SSOSession
		switch {
		case len(args) == 3:
			s = awsconfig.SSOSession{Name: args[0], StartURL: args[1], Region: args[2]}
		case isInteractive():
			existing, err := a.files.ReadAllSessions()
			if err != nil {
				return err
			}
			defaults := awsconfig.SSOSession{Region: awsconfig.DefaultRegion}
			if len(args) > 0 {
				defaults.Name = args[0]
			}
			if len(args) > 1 {
				defaults.StartURL = args[1]
			}
			var ok bool
			s, ok, err = tui.RunSessionForm(defaults, lo.Map(existing, func(s awsconfig.SSOSession, _ int) string { return s.Name }))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		default:
			return fmt.Errorf("%w: give a name, a start URL and a region", errUtils.ErrInvalidConfig)
		}
		s.Scopes = sessionScopes

		if err := a.files.WriteSession(s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved sso-session %s\n", styles.SuccessStyle.Render("✓"), styles.HighlightStyle.Render(s.Name))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sso-sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		sessions, err := a.files.ReadAllSessions()
		if err != nil {
			return err
		}
		if sessions == nil {
			sessions = []awsconfig.SSOSession{}
		}

		out := cmd.OutOrStdout()
		return render(out, sessionOutput, sessions, func() error {
			if len(sessions) == 0 {
				fmt.Fprintln(out, styles.MutedStyle.Render("No sso-sessions configured."))
				return nil
			}
			rows := lo.Map(sessions, func(s awsconfig.SSOSession, _ int) []string {
				return []string{s.Name, s.StartURL, s.Region}
			})
			fmt.Fprintln(out, newTable([]string{"SESSION", "START URL", "REGION"}, rows))
			return nil
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a managed sso-session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.files.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed sso-session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionAddCmd.Flags().StringVar(&sessionScopes, "scopes", "", "registration scopes, comma separated")
	sessionListCmd.Flags().StringVarP(&sessionOutput, "output", "o", formatText, "output format: text, json or yaml")

	sessionCmd.AddCommand(sessionAddCmd, sessionListCmd, sessionDeleteCmd)
	RootCmd.AddCommand(sessionCmd)
}
