package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"awsom/styles"
)

var profileOutput string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles in the AWS credentials and config files",
}

var profileStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Refresh a profile's credentials from the session and role it records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		act, err := a.manager.StartProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printActivation(cmd, act)
		return nil
	},
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename <from> <to>",
	Short: "Rename a profile in both files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.manager.Rename(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], styles.HighlightStyle.Render(args[1]))
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a profile from both files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
		return nil
	},
}

var profileInvalidateCmd = &cobra.Command{
	Use:   "invalidate <name>",
	Short: "Replace a profile's credentials with placeholders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.manager.Invalidate(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invalidated profile %s\n", args[0])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles with their credential status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		profiles, err := a.manager.ProfileSessions()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return render(out, profileOutput, buildStatusReport(nil, profiles).Profiles, func() error {
			if len(profiles) == 0 {
				fmt.Fprintln(out, styles.MutedStyle.Render("No profiles in the credentials file."))
				return nil
			}
			fmt.Fprintln(out, newTable([]string{"PROFILE", "ACCOUNT", "ROLE", "STATUS", "REMAINING"}, profileRows(profiles, time.Now())))
			return nil
		})
	},
}

func init() {
	profileListCmd.Flags().StringVarP(&profileOutput, "output", "o", formatText, "output format: text, json or yaml")

	profileCmd.AddCommand(profileStartCmd, profileRenameCmd, profileDeleteCmd, profileInvalidateCmd, profileListCmd)
	RootCmd.AddCommand(profileCmd)
}
