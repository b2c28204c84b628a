package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Hand a section you manage yourself over to awsom",
	Long: `Move a profile or sso-session section from the user-managed part of the AWS
config file into the part awsom manages. Once imported, awsom may update or
remove it.`,
}

var importProfileCmd = &cobra.Command{
	Use:   "profile <name>",
	Short: "Import a [profile NAME] section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.files.ImportProfile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %s\n", args[0])
		return nil
	},
}

var importSessionCmd = &cobra.Command{
	Use:   "session <name>",
	Short: "Import an [sso-session NAME] section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.files.ImportSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported sso-session %s\n", args[0])
		return nil
	},
}

func init() {
	importCmd.AddCommand(importProfileCmd, importSessionCmd)
	RootCmd.AddCommand(importCmd)
}
