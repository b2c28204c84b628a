package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"awsom/aws"
	"awsom/utils"
)

var consolePrint bool

var consoleCmd = &cobra.Command{
	Use:   "console [account role]",
	Short: "Open the AWS console for a role, or the access portal",
	Args: accountRoleArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		inst, err := a.instance()
		if err != nil {
			return err
		}

		url := aws.DashboardURL(inst.StartURL)
		if len(args) == 2 {
			role, err := a.manager.FindAccountRole(cmd.Context(), inst, args[0], args[1])
			if err != nil {
				return err
			}
			url = aws.ConsoleURL(inst.StartURL, role.AccountID, role.RoleName)
		}

		if consolePrint || utils.IsHeadless() {
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		}
		if err := utils.OpenBrowser(url); err != nil {
			log.Warn("Could not open a browser", "error", err)
			fmt.Fprintln(cmd.OutOrStdout(), url)
		}
		return nil
	},
}

func init() {
	consoleCmd.Flags().BoolVar(&consolePrint, "print", false, "print the URL instead of opening it")
	RootCmd.AddCommand(consoleCmd)
}
