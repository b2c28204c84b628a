package cmd

import (
	"errors"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <account> <role> -- <command> [args...]",
	Short: "Run a command with role credentials in its environment",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		creds, region, err := a.roleCredentials(cmd, args[0], args[1])
		if err != nil {
			return err
		}

		child := exec.CommandContext(cmd.Context(), args[2], args[3:]...)
		child.Env = append(os.Environ(), creds.Env(region)...)
		child.Stdin = cmd.InOrStdin()
		child.Stdout = cmd.OutOrStdout()
		child.Stderr = cmd.ErrOrStderr()

		log.Debug("Running command", "command", args[2], "account", args[0], "role", args[1])
		if err := child.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
				return &exitError{code: exitErr.ExitCode()}
			}
			return err
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(execCmd)
}
