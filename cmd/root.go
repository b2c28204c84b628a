package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"awsom/logger"
	"awsom/styles"
)

var (
	flagSession  string
	flagStartURL string
	flagRegion   string
	flagSettings string
	flagVerbose  bool
)

// RootCmd is the awsom command.
var RootCmd = &cobra.Command{
	Use:   "awsom",
	Short: "Sign in to AWS IAM Identity Center and manage profiles",
	Long: `awsom signs in to AWS IAM Identity Center with the device flow, caches the
resulting tokens and role credentials, and keeps profiles in ~/.aws/config and
~/.aws/credentials up to date without touching the sections you manage yourself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Settings may carry a level; this covers errors while loading them.
		level, err := logger.ResolveLevel("", flagVerbose)
		if err != nil {
			return err
		}
		logger.Setup(level, os.Stderr)
		return nil
	},
}

func sessionFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("session", pflag.ContinueOnError)
	fs.StringVarP(&flagSession, "session", "s", "", "sso-session name from the AWS config file")
	fs.StringVar(&flagStartURL, "start-url", "", "IAM Identity Center start URL")
	fs.StringVar(&flagRegion, "region", "", "IAM Identity Center region")
	return fs
}

func init() {
	RootCmd.PersistentFlags().AddFlagSet(sessionFlags())
	RootCmd.PersistentFlags().StringVar(&flagSettings, "settings", "", "settings file (default <config dir>/awsom/config.toml)")
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// exitError carries the exit status of a child process.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	err := RootCmd.Execute()
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	log.Debug("Command failed", "error", err)
	fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: "+err.Error()))
	return 1
}
