package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"awsom/aws"
	"awsom/awsconfig"
	"awsom/config"
	"awsom/logger"
	"awsom/styles"
	"awsom/tui"
	"awsom/utils"
)

var (
	loginForce     bool
	loginNoBrowser bool
	loginPlain     bool
	loginTimeout   time.Duration

	logoutCredentials bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with the device flow and cache the token",
	Long: `Sign in to IAM Identity Center. A valid cached token is reused unless --force is given.
Passing --session together with --start-url and --region also saves the sso-session to the AWS config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		inst, err := a.instance()
		if err != nil {
			return err
		}
		if flagSession != "" && flagStartURL != "" && flagRegion != "" {
			if err := a.files.WriteSession(awsconfig.SSOSession{Name: flagSession, StartURL: flagStartURL, Region: flagRegion}); err != nil {
				return err
			}
		}

		ctx, cancel := a.withTimeout(cmd.Context(), loginTimeout)
		defer cancel()

		login := func(ctx context.Context, prompts chan<- *aws.Prompt) (*aws.Token, error) {
			return a.manager.Login(ctx, inst, loginForce, prompts)
		}

		var tok *aws.Token
		if isInteractive() && !loginPlain {
			tok, err = runLoginScreen(ctx, a, inst, login)
		} else {
			tok, err = tui.PlainLogin(ctx, cmd.ErrOrStderr(), login, a.browser())
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in to %s (token valid for %s)\n",
			styles.SuccessStyle.Render("✓"), inst, tok.ExpirationDisplay())
		return nil
	},
}

// runLoginScreen sends logs to a file while the login screen is up.
func runLoginScreen(ctx context.Context, a *app, inst aws.Instance, login tui.LoginFunc) (*aws.Token, error) {
	path, err := config.LogFile()
	if err == nil {
		restore, fileErr := logger.ToFile(path, a.level)
		if fileErr == nil {
			defer restore()
		} else {
			log.Debug("Logging to the terminal", "reason", fileErr)
		}
	}
	return tui.RunLogin(ctx, inst, login, a.browser())
}

// browser returns the launcher to use, or nil when the verification page
// should not be opened automatically.
func (a *app) browser() tui.BrowserFunc {
	if loginNoBrowser || !a.settings.Login.OpenBrowser || utils.IsHeadless() {
		return nil
	}
	return utils.OpenBrowser
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		inst, err := a.instance()
		if err != nil {
			return err
		}
		if err := a.manager.Logout(inst, logoutCredentials); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", inst)
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVarP(&loginForce, "force", "f", false, "sign in again even if a valid token is cached")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "do not open the verification page")
	loginCmd.Flags().BoolVar(&loginPlain, "plain", false, "print the verification code instead of showing the login screen")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 0, "give up after this long (default: wait for the provider)")

	logoutCmd.Flags().BoolVar(&logoutCredentials, "credentials", false, "also clear cached role credentials")

	RootCmd.AddCommand(loginCmd, logoutCmd)
}
