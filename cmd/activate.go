package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"awsom/aws"
	errUtils "awsom/errors"
	"awsom/session"
	"awsom/styles"
	"awsom/tui"
)

var activateOpts session.ActivateOptions

func profileFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("profile", pflag.ContinueOnError)
	fs.StringVarP(&activateOpts.Profile, "profile", "p", "", "profile name (default: the existing profile for the role, else <account>-<role>)")
	fs.StringVar(&activateOpts.Region, "profile-region", "", "region written to the profile")
	fs.StringVar(&activateOpts.Output, "profile-output", "", "output format written to the profile")
	return fs
}

// errPickerCancelled is returned when the role picker is closed without a choice.
var errPickerCancelled = errors.New("no role selected")

// selectRole resolves the account role named by args, or asks for one when
// args is empty and a terminal is attached.
func (a *app) selectRole(ctx context.Context, inst aws.Instance, args []string) (aws.AccountRole, error) {
	if len(args) == 2 {
		return a.manager.FindAccountRole(ctx, inst, args[0], args[1])
	}
	if !isInteractive() {
		return aws.AccountRole{}, fmt.Errorf("%w: give an account and a role", errUtils.ErrInvalidConfig)
	}

	roles, err := a.manager.ListAccountRoles(ctx, inst)
	if err != nil {
		return aws.AccountRole{}, err
	}
	if len(roles) == 0 {
		return aws.AccountRole{}, fmt.Errorf("%w: no roles are assigned to %s", errUtils.ErrAccountRoleNotFound, inst)
	}
	role, ok, err := tui.PickAccountRole("Select a role", roles)
	if err != nil {
		return aws.AccountRole{}, err
	}
	if !ok {
		return aws.AccountRole{}, errPickerCancelled
	}
	return role, nil
}

// accountRoleArgs accepts either nothing or an account and a role.
var accountRoleArgs = cobra.MatchAll(cobra.RangeArgs(0, 2), func(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return errors.New("give both an account and a role")
	}
	return nil
})

var activateCmd = &cobra.Command{
	Use:   "activate [account role]",
	Short: "Write role credentials to a profile",
	Long: `Fetch credentials for a role and write them to a tool-managed profile in
~/.aws/credentials, along with its sso keys in ~/.aws/config. Without arguments a
role picker is shown.`,
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
		role, err := a.selectRole(cmd.Context(), inst, args)
		if err != nil {
			return err
		}

		act, err := a.manager.Activate(cmd.Context(), inst, role, activateOpts)
		if err != nil {
			return err
		}
		printActivation(cmd, act)
		return nil
	},
}

func printActivation(cmd *cobra.Command, act *session.Activation) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s Profile %s now holds %s in %s (valid for %s)\n",
		styles.SuccessStyle.Render("✓"),
		styles.HighlightStyle.Render(act.Profile),
		act.Role.DisplayName(),
		act.Region,
		act.Credentials.ExpirationDisplay())
}

func init() {
	activateCmd.Flags().AddFlagSet(profileFlags())
	RootCmd.AddCommand(activateCmd)
}
