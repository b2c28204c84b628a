package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"awsom/aws"
)

var (
	whoamiProfile string
	whoamiOutput  string
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami [account role]",
	Short: "Show the caller identity of a profile or role",
	Args: cobra.MatchAll(cobra.RangeArgs(0, 2), func(cmd *cobra.Command, args []string) error {
		switch {
		case len(args) == 1:
			return errors.New("give both an account and a role")
		case len(args) == 0 && whoamiProfile == "":
			return errors.New("give --profile or an account and a role")
		}
		return nil
	}),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		var (
			creds  *aws.RoleCredentials
			region string
		)
		if len(args) == 2 {
			creds, region, err = a.roleCredentials(cmd, args[0], args[1])
		} else {
			creds, region, err = a.profileCredentials(whoamiProfile)
		}
		if err != nil {
			return err
		}

		id, err := a.manager.WhoAmI(cmd.Context(), creds, region)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		return render(out, whoamiOutput, id, func() error {
			printIdentity(out, id)
			return nil
		})
	},
}

// profileCredentials reads the stored credentials and region of a profile.
func (a *app) profileCredentials(name string) (*aws.RoleCredentials, string, error) {
	creds, err := a.files.Credentials(name)
	if err != nil {
		return nil, "", err
	}
	region := ""
	if details, err := a.files.ProfileDetails(name); err == nil {
		region = details.Region
	}
	if region == "" {
		defaults, err := a.files.ReadToolDefaults()
		if err != nil {
			return nil, "", err
		}
		region = defaults.Region
	}
	return creds, region, nil
}

func printIdentity(w io.Writer, id *aws.CallerIdentity) {
	fmt.Fprintln(w, newTable(nil, [][]string{
		{"Account", id.Account},
		{"ARN", id.Arn},
		{"User ID", id.UserID},
	}))
}

func init() {
	whoamiCmd.Flags().StringVarP(&whoamiProfile, "profile", "p", "", "profile to check")
	whoamiCmd.Flags().StringVarP(&whoamiOutput, "output", "o", formatText, "output format: text, json or yaml")
	RootCmd.AddCommand(whoamiCmd)
}
