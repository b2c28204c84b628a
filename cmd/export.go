package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"awsom/aws"
	errUtils "awsom/errors"
)

var exportFormat string

// processCredentials is the document the AWS SDKs expect from a credential_process.
type processCredentials struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// roleCredentials looks up the role named by account and role and returns
// its credentials together with the region they should be used in.
func (a *app) roleCredentials(cmd *cobra.Command, account, role string) (*aws.RoleCredentials, string, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, "", err
	}
	ar, err := a.manager.FindAccountRole(cmd.Context(), inst, account, role)
	if err != nil {
		return nil, "", err
	}
	creds, err := a.manager.Credentials(cmd.Context(), inst, ar)
	if err != nil {
		return nil, "", err
	}
	defaults, err := a.files.ReadToolDefaults()
	if err != nil {
		return nil, "", err
	}
	return creds, defaults.Region, nil
}

func writeExport(w io.Writer, format string, creds *aws.RoleCredentials, region string) error {
	switch format {
	case "", "env":
		for _, kv := range creds.Env(region) {
			name, value, _ := strings.Cut(kv, "=")
			fmt.Fprintf(w, "export %s=%q\n", name, value)
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(processCredentials{
			Version:         1,
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SessionToken,
			Expiration:      creds.Expiration.UTC().Format(time.RFC3339),
		})
	default:
		return fmt.Errorf("%w: unknown export format %q (want env or json)", errUtils.ErrInvalidConfig, format)
	}
}

var exportCmd = &cobra.Command{
	Use:   "export <account> <role>",
	Short: "Print role credentials as shell exports or credential_process JSON",
	Example: `  eval "$(awsom export prod Admin)"
  credential_process = awsom export prod Admin --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		creds, region, err := a.roleCredentials(cmd, args[0], args[1])
		if err != nil {
			return err
		}
		return writeExport(cmd.OutOrStdout(), exportFormat, creds, region)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "env", "env or json")
	RootCmd.AddCommand(exportCmd)
}
