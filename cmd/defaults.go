package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"awsom/awsconfig"
)

var (
	defaultsTool   bool
	defaultsRegion string
	defaultsFormat string
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Manage the default region and output",
}

var defaultsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the region and output of [default], or of new profiles with --tool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		write, target := a.files.WriteDefaultConfig, "[default]"
		if defaultsTool {
			write, target = a.files.WriteToolDefaults, "new profiles"
		}
		if err := write(defaultsRegion, defaultsFormat); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Defaults for %s updated\n", target)
		return nil
	},
}

var defaultsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the defaults of [default] and of new profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		def, err := a.files.ReadDefaultConfig()
		if err != nil {
			return err
		}
		tool, err := a.files.ReadToolDefaults()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), defaultsTable(def, tool))
		return nil
	},
}

func defaultsTable(def, tool awsconfig.Defaults) fmt.Stringer {
	return newTable([]string{"", "REGION", "OUTPUT"}, [][]string{
		{"[default]", def.Region, def.Output},
		{"new profiles", tool.Region, tool.Output},
	})
}

func init() {
	defaultsSetCmd.Flags().BoolVar(&defaultsTool, "tool", false, "set the defaults applied to newly activated profiles")
	defaultsSetCmd.Flags().StringVar(&defaultsRegion, "default-region", awsconfig.DefaultRegion, "region")
	defaultsSetCmd.Flags().StringVar(&defaultsFormat, "output", awsconfig.DefaultOutput, "output format")

	defaultsCmd.AddCommand(defaultsSetCmd, defaultsShowCmd)
	RootCmd.AddCommand(defaultsCmd)
}
