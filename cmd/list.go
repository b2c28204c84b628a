package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"awsom/aws"
	"awsom/session"
	"awsom/styles"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts and roles available to the session",
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
		roles, err := a.manager.ListAccountRoles(cmd.Context(), inst)
		if err != nil {
			return err
		}
		if roles == nil {
			roles = []aws.AccountRole{}
		}

		out := cmd.OutOrStdout()
		return render(out, listOutput, roles, func() error {
			printRoles(out, roles)
			return nil
		})
	},
}

// printRoles writes roles grouped by account, in the order they were listed.
func printRoles(w io.Writer, roles []aws.AccountRole) {
	if len(roles) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("No roles are assigned to this session."))
		return
	}

	groups := session.GroupByAccount(roles)
	order := lo.Uniq(lo.Map(roles, func(r aws.AccountRole, _ int) string {
		return fmt.Sprintf("%s (%s)", r.AccountName, r.AccountID)
	}))
	for _, account := range order {
		fmt.Fprintln(w, styles.HighlightStyle.Render(account))
		names := lo.Map(groups[account], func(r aws.AccountRole, _ int) string { return r.RoleName })
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", formatText, "output format: text, json or yaml")
	RootCmd.AddCommand(listCmd)
}
