package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"awsom/aws"
	"awsom/session"
	"awsom/styles"
)

var statusOutput string

type statusReport struct {
	Sessions []sessionReport         `json:"sessions" yaml:"sessions"`
	Profiles []session.ProfileSession `json:"profiles" yaml:"profiles"`
}

type sessionReport struct {
	Name      string    `json:"name" yaml:"name"`
	StartURL  string    `json:"start_url" yaml:"start_url"`
	Region    string    `json:"region" yaml:"region"`
	LoggedIn  bool      `json:"logged_in" yaml:"logged_in"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sessions and the state of every profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		sessions, err := a.manager.Sessions()
		if err != nil {
			return err
		}
		profiles, err := a.manager.ProfileSessions()
		if err != nil {
			return err
		}

		report := buildStatusReport(sessions, profiles)
		out := cmd.OutOrStdout()
		return render(out, statusOutput, report, func() error {
			printStatus(out, sessions, profiles, time.Now())
			return nil
		})
	},
}

func buildStatusReport(sessions []session.SessionStatus, profiles []session.ProfileSession) statusReport {
	report := statusReport{Profiles: profiles}
	for _, s := range sessions {
		r := sessionReport{Name: s.Session.Name, StartURL: s.Session.StartURL, Region: s.Session.Region, LoggedIn: s.LoggedIn()}
		if r.LoggedIn {
			r.ExpiresAt = s.Token.ExpiresAt
		}
		report.Sessions = append(report.Sessions, r)
	}
	if report.Profiles == nil {
		report.Profiles = []session.ProfileSession{}
	}
	return report
}

func printStatus(w io.Writer, sessions []session.SessionStatus, profiles []session.ProfileSession, now time.Time) {
	fmt.Fprintln(w, styles.TitleStyle.Render("Sessions"))
	if len(sessions) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("No sso-session blocks configured. Add one with `awsom session add`."))
	} else {
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			state := styles.MutedStyle.Render("signed out")
			if s.LoggedIn() {
				state = styles.SuccessStyle.Render("signed in") + " " + styles.MutedStyle.Render(aws.FormatRemaining(s.Token.ExpiresAt.Sub(now)))
			}
			rows = append(rows, []string{s.Session.Name, s.Session.StartURL, s.Session.Region, state})
		}
		fmt.Fprintln(w, newTable([]string{"SESSION", "START URL", "REGION", "STATE"}, rows))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.TitleStyle.Render("Profiles"))
	if len(profiles) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("No profiles in the credentials file."))
		return
	}
	fmt.Fprintln(w, newTable([]string{"PROFILE", "ACCOUNT", "ROLE", "STATUS", "REMAINING"}, profileRows(profiles, now)))
}

func profileRows(profiles []session.ProfileSession, now time.Time) [][]string {
	sorted := append([]session.ProfileSession(nil), profiles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	rows := make([][]string, 0, len(sorted))
	for _, p := range sorted {
		name := p.Name
		if !p.ToolManaged {
			name += styles.MutedStyle.Render(" (user)")
		}
		rows = append(rows, []string{
			name,
			orDash(p.AccountRole.AccountID),
			orDash(p.AccountRole.RoleName),
			styles.Status(string(p.Status)),
			p.Remaining(now),
		})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", formatText, "output format: text, json or yaml")
	RootCmd.AddCommand(statusCmd)
}
