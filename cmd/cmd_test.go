package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"awsom/aws"
	"awsom/awsconfig"
	errUtils "awsom/errors"
	"awsom/session"
)

type fakeProvider struct {
	credCalls int
}

func (f *fakeProvider) Authorize(ctx context.Context, startURL string, prompts chan<- *aws.Prompt) (*aws.Token, error) {
	return &aws.Token{AccessToken: "token", ExpiresAt: time.Now().Add(8 * time.Hour).UTC().Truncate(time.Second)}, nil
}

func (f *fakeProvider) ListAccounts(ctx context.Context, accessToken string) ([]aws.Account, error) {
	return []aws.Account{{ID: "222222222222", Name: "zeta"}, {ID: "111111111111", Name: "Alpha"}}, nil
}

func (f *fakeProvider) ListAccountRoles(ctx context.Context, accessToken, accountID string) ([]string, error) {
	if accountID == "111111111111" {
		return []string{"ReadOnly", "Admin"}, nil
	}
	return []string{"Admin"}, nil
}

func (f *fakeProvider) GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*aws.RoleCredentials, error) {
	f.credCalls++
	return &aws.RoleCredentials{
		AccessKeyID:     "ASIA" + accountID,
		SecretAccessKey: "secret",
		SessionToken:    "session",
		Expiration:      time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}, nil
}

func (f *fakeProvider) WhoAmI(ctx context.Context, creds *aws.RoleCredentials) (*aws.CallerIdentity, error) {
	return &aws.CallerIdentity{
		Account: strings.TrimPrefix(creds.AccessKeyID, "ASIA"),
		Arn:     "arn:aws:sts::111111111111:assumed-role/Admin/user",
		UserID:  "AROA:user",
	}, nil
}

type cliEnv struct {
	t        *testing.T
	dir      string
	settings string
	provider *fakeProvider
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "aws", "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "aws", "credentials"))
	t.Setenv("AWSOM_FILES_TOKEN_CACHE_DIR", filepath.Join(dir, "sso", "cache"))
	t.Setenv("AWSOM_FILES_CREDENTIAL_CACHE_DIR", filepath.Join(dir, "cli", "cache"))
	for _, name := range []string{"AWS_SSO_START_URL", "AWS_SSO_REGION", "AWS_SSO_SESSION", "AWSOM_LOG_LEVEL"} {
		t.Setenv(name, "")
	}

	settings := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(settings, []byte("log_level = \"error\"\n"), 0o600))

	p := &fakeProvider{}
	saved := providers
	providers = func(ctx context.Context, region string) (session.Provider, error) { return p, nil }
	interactive := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() {
		providers = saved
		isInteractive = interactive
	})

	return &cliEnv{t: t, dir: dir, settings: settings, provider: p}
}

// resetFlags puts every flag back to its default between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	resetFlags(RootCmd)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(append([]string{"--settings=" + e.settings}, args...))
	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "awsom %s: %s", strings.Join(args, " "), out)
	return out
}

func (e *cliEnv) profiles() []session.ProfileSession {
	e.t.Helper()
	var profiles []session.ProfileSession
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("profile", "list", "-o", "json")), &profiles))
	return profiles
}

func (e *cliEnv) loggedIn() {
	e.t.Helper()
	e.mustRun("session", "add", "org", "https://x.awsapps.com/start", "eu-west-1")
	e.mustRun("login")
}

func TestSessionCommands(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("session", "add", "org", "https://x.awsapps.com/start", "eu-west-1")
	assert.Contains(t, out, "Saved sso-session org")

	var sessions []awsconfig.SSOSession
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("session", "list", "-o", "json")), &sessions))
	assert.Equal(t, []awsconfig.SSOSession{
		{Name: "org", StartURL: "https://x.awsapps.com/start", Region: "eu-west-1", Scopes: "sso:account:access"},
	}, sessions)

	_, err := env.run("session", "add", "org", "https://x.awsapps.com/start")
	assert.ErrorIs(t, err, errUtils.ErrInvalidConfig)

	env.mustRun("session", "delete", "org")
	assert.Equal(t, "[]\n", env.mustRun("session", "list", "-o", "json"))
}

func TestLoginListLogout(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("session", "add", "org", "https://x.awsapps.com/start", "eu-west-1")

	_, err := env.run("list")
	require.ErrorIs(t, err, errUtils.ErrNoSessionFound)

	out := env.mustRun("login")
	assert.Contains(t, out, "Signed in to org")

	var roles []aws.AccountRole
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("list", "-o", "json")), &roles))
	assert.Equal(t, []aws.AccountRole{
		{AccountID: "111111111111", AccountName: "Alpha", RoleName: "Admin"},
		{AccountID: "111111111111", AccountName: "Alpha", RoleName: "ReadOnly"},
		{AccountID: "222222222222", AccountName: "zeta", RoleName: "Admin"},
	}, roles)

	text := env.mustRun("list")
	assert.Contains(t, text, "Alpha (111111111111)")
	assert.Contains(t, text, "  ReadOnly")

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("status", "-o", "json")), &report))
	require.Len(t, report.Sessions, 1)
	assert.True(t, report.Sessions[0].LoggedIn)

	assert.Contains(t, env.mustRun("logout"), "Signed out of org")
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("status", "-o", "json")), &report))
	assert.False(t, report.Sessions[0].LoggedIn)
}

func TestProfileLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	env.loggedIn()

	out := env.mustRun("activate", "Alpha", "Admin")
	assert.Contains(t, out, "Alpha-Admin")
	assert.Contains(t, out, "Alpha/Admin")

	profiles := env.profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "Alpha-Admin", profiles[0].Name)
	assert.Equal(t, session.StatusActive, profiles[0].Status)
	assert.True(t, profiles[0].ToolManaged)
	assert.Equal(t, "111111111111", profiles[0].AccountRole.AccountID)

	env.mustRun("profile", "invalidate", "Alpha-Admin")
	assert.Equal(t, session.StatusInactive, env.profiles()[0].Status)

	env.mustRun("profile", "start", "Alpha-Admin")
	assert.Equal(t, session.StatusActive, env.profiles()[0].Status)
	assert.Equal(t, 2, env.provider.credCalls)

	env.mustRun("profile", "rename", "Alpha-Admin", "admin")
	assert.Equal(t, "admin", env.profiles()[0].Name)

	env.mustRun("profile", "delete", "admin")
	assert.Empty(t, env.profiles())
}

func TestActivate_ProfileFlags(t *testing.T) {
	env := newCLIEnv(t)
	env.loggedIn()

	env.mustRun("activate", "222222222222", "Admin", "--profile", "prod", "--profile-region", "eu-north-1")

	engine := awsconfig.New(awsconfig.Options{
		ConfigPath:      filepath.Join(env.dir, "aws", "config"),
		CredentialsPath: filepath.Join(env.dir, "aws", "credentials"),
		Initialized:     true,
	})
	details, err := engine.ProfileDetails("prod")
	require.NoError(t, err)
	assert.Equal(t, "eu-north-1", details.Region)
	assert.Equal(t, "222222222222", details.AccountID)
	assert.Equal(t, "org", details.SSOSession)
}

func TestActivate_NeedsAccountAndRole(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("activate", "Alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "give both an account and a role")
}

func TestExportAndWhoAmI(t *testing.T) {
	env := newCLIEnv(t)
	env.loggedIn()

	out := env.mustRun("export", "Alpha", "Admin")
	assert.Contains(t, out, `export AWS_ACCESS_KEY_ID="ASIA111111111111"`)
	assert.Contains(t, out, `export AWS_REGION="us-east-1"`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("export", "Alpha", "Admin", "--format", "json")), &doc))
	assert.Equal(t, float64(1), doc["Version"])
	assert.Equal(t, "ASIA111111111111", doc["AccessKeyId"])
	assert.Equal(t, 1, env.provider.credCalls)

	env.mustRun("activate", "Alpha", "Admin")
	var id aws.CallerIdentity
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("whoami", "--profile", "Alpha-Admin", "-o", "json")), &id))
	assert.Equal(t, "111111111111", id.Account)

	_, err := env.run("whoami")
	require.Error(t, err)
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	env := newCLIEnv(t)
	env.loggedIn()

	out := env.mustRun("exec", "Alpha", "Admin", "--", "sh", "-c", `printf %s "$AWS_ACCESS_KEY_ID"`)
	assert.Equal(t, "ASIA111111111111", out)

	_, err := env.run("exec", "Alpha", "Admin", "--", "sh", "-c", "exit 3")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exit.code)
}

func TestConsolePrint(t *testing.T) {
	env := newCLIEnv(t)
	env.loggedIn()

	out := env.mustRun("console", "--print")
	assert.Equal(t, aws.DashboardURL("https://x.awsapps.com/start")+"\n", out)

	out = env.mustRun("console", "Alpha", "Admin", "--print")
	assert.Equal(t, aws.ConsoleURL("https://x.awsapps.com/start", "111111111111", "Admin")+"\n", out)
}

func TestDefaults(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("defaults", "set", "--tool", "--default-region", "eu-north-1", "--output", "text")
	env.mustRun("defaults", "set", "--default-region", "ap-south-1")

	out := env.mustRun("defaults", "show")
	assert.Contains(t, out, "eu-north-1")
	assert.Contains(t, out, "ap-south-1")
}

func TestImportProfile(t *testing.T) {
	env := newCLIEnv(t)
	configPath := filepath.Join(env.dir, "aws", "config")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o700))
	require.NoError(t, os.WriteFile(configPath, []byte("[profile mine]\nregion = eu-west-1\n"), 0o600))

	_, err := env.run("import", "profile", "missing")
	require.ErrorIs(t, err, errUtils.ErrProfileNotFound)

	assert.Contains(t, env.mustRun("import", "profile", "mine"), "Imported profile mine")
	assert.Equal(t, "mine", env.profilesInConfig()[0])
}

func (e *cliEnv) profilesInConfig() []string {
	e.t.Helper()
	engine := awsconfig.New(awsconfig.Options{
		ConfigPath:      filepath.Join(e.dir, "aws", "config"),
		CredentialsPath: filepath.Join(e.dir, "aws", "credentials"),
		Initialized:     true,
	})
	managed, err := engine.IsToolManaged("mine")
	require.NoError(e.t, err)
	require.True(e.t, managed)
	names, err := engine.ListProfiles()
	require.NoError(e.t, err)
	return names
}

func TestRender(t *testing.T) {
	v := map[string]string{"name": "org"}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "text", want: "plain"},
		{format: "", want: "plain"},
		{format: "json", want: "{\n  \"name\": \"org\"\n}\n"},
		{format: "yaml", want: "name: org\n"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			err := render(&out, tt.format, v, func() error {
				out.WriteString("plain")
				return nil
			})
			if tt.wantErr {
				require.ErrorIs(t, err, errUtils.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestWriteExport(t *testing.T) {
	creds := &aws.RoleCredentials{
		AccessKeyID:     "ASIAEXAMPLE",
		SecretAccessKey: "se/cret",
		SessionToken:    "tok",
		Expiration:      time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC),
	}

	var env bytes.Buffer
	require.NoError(t, writeExport(&env, "env", creds, ""))
	assert.Equal(t, "export AWS_ACCESS_KEY_ID=\"ASIAEXAMPLE\"\n"+
		"export AWS_SECRET_ACCESS_KEY=\"se/cret\"\n"+
		"export AWS_SESSION_TOKEN=\"tok\"\n", env.String())

	var doc bytes.Buffer
	require.NoError(t, writeExport(&doc, "json", creds, "eu-west-1"))
	var got processCredentials
	require.NoError(t, json.Unmarshal(doc.Bytes(), &got))
	assert.Equal(t, processCredentials{
		Version:         1,
		AccessKeyID:     "ASIAEXAMPLE",
		SecretAccessKey: "se/cret",
		SessionToken:    "tok",
		Expiration:      "2025-03-01T13:00:00Z",
	}, got)

	assert.ErrorIs(t, writeExport(&doc, "ini", creds, ""), errUtils.ErrInvalidConfig)
}

func TestStatusReportYAML(t *testing.T) {
	exp := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	report := buildStatusReport(
		[]session.SessionStatus{
			{Session: awsconfig.SSOSession{Name: "org", StartURL: "https://x.awsapps.com/start", Region: "eu-west-1"}, Token: &aws.Token{ExpiresAt: exp}},
			{Session: awsconfig.SSOSession{Name: "other", StartURL: "https://y.awsapps.com/start", Region: "us-east-1"}},
		},
		nil,
	)

	var out bytes.Buffer
	require.NoError(t, render(&out, formatYAML, report, nil))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	sessions := decoded["sessions"].([]any)
	require.Len(t, sessions, 2)
	assert.Equal(t, true, sessions[0].(map[string]any)["logged_in"])
	assert.Equal(t, false, sessions[1].(map[string]any)["logged_in"])
	assert.Empty(t, decoded["profiles"])
}

func TestProfileRows(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := profileRows([]session.ProfileSession{
		{Name: "zeta", Status: session.StatusInactive, ToolManaged: true},
		{Name: "Alpha", AccountRole: aws.AccountRole{AccountID: "111111111111", RoleName: "Admin"},
			Expiration: now.Add(90 * time.Minute), Status: session.StatusActive, ToolManaged: true},
	}, now)

	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha", rows[0][0])
	assert.Equal(t, "1h 30m", rows[0][4])
	assert.Equal(t, []string{"zeta", "-", "-"}, rows[1][:3])
	assert.Equal(t, "-", rows[1][4])
}
