package cmd

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"awsom/aws"
	"awsom/awsconfig"
	"awsom/cache"
	"awsom/config"
	"awsom/logger"
	"awsom/session"
)

// providers builds the remote side of a session. Tests replace it.
var providers = session.AWSProviders()

// app is everything a command needs, built once per invocation.
type app struct {
	settings *config.Settings
	paths    config.Paths
	level    log.Level
	files    *awsconfig.Engine
	manager  *session.Manager
}

func loadApp() (*app, error) {
	settings, err := config.Load(flagSettings)
	if err != nil {
		return nil, err
	}

	level, err := logger.ResolveLevel(settings.LogLevel, flagVerbose)
	if err != nil {
		return nil, err
	}
	logger.Setup(level, os.Stderr)

	paths := settings.Paths()
	log.Debug("Resolved paths", "config", paths.ConfigFile, "credentials", paths.CredentialsFile,
		"tokens", paths.TokenCache, "role_credentials", paths.CredentialCache)

	files := awsconfig.New(awsconfig.Options{
		ConfigPath:      paths.ConfigFile,
		CredentialsPath: paths.CredentialsFile,
		Initialized:     awsconfig.IsInitialized(paths.AWSDir),
	})

	return &app{
		settings: settings,
		paths:    paths,
		level:    level,
		files:    files,
		manager: session.NewManager(session.Options{
			Tokens:      cache.NewTokenCache(paths.TokenCache),
			Credentials: cache.NewCredentialCache(paths.CredentialCache),
			Files:       files,
			Providers:   providers,

			ProfileDefaults: awsconfig.Defaults{
				Region: settings.ProfileDefaults.Region,
				Output: settings.ProfileDefaults.Output,
			},
		}),
	}, nil
}

// instance resolves the session to use. Flags win over settings.
func (a *app) instance() (aws.Instance, error) {
	name, startURL, region := flagSession, flagStartURL, flagRegion
	if name == "" && startURL == "" && region == "" {
		name = a.settings.SSO.SessionName
		startURL = a.settings.SSO.StartURL
		region = a.settings.SSO.Region
	}
	return a.files.ResolveSession(name, startURL, region)
}

// withTimeout bounds ctx by the login timeout. A zero override keeps the
// configured value; no timeout at all leaves ctx unbounded.
func (a *app) withTimeout(ctx context.Context, override time.Duration) (context.Context, context.CancelFunc) {
	timeout := a.settings.Login.Timeout
	if override > 0 {
		timeout = override
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// isInteractive reports whether a terminal is attached for pickers and forms.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}
