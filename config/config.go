package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	errUtils "awsom/errors"
)

const (
	appName        = "awsom"
	configFileName = "config.toml"
	logFileName    = "awsom.log"
	envPrefix      = "AWSOM"
)

// SSO holds the session used when no flag selects one.
type SSO struct {
	StartURL    string `mapstructure:"start_url"`
	Region      string `mapstructure:"region"`
	SessionName string `mapstructure:"session_name"`
}

// ProfileDefaults apply to newly activated profiles.
type ProfileDefaults struct {
	Region string `mapstructure:"region"`
	Output string `mapstructure:"output"`
}

type Login struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	OpenBrowser bool          `mapstructure:"open_browser"`
}

// Files overrides where the shared files and caches live. Empty values use
// the AWS CLI locations.
type Files struct {
	Config          string `mapstructure:"config_file"`
	Credentials     string `mapstructure:"credentials_file"`
	TokenCache      string `mapstructure:"token_cache_dir"`
	CredentialCache string `mapstructure:"credential_cache_dir"`
}

// Settings is the tool's own configuration.
type Settings struct {
	SSO             SSO             `mapstructure:"sso"`
	ProfileDefaults ProfileDefaults `mapstructure:"profile_defaults"`
	Login           Login           `mapstructure:"login"`
	Files           Files           `mapstructure:"files"`
	LogLevel        string          `mapstructure:"log_level"`

	// ConfigFile is the settings file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// Paths are the resolved locations of everything the tool touches.
type Paths struct {
	AWSDir          string
	ConfigFile      string
	CredentialsFile string
	TokenCache      string
	CredentialCache string
}

// DefaultConfigFile is <xdg config>/awsom/config.toml.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// LogFile returns the log file used while the terminal UI owns the screen,
// creating its directory.
func LogFile() (string, error) {
	path, err := xdg.CacheFile(filepath.Join(appName, logFileName))
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve log file: %w", errUtils.ErrConfig, err)
	}
	return path, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sso.start_url", "")
	v.SetDefault("sso.region", "")
	v.SetDefault("sso.session_name", "")
	v.SetDefault("profile_defaults.region", "")
	v.SetDefault("profile_defaults.output", "")
	v.SetDefault("login.timeout", time.Duration(0))
	v.SetDefault("login.open_browser", true)
	v.SetDefault("files.config_file", "")
	v.SetDefault("files.credentials_file", "")
	v.SetDefault("files.token_cache_dir", "")
	v.SetDefault("files.credential_cache_dir", "")
	v.SetDefault("log_level", "")
}

// bindEnv maps the AWS variables onto settings keys. The AWSOM_ form of
// each key still works through AutomaticEnv.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"sso.start_url":          {"AWSOM_SSO_START_URL", "AWS_SSO_START_URL"},
		"sso.region":             {"AWSOM_SSO_REGION", "AWS_SSO_REGION"},
		"sso.session_name":       {"AWSOM_SSO_SESSION", "AWS_SSO_SESSION"},
		"files.config_file":      {"AWSOM_CONFIG_FILE", "AWS_CONFIG_FILE"},
		"files.credentials_file": {"AWSOM_CREDENTIALS_FILE", "AWS_SHARED_CREDENTIALS_FILE"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("%w: failed to bind %s: %w", errUtils.ErrConfig, key, err)
		}
	}
	return nil
}

// Load reads the settings file at path, or the default location when path
// is empty. A missing file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile()
	}

	var used string
	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", errUtils.ErrInvalidConfig, path, err)
		}
		used = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		log.Debug("No settings file", "path", path)
	default:
		return nil, fmt.Errorf("%w: settings file %s: %w", errUtils.ErrConfig, path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: failed to decode settings: %w", errUtils.ErrInvalidConfig, err)
	}
	s.ConfigFile = used
	return &s, nil
}

// Resolve fills in the AWS CLI default locations under home.
func (s *Settings) Resolve(home string) Paths {
	awsDir := filepath.Join(home, ".aws")
	p := Paths{
		ConfigFile:      firstNonEmpty(s.Files.Config, filepath.Join(awsDir, "config")),
		CredentialsFile: firstNonEmpty(s.Files.Credentials, filepath.Join(awsDir, "credentials")),
		TokenCache:      firstNonEmpty(s.Files.TokenCache, filepath.Join(awsDir, "sso", "cache")),
		CredentialCache: firstNonEmpty(s.Files.CredentialCache, filepath.Join(awsDir, "cli", "cache")),
	}
	p.AWSDir = filepath.Dir(p.ConfigFile)
	return p
}

// Paths resolves locations relative to the user's home directory.
func (s *Settings) Paths() Paths {
	return s.Resolve(xdg.Home)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
