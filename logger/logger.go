package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	errUtils "awsom/errors"
	"awsom/styles"
)

const (
	DefaultLevel = log.WarnLevel

	// LevelEnv overrides the level chosen by flags.
	LevelEnv = "AWSOM_LOG_LEVEL"
)

// ResolveLevel picks the log level: the environment variable, then
// --verbose, then the configured level, then warn.
func ResolveLevel(configured string, verbose bool) (log.Level, error) {
	if env := strings.TrimSpace(os.Getenv(LevelEnv)); env != "" {
		return parse(env)
	}
	if verbose {
		return log.DebugLevel, nil
	}
	if configured != "" {
		return parse(configured)
	}
	return DefaultLevel, nil
}

func parse(s string) (log.Level, error) {
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return DefaultLevel, fmt.Errorf("%w: invalid log level %q", errUtils.ErrInvalidConfig, s)
	}
	return level, nil
}

func levelStyles() *log.Styles {
	s := log.DefaultStyles()
	badge := func(name string, color lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().SetString(name).Bold(true).Foreground(color)
	}
	s.Levels[log.DebugLevel] = badge("DEBU", styles.Muted)
	s.Levels[log.InfoLevel] = badge("INFO", styles.Secondary)
	s.Levels[log.WarnLevel] = badge("WARN", styles.Warning)
	s.Levels[log.ErrorLevel] = badge("ERRO", styles.Error)
	s.Levels[log.FatalLevel] = badge("FATA", styles.Error)
	return s
}

// Setup builds the default logger writing to w.
func Setup(level log.Level, w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})
	l.SetStyles(levelStyles())
	log.SetDefault(l)
	return l
}

// ToFile points the default logger at path while a full-screen UI owns the
// terminal. The returned function restores the previous writer.
func ToFile(path string, level log.Level) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open log file %s: %w", errUtils.ErrConfig, path, err)
	}

	previous := log.Default()
	l := log.NewWithOptions(f, log.Options{Level: level, ReportTimestamp: true})
	log.SetDefault(l)

	return func() {
		log.SetDefault(previous)
		_ = f.Close()
	}, nil
}
