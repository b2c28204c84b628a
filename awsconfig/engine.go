// Package awsconfig edits the shared AWS config and credentials files. The
// config file is split by marker comments into a user-managed region that is
// never rewritten and a tool-managed region that is rebuilt on every write.
package awsconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	errUtils "awsom/errors"
	"awsom/utils"
)

const (
	// ToolName appears in markers, backups and the first-run marker file.
	ToolName = "awsom"

	dirPerms  = 0o700
	filePerms = 0o600

	lockTimeout    = 10 * time.Second
	lockRetryDelay = 25 * time.Millisecond
)

// Options configures an Engine.
type Options struct {
	ConfigPath      string
	CredentialsPath string

	// Initialized is true once the first-run backup has been taken. Use
	// IsInitialized to derive it from disk.
	Initialized bool

	Now func() time.Time
}

// Engine performs read-modify-write cycles on the shared files. Each cycle
// holds an exclusive advisory lock and replaces files atomically.
type Engine struct {
	configPath      string
	credentialsPath string
	lockPath        string
	markerPath      string
	initialized     bool
	now             func() time.Time
}

// New returns an Engine for the files named in opts.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := filepath.Dir(opts.ConfigPath)
	return &Engine{
		configPath:      opts.ConfigPath,
		credentialsPath: opts.CredentialsPath,
		lockPath:        filepath.Join(dir, "."+ToolName+".lock"),
		markerPath:      MarkerPath(dir),
		initialized:     opts.Initialized,
		now:             now,
	}
}

// MarkerPath is the first-run marker inside the AWS directory.
func MarkerPath(awsDir string) string {
	return filepath.Join(awsDir, "."+ToolName+"-initialized")
}

// IsInitialized reports whether the first-run marker exists in awsDir.
func IsInitialized(awsDir string) bool {
	_, err := os.Stat(MarkerPath(awsDir))
	return err == nil
}

// ConfigPath is the shared config file the engine edits.
func (e *Engine) ConfigPath() string { return e.configPath }

// CredentialsPath is the shared credentials file the engine edits.
func (e *Engine) CredentialsPath() string { return e.credentialsPath }

// withLock runs fn while holding the engine lock.
func (e *Engine) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(e.lockPath), dirPerms); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", errUtils.ErrConfig, filepath.Dir(e.lockPath), err)
	}

	lock := flock.New(e.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: failed to lock %s: %w", errUtils.ErrConfig, e.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: timed out waiting for lock %s", errUtils.ErrConfig, e.lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Debug("Failed to release lock", "path", e.lockPath, "error", err)
		}
	}()

	return fn()
}

// updateFile applies edit to the contents of path and writes the result
// back when it changed. A missing file reads as empty. The first write of an
// uninitialized engine takes the backup and then edits the headed file.
func (e *Engine) updateFile(path string, edit func(text string) (string, error)) error {
	text, err := readFile(path)
	if err != nil {
		return err
	}

	updated, err := edit(text)
	if err != nil {
		return err
	}
	if updated == text {
		return nil
	}
	if !e.initialized {
		if err := e.ensureBackup(); err != nil {
			return err
		}
		return e.updateFile(path, edit)
	}
	return writeFile(path, updated)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: failed to read %s: %w", errUtils.ErrConfig, path, err)
	}
	return string(data), nil
}

func writeFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", errUtils.ErrConfig, filepath.Dir(path), err)
	}
	if err := utils.WriteFileAtomic(path, []byte(text), filePerms); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", errUtils.ErrConfig, path, err)
	}
	log.Debug("Wrote file", "path", path, "bytes", len(text))
	return nil
}

// editConfigRegions migrates markers in, splits the config text and lets
// edit rewrite the tool-managed region. The header and user region are
// passed through unchanged.
func editConfigRegions(text string, edit func(user, tool *document) error) (string, error) {
	header, user, tool := splitRegions(EnsureMarkers(text))
	userDoc := parseDocument(user)
	toolDoc := parseDocument(tool)

	if err := edit(userDoc, toolDoc); err != nil {
		return "", err
	}
	return CleanupEmptyLines(reconstruct(header, user, toolDoc.renderSorted())), nil
}
