package awsconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	errUtils "awsom/errors"
	"awsom/utils"
)

// BackupPath is where the pre-existing copy of path is kept.
func BackupPath(path string) string {
	return filepath.Join(filepath.Dir(path), filepath.Base(path)+"-before-"+ToolName+".bak")
}

func managedHeader(path string) string {
	return fmt.Sprintf("# This file is managed by %s. Sections below the %s marker are rewritten automatically.\n"+
		"# Original backup: %s (created on first run)\n",
		ToolName, ToolName, filepath.Base(BackupPath(path)))
}

// ensureBackup copies both shared files aside, adds a header comment pointing
// at the copy and records the marker file. It runs just before the first
// write that changes a shared file and does nothing once the engine is
// initialized.
func (e *Engine) ensureBackup() error {
	if e.initialized {
		return nil
	}

	for _, path := range []string{e.configPath, e.credentialsPath} {
		if err := backupFile(path); err != nil {
			return err
		}
	}

	stamp := e.now().UTC().Format(time.RFC3339) + "\n"
	if err := writeFile(e.markerPath, stamp); err != nil {
		return err
	}

	e.initialized = true
	return nil
}

func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: failed to read %s: %w", errUtils.ErrConfig, path, err)
	}

	backup := BackupPath(path)
	if _, err := os.Stat(backup); err == nil {
		log.Debug("Backup already present", "path", backup)
	} else {
		if err := utils.WriteFileAtomic(backup, data, filePerms); err != nil {
			return fmt.Errorf("%w: failed to write backup %s: %w", errUtils.ErrConfig, backup, err)
		}
		log.Info("Backed up file before first write", "path", path, "backup", backup)
	}

	header := managedHeader(path)
	if strings.HasPrefix(string(data), header) {
		return nil
	}
	return writeFile(path, header+"\n"+string(data))
}
