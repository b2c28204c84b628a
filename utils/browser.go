package utils

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	errUtils "awsom/errors"
)

// linuxOpeners are tried in order when not running under WSL.
var linuxOpeners = []string{"xdg-open", "sensible-browser", "x-www-browser", "gnome-open", "kde-open"}

func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	if data, err := os.ReadFile("/proc/version"); err == nil {
		return strings.Contains(strings.ToLower(string(data)), "microsoft") ||
			strings.Contains(strings.ToLower(string(data)), "wsl")
	}

	return false
}

func browserCommand(url string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "linux":
		if isWSL() {
			return exec.Command("cmd.exe", "/c", "start", strings.ReplaceAll(url, "&", "^&")), nil
		}
		for _, name := range linuxOpeners {
			if _, err := exec.LookPath(name); err == nil {
				return exec.Command(name, url), nil
			}
		}
		return nil, fmt.Errorf("none of %s found in PATH", strings.Join(linuxOpeners, ", "))
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// OpenBrowser starts the platform browser on url without waiting for it.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return fmt.Errorf("%w: %w", errUtils.ErrBrowserLaunchFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", errUtils.ErrBrowserLaunchFailed, err)
	}
	// Reap the opener so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// IsHeadless reports whether a browser is unlikely to be reachable: SSH
// sessions, dumb terminals, or Linux without a display server.
func IsHeadless() bool {
	return isHeadless(os.Getenv, runtime.GOOS)
}

func isHeadless(getenv func(string) string, goos string) bool {
	if getenv("SSH_TTY") != "" || getenv("SSH_CONNECTION") != "" {
		return true
	}
	if getenv("TERM") == "dumb" {
		return true
	}
	if goos == "linux" && getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
		return !isWSL()
	}
	return false
}
