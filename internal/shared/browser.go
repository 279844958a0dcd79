package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// browserCommand returns the launcher for goos. Linux sessions without a display have none.
func browserCommand(goos, url string, getenv func(string) string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
			return nil, fmt.Errorf("no display available to open %s", url)
		}
		return []string{"xdg-open", url}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser asks the desktop to open url. Callers should print the URL when it fails.
func OpenBrowser(url string) error {
	args, err := browserCommand(runtime.GOOS, url, os.Getenv)
	if err != nil {
		return err
	}

	if err := exec.Command(args[0], args[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
