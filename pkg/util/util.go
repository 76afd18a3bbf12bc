package util

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultWorkDir returns the per-user data directory, with an optional
// sub-directory for the named account.
func DefaultWorkDir(name string) string {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
	case "darwin":
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, "Library", "Application Support")
	default:
		if base = os.Getenv("XDG_DATA_HOME"); base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".local", "share")
		}
	}
	dir := filepath.Join(base, "tgflow")
	if name != "" {
		dir = filepath.Join(dir, name)
	}
	return dir
}

// PrepareDir creates dir if missing.
func PrepareDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// IsNumeric reports whether s is a non-empty string of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
