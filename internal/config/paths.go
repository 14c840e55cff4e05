package config

import (
	"os"
	"path/filepath"
	"strings"
)

// File names, relative to the working directory unless overridden.
const (
	DefaultConfigPath      = "dbx-xfr.toml"
	DefaultCredentialsPath = "dbx-xfr.cfg"
	DotEnvPath             = ".env"
)

// expandTilde replaces a leading "~/" with the user's home directory.
// Paths without that prefix, or with no resolvable home, are returned as is.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
