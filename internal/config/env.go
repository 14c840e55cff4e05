package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig      = "DBX_XFR_CONFIG"
	EnvCredentials = "DBX_XFR_CREDENTIALS"
	EnvFolder      = "DBX_XFR_FOLDER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string // DBX_XFR_CONFIG: settings file path
	CredentialsFile string // DBX_XFR_CREDENTIALS: credential file path
	RemoteFolder    string // DBX_XFR_FOLDER: remote folder
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	o := EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		CredentialsFile: os.Getenv(EnvCredentials),
		RemoteFolder:    os.Getenv(EnvFolder),
	}

	logger.Debug("read environment overrides",
		slog.String("config", o.ConfigPath),
		slog.String("credentials", o.CredentialsFile),
		slog.String("folder", o.RemoteFolder),
	)

	return o
}

// LoadDotEnv loads variables from a dotenv file into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadDotEnv(path string, logger *slog.Logger) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("loading %s: %w", path, err)
	}

	logger.Debug("loaded dotenv file", slog.String("path", path))

	return nil
}
