package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML settings file, validates it, and returns the
// resulting Settings. Unknown keys are fatal, with "did you mean?" hints.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	md, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return s, nil
}

// LoadOrDefault reads a TOML settings file if it exists, otherwise returns
// the defaults. Running without a settings file is the normal case.
func LoadOrDefault(path string) (*Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}

	return Load(path)
}

// Resolve loads settings and applies the override chain:
// defaults -> settings file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	// 1. Settings path: CLI > env > default
	cfgPath := DefaultConfigPath
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfgPath = expandTilde(cfgPath)

	// 2. Settings file, or defaults when absent
	s, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.CredentialsFile != "" {
		s.CredentialsFile = env.CredentialsFile
	}

	if env.RemoteFolder != "" {
		s.RemoteFolder = env.RemoteFolder
	}

	// 4. CLI flags (nil = not specified)
	if cli.CredentialsFile != nil {
		s.CredentialsFile = *cli.CredentialsFile
	}

	if cli.RemoteFolder != nil {
		s.RemoteFolder = *cli.RemoteFolder
	}

	if cli.LogLevel != nil {
		s.LogLevel = *cli.LogLevel
	}

	if cli.OpenBrowser != nil {
		s.OpenBrowser = *cli.OpenBrowser
	}

	s.CredentialsFile = expandTilde(s.CredentialsFile)

	// 5. Validate the merged result
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Debug("config resolved",
		slog.String("config_path", cfgPath),
		slog.String("credentials_file", s.CredentialsFile),
		slog.String("remote_folder", s.RemoteFolder),
		slog.String("log_level", s.LogLevel),
	)

	return &Resolved{Settings: *s, ConfigPath: cfgPath}, nil
}
