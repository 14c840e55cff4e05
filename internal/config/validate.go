package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks all settings and returns every error found, not just
// the first.
func Validate(s *Settings) error {
	var errs []error

	errs = append(errs, validateLogLevel(s.LogLevel)...)
	errs = append(errs, validateTimeout(s.HTTPTimeout)...)
	errs = append(errs, validateTimestampFormat(s.TimestampFormat)...)

	if s.CredentialsFile == "" {
		errs = append(errs, errors.New("credentials_file: must not be empty"))
	}

	return errors.Join(errs...)
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

func validateTimeout(value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("http_timeout: invalid duration %q: %w", value, err)}
	}

	if d < 0 {
		return []error{fmt.Errorf("http_timeout: must not be negative, got %s", value)}
	}

	return nil
}

func validateTimestampFormat(pattern string) []error {
	if pattern == "" {
		return []error{errors.New("timestamp_format: must not be empty")}
	}

	if _, err := strftime.New(pattern); err != nil {
		return []error{fmt.Errorf("timestamp_format: %w", err)}
	}

	return nil
}
