// Package config implements TOML settings loading and validation for
// dbx-xfr. Values resolve through a four-layer override chain: defaults,
// then the settings file, then environment variables, then CLI flags.
package config

import "time"

// Settings is the flat structure parsed from the TOML settings file.
type Settings struct {
	LogLevel        string `toml:"log_level" json:"log_level"`
	CredentialsFile string `toml:"credentials_file" json:"credentials_file"`
	RemoteFolder    string `toml:"remote_folder" json:"remote_folder"`
	HTTPTimeout     string `toml:"http_timeout" json:"http_timeout"`
	TimestampFormat string `toml:"timestamp_format" json:"timestamp_format"`
	OpenBrowser     bool   `toml:"open_browser" json:"open_browser"`
}

// Timeout returns the parsed http_timeout. Zero means no client timeout.
// Settings that passed Validate always parse.
func (s *Settings) Timeout() time.Duration {
	d, err := time.ParseDuration(s.HTTPTimeout)
	if err != nil {
		return 0
	}

	return d
}

// Resolved is the final configuration after every override layer.
type Resolved struct {
	Settings

	// ConfigPath is the settings file that was consulted, whether or not
	// it existed.
	ConfigPath string `json:"config_path"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit zero value such as --browser=false.
type CLIOverrides struct {
	ConfigPath      string
	CredentialsFile *string
	RemoteFolder    *string
	LogLevel        *string
	OpenBrowser     *bool
}
