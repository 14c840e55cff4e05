package config

// Default values: layer 0 of the override chain.
const (
	defaultLogLevel        = "warn"
	defaultHTTPTimeout     = "0s"
	defaultTimestampFormat = "%Y-%b-%d %H:%M:%S +0000"
)

// DefaultSettings returns Settings populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
// An empty RemoteFolder means the caller picks one (the CLI uses /<hostname>).
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:        defaultLogLevel,
		CredentialsFile: DefaultCredentialsPath,
		HTTPTimeout:     defaultHTTPTimeout,
		TimestampFormat: defaultTimestampFormat,
	}
}
