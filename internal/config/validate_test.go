package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDefaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultSettings()))
}

func TestValidate_LogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		s := DefaultSettings()
		s.LogLevel = level
		assert.NoError(t, Validate(s), level)
	}

	s := DefaultSettings()
	s.LogLevel = "trace"
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_HTTPTimeout(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"0s", true},
		{"30s", true},
		{"2m", true},
		{"soon", false},
		{"-1s", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := DefaultSettings()
			s.HTTPTimeout = tt.value

			err := Validate(s)
			if tt.ok {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), "http_timeout")
		})
	}
}

func TestValidate_TimestampFormat(t *testing.T) {
	s := DefaultSettings()
	s.TimestampFormat = "%Y-%m-%dT%H:%M:%S"
	assert.NoError(t, Validate(s))

	s.TimestampFormat = "%Y %"
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp_format")

	s.TimestampFormat = ""
	require.Error(t, Validate(s))
}

func TestValidate_EmptyCredentialsFile(t *testing.T) {
	s := DefaultSettings()
	s.CredentialsFile = ""

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	s := DefaultSettings()
	s.LogLevel = "nope"
	s.HTTPTimeout = "nope"

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "http_timeout")
}
