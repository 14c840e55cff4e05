package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved settings as TOML-like annotated text,
// showing the values in effect after every override layer.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (settings file: %s)\n\n", r.ConfigPath)
	ew.printf("log_level        = %q\n", r.LogLevel)
	ew.printf("credentials_file = %q\n", r.CredentialsFile)

	if r.RemoteFolder == "" {
		ew.printf("# remote_folder unset; defaults to /<hostname>\n")
	} else {
		ew.printf("remote_folder    = %q\n", r.RemoteFolder)
	}

	ew.printf("http_timeout     = %q\n", r.HTTPTimeout)
	ew.printf("timestamp_format = %q\n", r.TimestampFormat)
	ew.printf("open_browser     = %t\n", r.OpenBrowser)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
