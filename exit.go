package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

// Process exit codes. These are stable and part of the CLI contract.
const (
	exitOK         = 0 // command succeeded
	exitUsage      = 1 // bad invocation: unknown command, wrong arguments, invalid config
	exitConnection = 2 // could not talk to Dropbox: not paired, pairing failed, transport error
	exitOperation  = 3 // connected, but the upload or download failed
)

// exitError carries an exit code through cobra's error return. When
// reported is set the command already told the operator what happened
// and main only exits.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// reported wraps an error whose message has already been printed.
func reported(code int, err error) error {
	return &exitError{code: code, err: err, reported: true}
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var (
		transportErr *xfr.TransportError
		uploadErr    *xfr.UploadError
		downloadErr  *xfr.DownloadError
		localErr     *xfr.LocalError
	)

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, xfr.ErrNotPaired), errors.Is(err, xfr.ErrCredentials), errors.As(err, &transportErr):
		return exitConnection
	case errors.As(err, &uploadErr), errors.As(err, &downloadErr), errors.As(err, &localErr):
		return exitOperation
	default:
		return exitUsage
	}
}

// reportError prints err to w unless it was already reported, and returns
// the exit code for it.
func reportError(w io.Writer, err error) int {
	var ee *exitError
	if !errors.As(err, &ee) || !ee.reported {
		fmt.Fprintf(w, "Error: %v\n", err)
	}

	return exitCode(err)
}
