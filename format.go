package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
)

// Statusf prints a progress line to stdout unless --quiet is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.env.out, format, args...)
	}
}

// Successf prints a result line in green. Results are printed even with --quiet.
func (cc *CLIContext) Successf(format string, args ...any) {
	successColor.Fprintf(cc.env.out, format, args...)
}

// Failuref prints a result line in red.
func (cc *CLIContext) Failuref(format string, args ...any) {
	failureColor.Fprintf(cc.env.out, format, args...)
}

// timestamp renders the current UTC time with the configured strftime pattern.
func (cc *CLIContext) timestamp() string {
	return cc.stamp.FormatString(cc.env.now().UTC())
}

// transferMessage is the operator-facing text for a failed transfer.
func transferMessage(err error) string {
	var localErr *xfr.LocalError
	if errors.As(err, &localErr) && errors.Is(err, os.ErrNotExist) {
		return "file not found."
	}

	return err.Error()
}
