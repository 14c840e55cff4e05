package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/lestrrat-go/strftime"
	"github.com/mattn/go-isatty"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"github.com/dbxfr/dbx-xfr/internal/config"
	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

// version is set at build time via ldflags.
var version = "dev"

// runtimeEnv is the slice of the process the commands touch: standard
// streams, terminal detection, clock, hostname and browser launch. Tests
// substitute every field.
type runtimeEnv struct {
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	isTerminal func() bool
	hostname   func() (string, error)
	now        func() time.Time
	openURL    func(string) error

	// remote overrides the Dropbox endpoints and HTTP client. The zero
	// value talks to the production service.
	remote xfr.Options
}

func defaultRuntimeEnv() runtimeEnv {
	return runtimeEnv{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		isTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		hostname: os.Hostname,
		now:      time.Now,
		openURL:  open.Run,
	}
}

// CLIFlags holds the root persistent flags.
type CLIFlags struct {
	ConfigPath  string
	Credentials string
	Folder      string
	LogLevel    string
	Verbose     bool
	Debug       bool
	Quiet       bool
	Browser     bool
	NoColor     bool
}

// CLIContext is built once by the root pre-run and reaches every command
// through the command context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger

	env   runtimeEnv
	stamp *strftime.Strftime
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd(env runtimeEnv) *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:   "dbx-xfr",
		Short: "Put and get single files on Dropbox",
		Long: `Upload or download one file per invocation to a Dropbox folder.

Run 'dbx-xfr pair' once to link an account. Transfers go to /<hostname>
unless --folder, DBX_XFR_FOLDER or remote_folder says otherwise.

Exit codes: 0 success, 1 bad invocation, 2 connection failed, 3 transfer failed.`,
		Version: version,
		// Errors are printed by main with the matching exit code.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd, flags, env)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "settings file path (default ./"+config.DefaultConfigPath+")")
	pf.StringVar(&flags.Credentials, "credentials", "", "credential file path (default ./"+config.DefaultCredentialsPath+")")
	pf.StringVarP(&flags.Folder, "folder", "f", "", "remote Dropbox folder (default /<hostname>)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error (default from settings)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "log informational messages")
	pf.BoolVar(&flags.Debug, "debug", false, "log debug messages, including HTTP calls")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "only print results and errors")
	pf.BoolVar(&flags.Browser, "browser", false, "open the authorization page in a browser when pairing")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.SetIn(env.in)
	cmd.SetOut(env.out)
	cmd.SetErr(env.errOut)

	cmd.AddCommand(newPairCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext loads .env, resolves settings through the override chain
// and builds the logger.
func newCLIContext(cmd *cobra.Command, flags CLIFlags, env runtimeEnv) (*CLIContext, error) {
	logger := bootstrapLogger(flags, env.errOut)

	if err := config.LoadDotEnv(config.DotEnvPath, logger); err != nil {
		return nil, err
	}

	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	// Only flags the operator actually set take part in the override chain.
	if cmd.Flags().Changed("credentials") {
		cli.CredentialsFile = &flags.Credentials
	}

	if cmd.Flags().Changed("folder") {
		cli.RemoteFolder = &flags.Folder
	}

	if cmd.Flags().Changed("log-level") {
		cli.LogLevel = &flags.LogLevel
	}

	if cmd.Flags().Changed("browser") {
		cli.OpenBrowser = &flags.Browser
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(logger), cli, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	stamp, err := strftime.New(resolved.TimestampFormat)
	if err != nil {
		return nil, fmt.Errorf("timestamp_format: %w", err)
	}

	if flags.NoColor {
		color.NoColor = true
	}

	return &CLIContext{
		Flags:  flags,
		Cfg:    resolved,
		Logger: buildLogger(resolved.LogLevel, flags, env.errOut),
		env:    env,
		stamp:  stamp,
	}, nil
}

// bootstrapLogger is used before settings are resolved: warn by default,
// adjusted by the verbosity flags.
func bootstrapLogger(flags CLIFlags, w io.Writer) *slog.Logger {
	return newLogger(levelWithFlags(slog.LevelWarn, flags), w)
}

// buildLogger uses the configured log_level as the baseline. --verbose,
// --debug and --quiet override it.
func buildLogger(logLevel string, flags CLIFlags, w io.Writer) *slog.Logger {
	return newLogger(levelWithFlags(parseLevel(logLevel), flags), w)
}

func newLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func levelWithFlags(base slog.Level, flags CLIFlags) slog.Level {
	switch {
	case flags.Debug:
		return slog.LevelDebug
	case flags.Verbose:
		return slog.LevelInfo
	case flags.Quiet:
		return slog.LevelError
	default:
		return base
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
