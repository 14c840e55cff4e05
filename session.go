package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dbxfr/dbx-xfr/internal/credfile"
	"github.com/dbxfr/dbx-xfr/internal/dropbox"
	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

const failedToConnect = "Failed to connect to dropbox"

var (
	errNotInteractive = errors.New("not paired and stdin is not a terminal: run 'dbx-xfr pair' first")
	errNotConnected   = errors.New("dropbox connection check failed")
)

// loadCredentials opens the credential file named by the settings,
// writing the default record if it does not exist yet.
func (cc *CLIContext) loadCredentials() (*credfile.Store, error) {
	store, err := credfile.Load(cc.Cfg.CredentialsFile, cc.Logger)
	if err != nil {
		return nil, &exitError{code: exitConnection, err: fmt.Errorf("loading credentials: %w", err)}
	}

	return store, nil
}

// httpClient returns the client shared by the code exchange, token refresh
// and API calls of one command.
func (cc *CLIContext) httpClient() *http.Client {
	if cc.env.remote.HTTPClient != nil {
		return cc.env.remote.HTTPClient
	}

	return &http.Client{Timeout: cc.Cfg.Timeout()}
}

func (cc *CLIContext) authenticator(hc *http.Client) *dropbox.Authenticator {
	a := dropbox.NewAuthenticator(cc.env.in, cc.env.out, cc.Logger)
	a.HTTPClient = hc

	if cc.env.remote.Endpoint.TokenURL != "" {
		a.Endpoint = cc.env.remote.Endpoint
	}

	if cc.Cfg.OpenBrowser {
		a.OpenURL = cc.env.openURL
	}

	return a
}

func (cc *CLIContext) sessionOptions(hc *http.Client) xfr.Options {
	opts := cc.env.remote
	opts.HTTPClient = hc
	opts.Logger = cc.Logger
	opts.UserAgent = "dbx-xfr/" + version

	return opts
}

// remoteFolder is the configured folder, or /<hostname> when none is set.
func (cc *CLIContext) remoteFolder() string {
	if cc.Cfg.RemoteFolder != "" {
		return cc.Cfg.RemoteFolder
	}

	host, err := cc.env.hostname()
	if err != nil || host == "" {
		cc.Logger.Warn("cannot determine hostname, using root folder", slog.Any("error", err))
		return xfr.RootPath
	}

	return "/" + host
}

// withSession runs fn inside a transfer session. An unpaired store starts
// the pairing flow, except when stdin is not a terminal: then the command
// fails fast instead of blocking on a prompt nobody can answer.
func (cc *CLIContext) withSession(ctx context.Context, fn func(*xfr.Session) error) error {
	store, err := cc.loadCredentials()
	if err != nil {
		return err
	}

	if store.Cached() == "" && !cc.env.isTerminal() {
		cc.Failuref("%s\n", failedToConnect)
		return &exitError{code: exitConnection, err: errNotInteractive}
	}

	hc := cc.httpClient()

	err = xfr.Do(ctx, store, cc.authenticator(hc), cc.sessionOptions(hc), fn)

	switch {
	case errors.Is(err, xfr.ErrNotPaired):
		cc.Failuref("%s\n", failedToConnect)
		return reported(exitConnection, err)
	case errors.Is(err, xfr.ErrCredentials):
		return &exitError{code: exitConnection, err: err}
	}

	return err
}

// reportStatus prints the connectivity result the way pair and status do.
func (cc *CLIContext) reportStatus(ctx context.Context, s *xfr.Session) error {
	if !s.Status(ctx) {
		cc.Failuref("%s\n", failedToConnect)
		return reported(exitConnection, errNotConnected)
	}

	cc.Successf("connected.\n")

	return nil
}
