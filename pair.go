package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dbxfr/dbx-xfr/internal/credfile"
	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

func newPairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair",
		Short: "Link a Dropbox account",
		Long: `Confirm or replace the app key, then authorize dbx-xfr in a browser and
paste the code Dropbox shows. The refresh token is saved to the credential
file and the connection is verified.`,
		Args: cobra.NoArgs,
		RunE: runPair,
	}
}

func runPair(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	store, err := cc.loadCredentials()
	if err != nil {
		return err
	}

	hc := cc.httpClient()
	auth := cc.authenticator(hc)

	cc.Logger.Info("pairing", "credentials", store.Path(), "app_key", store.AppKey())

	if _, err := store.Authenticate(ctx, auth); err != nil {
		if errors.Is(err, credfile.ErrNoToken) {
			cc.Failuref("%s\n", failedToConnect)
			return reported(exitConnection, err)
		}

		return &exitError{code: exitConnection, err: err}
	}

	return xfr.Do(ctx, store, auth, cc.sessionOptions(hc), func(s *xfr.Session) error {
		return cc.reportStatus(ctx, s)
	})
}
