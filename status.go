package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the connection to Dropbox",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().Bool("json", false, "print the account as JSON")

	return cmd
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Connected   bool   `json:"connected"`
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Folder      string `json:"folder"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	return cc.withSession(ctx, func(s *xfr.Session) error {
		s.SetPath(cc.remoteFolder())

		if asJSON {
			return printStatusJSON(cmd, cc, s)
		}

		if err := cc.reportStatus(ctx, s); err != nil {
			return err
		}

		if cc.Flags.Verbose || cc.Flags.Debug {
			if acct, err := s.Account(ctx); err == nil {
				fmt.Fprintf(cc.env.out, "account: %s <%s>\n", acct.DisplayName, acct.Email)
			}

			fmt.Fprintf(cc.env.out, "folder:  %s\n", s.Path())
		}

		return nil
	})
}

func printStatusJSON(cmd *cobra.Command, cc *CLIContext, s *xfr.Session) error {
	out := statusOutput{Folder: s.Path()}

	acct, accountErr := s.Account(cmd.Context())
	if accountErr == nil {
		out.Connected = true
		out.AccountID = acct.ID
		out.DisplayName = acct.DisplayName
		out.Email = acct.Email
	}

	enc := json.NewEncoder(cc.env.out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if accountErr != nil {
		return reported(exitConnection, errNotConnected)
	}

	return nil
}
