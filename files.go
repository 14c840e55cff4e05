package main

import (
	"github.com/spf13/cobra"

	"github.com/dbxfr/dbx-xfr/internal/xfr"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <filename>",
		Short: "Upload a file to the remote folder, replacing any existing copy",
		Long: `Upload <filename> from the local directory to the remote folder. Only the
base name is used remotely, so "sub/a.txt" is stored as <folder>/a.txt.`,
		Args: cobra.ExactArgs(1),
		RunE: runPut,
	}

	cmd.Flags().StringP("dir", "C", ".", "local directory the filename is relative to")

	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <filename>",
		Short: "Download a file from the remote folder, replacing any local copy",
		Long: `Download <folder>/<base name of filename> into the local directory as
<filename>. The file is written to a temporary <filename>.*.partial file,
verified against the Dropbox content hash, then renamed into place.`,
		Args: cobra.ExactArgs(1),
		RunE: runGet,
	}

	cmd.Flags().StringP("dir", "C", ".", "local directory the filename is relative to")

	return cmd
}

func runPut(cmd *cobra.Command, args []string) error {
	filename := args[0]
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	return cc.withSession(ctx, func(s *xfr.Session) error {
		s.SetPath(cc.remoteFolder())

		cc.Logger.Debug("put", "filename", filename, "dir", dir, "folder", s.Path())
		cc.Statusf("uploading %s to %s dropbox folder\n", filename, s.Path())
		cc.Statusf("%s: Upload begun...\n", cc.timestamp())

		if err := s.Put(ctx, filename, dir); err != nil {
			cc.Failuref("%s: Upload failed. %s\n", cc.timestamp(), transferMessage(err))
			return reported(exitCode(err), err)
		}

		cc.Successf("%s: Upload complete.\n", cc.timestamp())

		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	filename := args[0]
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	return cc.withSession(ctx, func(s *xfr.Session) error {
		s.SetPath(cc.remoteFolder())

		cc.Logger.Debug("get", "filename", filename, "dir", dir, "folder", s.Path())
		cc.Statusf("downloading %s from %s dropbox folder\n", filename, s.Path())
		cc.Statusf("%s: Download begun...\n", cc.timestamp())

		if err := s.Get(ctx, filename, dir); err != nil {
			cc.Failuref("%s: Download failed. %s\n", cc.timestamp(), transferMessage(err))
			return reported(exitCode(err), err)
		}

		cc.Successf("%s: Download complete.\n", cc.timestamp())

		return nil
	})
}
