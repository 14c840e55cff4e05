package dropbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

const endpointDownload = "files/download"

// Download streams the file at remotePath into w. Metadata comes from the
// Dropbox-API-Result response header; the body is never buffered in full.
// Returns the metadata and the number of bytes written.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) (*files.FileMetadata, int64, error) {
	if err := c.begin(ctx, 0); err != nil {
		return nil, 0, err
	}

	c.logger.Info("downloading file", slog.String("path", remotePath))

	md, body, err := c.files.Download(files.NewDownloadArg(remotePath))
	if err != nil {
		return nil, 0, c.classify(ctx, endpointDownload, err)
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", err.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return md, n, fmt.Errorf("dropbox: streaming download content: %w", err)
	}

	c.logger.Debug("download complete",
		slog.String("path", remotePath),
		slog.Int64("bytes_written", n),
	)

	return md, n, nil
}
