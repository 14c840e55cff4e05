package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

const endpointUpload = "files/upload"

// SimpleUploadMaxSize is the largest file a single upload request accepts
// (150 MiB). Larger files would need an upload session, which is not
// supported.
const SimpleUploadMaxSize = 150 * 1024 * 1024

// ErrTooLarge is returned for uploads above SimpleUploadMaxSize.
var ErrTooLarge = errors.New("dropbox: file exceeds single-request upload limit")

// Upload writes size bytes from r to remotePath, replacing any existing
// file. remotePath must be absolute ("/folder/name.ext").
func (c *Client) Upload(ctx context.Context, remotePath string, r io.Reader, size int64) (*files.FileMetadata, error) {
	if size > SimpleUploadMaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	if err := c.begin(ctx, size); err != nil {
		return nil, err
	}

	c.logger.Info("uploading file",
		slog.String("path", remotePath),
		slog.Int64("size", size),
	)

	arg := files.NewUploadArg(remotePath)
	arg.Mode = &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeOverwrite}}

	md, err := c.files.Upload(arg, r)
	if err != nil {
		return nil, c.classify(ctx, endpointUpload, err)
	}

	c.logger.Debug("upload complete",
		slog.String("path", md.PathDisplay),
		slog.String("rev", md.Rev),
		slog.Uint64("size", md.Size),
	)

	return md, nil
}
