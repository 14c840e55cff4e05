package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/oauth2"
)

// Default endpoints and identification.
const (
	DefaultAPIURL     = "https://api.dropboxapi.com"
	DefaultContentURL = "https://content.dropboxapi.com"
	DefaultUserAgent  = "dbx-xfr/0.1"
)

// hostContent is the SDK host type of upload and download routes; every
// other route goes to the API origin.
const hostContent = "content"

// ErrClosed is returned by any call made after Close.
var ErrClosed = errors.New("dropbox: client closed")

// FilesAPI is the subset of the SDK files client used here.
// files.New(cfg) satisfies it; tests substitute their own.
type FilesAPI interface {
	// Upload writes content to arg.Path (max 150 MiB).
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)

	// Download returns the file's metadata and a stream of its content.
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
}

// UsersAPI is the subset of the SDK users client used here.
type UsersAPI interface {
	GetCurrentAccount() (*users.FullAccount, error)
}

// Config describes how a Client reaches Dropbox.
type Config struct {
	// APIURL serves RPC endpoints, ContentURL upload/download; both are the
	// bare origin without a trailing slash.
	APIURL     string
	ContentURL string

	// HTTPClient is the base client; bearer tokens are added on top of its
	// transport. Nil means http.DefaultClient.
	HTTPClient *http.Client

	Token     oauth2.TokenSource
	UserAgent string
	Logger    *slog.Logger
}

// Client wraps the Dropbox SDK with context propagation, a closed state and
// status-aware error classification. Requests are never retried. A Client
// is not safe for concurrent use.
type Client struct {
	files  FilesAPI
	users  UsersAPI
	rt     *transport
	http   *http.Client
	logger *slog.Logger

	closed bool
}

// New builds a Client on the SDK's files and users clients.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}

	if cfg.ContentURL == "" {
		cfg.ContentURL = DefaultContentURL
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	rt := &transport{
		base:      &oauth2.Transport{Source: cfg.Token, Base: base.Transport},
		userAgent: cfg.UserAgent,
	}
	hc := &http.Client{Transport: rt, Timeout: base.Timeout}

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	contentURL := strings.TrimRight(cfg.ContentURL, "/")

	sdkCfg := sdk.Config{
		Client: hc,
		URLGenerator: func(hostType, namespace, route string) string {
			origin := apiURL
			if hostType == hostContent {
				origin = contentURL
			}

			return fmt.Sprintf("%s/2/%s/%s", origin, namespace, route)
		},
	}

	c := NewWithAPI(files.New(sdkCfg), users.New(sdkCfg), cfg.Logger)
	c.rt = rt
	c.http = hc

	return c
}

// NewWithAPI builds a Client on caller-supplied API implementations.
// Errors are classified from their types only, since no transport is
// observed.
func NewWithAPI(f FilesAPI, u UsersAPI, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{files: f, users: u, logger: logger}
}

// Close releases the client. Idle connections are dropped and later calls
// fail with ErrClosed. Calling Close more than once is a no-op.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	if c.http != nil {
		c.http.CloseIdleConnections()
	}

	c.logger.Debug("dropbox client closed")

	return nil
}

// begin prepares the transport for one SDK call bound to ctx.
func (c *Client) begin(ctx context.Context, contentLength int64) error {
	if c.closed {
		return ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dropbox: request canceled: %w", err)
	}

	if c.rt != nil {
		c.rt.start(ctx, contentLength)
	}

	return nil
}

// classify turns an SDK error into *EndpointError (HTTP 409), *HTTPError
// (other non-2xx statuses) or a wrapped transport failure.
func (c *Client) classify(ctx context.Context, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("dropbox: request canceled: %w", ctxErr)
	}

	var seen exchange
	if c.rt != nil {
		seen = c.rt.last
	}

	switch {
	case seen.status == http.StatusConflict || (seen.status == 0 && isEndpointError(err)):
		c.logger.Debug("request rejected",
			slog.String("endpoint", endpoint),
			slog.String("request_id", seen.requestID),
			slog.String("error", err.Error()),
		)

		return &EndpointError{
			Endpoint:    endpoint,
			RequestID:   seen.requestID,
			UserMessage: seen.userMessage,
			Err:         err,
		}
	case seen.status != 0 && (seen.status < http.StatusOK || seen.status >= http.StatusMultipleChoices):
		c.logger.Warn("request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", seen.status),
			slog.String("request_id", seen.requestID),
		)

		return &HTTPError{
			StatusCode: seen.status,
			RequestID:  seen.requestID,
			Message:    strings.TrimSpace(err.Error()),
			Err:        classifyStatus(seen.status),
			cause:      err,
		}
	default:
		c.logger.Warn("request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("dropbox: %s: %w", endpoint, err)
	}
}

// isEndpointError reports whether err is one of the SDK's typed 409 errors.
// Generated clients return them by value; pointers are accepted too.
func isEndpointError(err error) bool {
	var (
		up  files.UploadAPIError
		dl  files.DownloadAPIError
		upP *files.UploadAPIError
		dlP *files.DownloadAPIError
	)

	return errors.As(err, &up) || errors.As(err, &dl) || errors.As(err, &upP) || errors.As(err, &dlP)
}
