package xfr

import (
	"errors"
	"fmt"

	"github.com/dbxfr/dbx-xfr/internal/dropbox"
)

// ErrNotPaired is returned by Open when no refresh token is cached and none
// could be obtained.
var ErrNotPaired = errors.New("xfr: not paired with a Dropbox account")

// ErrCredentials is returned by Open when a freshly paired refresh token
// could not be written to the credential file.
var ErrCredentials = errors.New("xfr: saving credentials")

// Failure kinds carried by UploadError and DownloadError.
const (
	KindQuota       = "insufficient_space"
	KindNotFound    = "not_found"
	KindUserMessage = "user_message"
	KindIntegrity   = "integrity"
	KindOther       = "other"
)

// TransportError means the call never reached the application layer:
// DNS, connection, TLS, token refresh or a non-409 HTTP status.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UploadError means Dropbox rejected the upload at the application layer.
type UploadError struct {
	Kind    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// DownloadError means Dropbox rejected the download at the application layer.
type DownloadError struct {
	Kind    string
	Source  string
	Message string
	Err     error
}

func (e *DownloadError) Error() string {
	return e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// LocalError is a failure of the local filesystem side of a transfer.
// It is never the result of a remote call.
type LocalError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalError) Unwrap() error {
	return e.Err
}

// HashMismatchError reports content that arrived intact at neither end.
type HashMismatchError struct {
	Path   string
	Local  string
	Remote string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("content hash mismatch for %s: local %s, remote %s", e.Path, e.Local, e.Remote)
}

// mapUploadError classifies a failed upload. Priority: quota, then the
// server's user-facing message, then the raw error.
func mapUploadError(err error) error {
	var epErr *dropbox.EndpointError
	if !errors.As(err, &epErr) {
		return mapTransport(err, func(e error) error {
			return &UploadError{Kind: KindOther, Message: e.Error(), Err: e}
		})
	}

	switch {
	case dropbox.IsInsufficientSpace(err):
		return &UploadError{Kind: KindQuota, Message: "copy failed; insufficient space", Err: err}
	case epErr.UserMessage != "":
		return &UploadError{Kind: KindUserMessage, Message: epErr.UserMessage, Err: err}
	default:
		return &UploadError{Kind: KindOther, Message: err.Error(), Err: err}
	}
}

// mapDownloadError classifies a failed download of source. Priority: not
// found, then the raw error.
func mapDownloadError(err error, source string) error {
	var epErr *dropbox.EndpointError
	if !errors.As(err, &epErr) {
		return mapTransport(err, func(e error) error {
			return &DownloadError{Kind: KindOther, Source: source, Message: "download error: " + e.Error(), Err: e}
		})
	}

	if dropbox.IsNotFound(err) {
		return &DownloadError{
			Kind:    KindNotFound,
			Source:  source,
			Message: fmt.Sprintf("%s not found on dropbox", source),
			Err:     err,
		}
	}

	return &DownloadError{Kind: KindOther, Source: source, Message: "download error: " + err.Error(), Err: err}
}

// mapTransport wraps errors that never reached the application layer as
// TransportError: network, TLS, token refresh and non-409 HTTP statuses.
// Local refusals (oversized upload, closed client) go through fallback.
func mapTransport(err error, fallback func(error) error) error {
	if errors.Is(err, dropbox.ErrTooLarge) || errors.Is(err, dropbox.ErrClosed) {
		return fallback(err)
	}

	return &TransportError{Err: err}
}
