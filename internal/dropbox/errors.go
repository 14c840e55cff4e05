// Package dropbox adapts the Dropbox Go SDK for dbx-xfr: a context-aware
// client for account lookup, upload and download, the OAuth2 pairing flow,
// and error classification.
package dropbox

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, dropbox.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("dropbox: bad request")
	ErrUnauthorized = errors.New("dropbox: unauthorized")
	ErrForbidden    = errors.New("dropbox: forbidden")
	ErrNotFound     = errors.New("dropbox: not found")
	ErrThrottled    = errors.New("dropbox: throttled")
	ErrServerError  = errors.New("dropbox: server error")
)

// HTTPError is a failure below the application layer: the request reached
// Dropbox but was rejected with a status other than 409 (bad argument,
// expired token, throttling, server error).
type HTTPError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()

	cause error // the SDK's own error value
}

func (e *HTTPError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("dropbox: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("dropbox: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() []error {
	errs := make([]error, 0, 2)

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	if e.cause != nil {
		errs = append(errs, e.cause)
	}

	return errs
}

// EndpointError is an endpoint-specific rejection (HTTP 409). Err is the
// SDK's typed error (files.UploadAPIError, files.DownloadAPIError, ...),
// reachable with errors.As.
type EndpointError struct {
	Endpoint    string
	RequestID   string
	UserMessage string // localized text meant for the end user, often empty
	Err         error
}

func (e *EndpointError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("dropbox: %s failed (request-id: %s): %v", e.Endpoint, e.RequestID, e.Err)
	}

	return fmt.Sprintf("dropbox: %s failed: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// UserMessage returns the end-user text Dropbox attached to an endpoint
// error in err's chain, or "".
func UserMessage(err error) string {
	var epErr *EndpointError
	if errors.As(err, &epErr) {
		return epErr.UserMessage
	}

	return ""
}

// UploadFailure returns the SDK's upload error union from err's chain.
func UploadFailure(err error) (*files.UploadError, bool) {
	var v files.UploadAPIError
	if errors.As(err, &v) {
		return v.EndpointError, v.EndpointError != nil
	}

	var p *files.UploadAPIError
	if errors.As(err, &p) && p != nil {
		return p.EndpointError, p.EndpointError != nil
	}

	return nil, false
}

// DownloadFailure returns the SDK's download error union from err's chain.
func DownloadFailure(err error) (*files.DownloadError, bool) {
	var v files.DownloadAPIError
	if errors.As(err, &v) {
		return v.EndpointError, v.EndpointError != nil
	}

	var p *files.DownloadAPIError
	if errors.As(err, &p) && p != nil {
		return p.EndpointError, p.EndpointError != nil
	}

	return nil, false
}

// IsInsufficientSpace reports whether an upload failed for lack of quota.
func IsInsufficientSpace(err error) bool {
	ue, ok := UploadFailure(err)

	return ok && ue.Tag == files.UploadErrorPath && ue.Path != nil && ue.Path.Reason != nil &&
		ue.Path.Reason.Tag == files.WriteErrorInsufficientSpace
}

// IsNotFound reports whether a download named a path that does not exist.
func IsNotFound(err error) bool {
	de, ok := DownloadFailure(err)

	return ok && de.Tag == files.DownloadErrorPath && de.Path != nil && de.Path.Tag == files.LookupErrorNotFound
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
