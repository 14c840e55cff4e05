// Package xfr provides the transfer session: a scoped owner of one
// authenticated Dropbox client, bound to a remote folder, exposing the
// status/put/get operations and the error taxonomy the CLI reports.
//
// A Session is opened from a credential store, which may lazily run the
// pairing flow when no refresh token is cached, and must be closed on every
// path. Do wraps that open/close pair around a callback.
package xfr
