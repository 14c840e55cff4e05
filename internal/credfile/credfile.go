// Package credfile handles the on-disk credential cache: the Dropbox app key
// and the long-lived refresh token obtained by pairing. The file lives in the
// working directory by default and is plain indented JSON.
package credfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultAppKey is the public Dropbox app key used when none is configured.
const DefaultAppKey = "rdouezhyvocju81"

// FileName is the well-known credential file name.
const FileName = "dbx-xfr.cfg"

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// ErrNoToken is returned by Authenticate when the pairing flow produced no
// refresh token.
var ErrNoToken = errors.New("credfile: no refresh token obtained")

// Credentials is the persisted record. An empty RefreshToken means the
// account has not been paired yet.
type Credentials struct {
	AppKey       string
	RefreshToken string
}

// Default returns the record written on first run.
func Default() Credentials {
	return Credentials{AppKey: DefaultAppKey}
}

// file is the on-disk format. RefreshToken is a pointer so an unpaired
// record serializes as null.
type file struct {
	AppKey       string  `json:"app_key"`
	RefreshToken *string `json:"refresh_token"`
}

// legacyFile accepts the underscore-prefixed keys written by older releases.
type legacyFile struct {
	AppKey       string  `json:"_app_key"`
	RefreshToken *string `json:"_refresh_token"`
}

// Authorizer runs the interactive pairing flow. Satisfied by
// *dropbox.Authenticator.
type Authorizer interface {
	// FetchRefreshToken returns a refresh token for appKey, or "" when none
	// was obtained. Failures are reported to the operator, not returned.
	FetchRefreshToken(ctx context.Context, appKey string) string
	// PromptAppKey asks the operator to confirm or replace the app key.
	PromptAppKey(current string) (string, error)
}

// Store is a loaded credential file. It is single-owner: concurrent
// invocations against the same path race and are not protected against.
type Store struct {
	path   string
	creds  Credentials
	logger *slog.Logger

	// fetched records that the lazy fetch has run for this instance.
	fetched bool
}

// Load reads the credential file at path. A missing or unreadable file is
// replaced by the default record, which is written immediately. A file with
// malformed JSON also yields the default record but is left untouched on disk.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, creds: Default(), logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("no credential file, writing defaults",
			slog.String("path", path),
			slog.String("reason", err.Error()),
		)

		if err := s.Persist(); err != nil {
			return nil, err
		}

		return s, nil
	}

	creds, err := decode(data)
	if err != nil {
		logger.Warn("credential file is malformed, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return s, nil
	}

	s.creds = creds

	logger.Debug("loaded credential file",
		slog.String("path", path),
		slog.Bool("paired", creds.RefreshToken != ""),
	)

	return s, nil
}

// decode parses either the current or the legacy on-disk format.
func decode(data []byte) (Credentials, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return Credentials{}, fmt.Errorf("credfile: decoding: %w", err)
	}

	var legacy legacyFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Credentials{}, fmt.Errorf("credfile: decoding: %w", err)
	}

	creds := Default()

	switch {
	case f.AppKey != "":
		creds.AppKey = f.AppKey
	case legacy.AppKey != "":
		creds.AppKey = legacy.AppKey
	}

	switch {
	case f.RefreshToken != nil:
		creds.RefreshToken = *f.RefreshToken
	case legacy.RefreshToken != nil:
		creds.RefreshToken = *legacy.RefreshToken
	}

	return creds, nil
}

// Persist overwrites the credential file with the in-memory record
// (write-to-temp + rename, 0600). Never logs token values.
func (s *Store) Persist() error {
	f := file{AppKey: s.creds.AppKey}
	if s.creds.RefreshToken != "" {
		tok := s.creds.RefreshToken
		f.RefreshToken = &tok
	}

	data, err := json.MarshalIndent(f, "", "    ")
	if err != nil {
		return fmt.Errorf("credfile: encoding: %w", err)
	}

	data = append(data, '\n')

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".dbx-xfr-*.tmp")
	if err != nil {
		return fmt.Errorf("credfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("credfile: renaming: %w", err)
	}

	success = true

	s.logger.Debug("persisted credential file", slog.String("path", s.path))

	return nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// AppKey returns the configured Dropbox app key.
func (s *Store) AppKey() string {
	return s.creds.AppKey
}

// Credentials returns a copy of the in-memory record.
func (s *Store) Credentials() Credentials {
	return s.creds
}

// Cached returns the refresh token without triggering a fetch.
func (s *Store) Cached() string {
	return s.creds.RefreshToken
}

// RefreshToken returns the cached refresh token, running the pairing flow
// through a when none is cached. The fetch happens at most once per Store;
// a successful result is memoized and persisted. An empty string means no
// token could be obtained. The error is reserved for persist failures.
func (s *Store) RefreshToken(ctx context.Context, a Authorizer) (string, error) {
	if s.creds.RefreshToken != "" || s.fetched {
		return s.creds.RefreshToken, nil
	}

	s.fetched = true

	s.logger.Info("no cached refresh token, starting pairing flow")

	tok := a.FetchRefreshToken(ctx, s.creds.AppKey)
	if tok == "" {
		return "", nil
	}

	s.creds.RefreshToken = tok

	if err := s.Persist(); err != nil {
		return tok, err
	}

	return tok, nil
}

// Authenticate is the explicit pairing operation: the operator confirms or
// replaces the app key, then the flow runs regardless of any cached token.
// On success the new record is persisted. A failed flow leaves the stored
// record unchanged and returns ErrNoToken.
func (s *Store) Authenticate(ctx context.Context, a Authorizer) (string, error) {
	key, err := a.PromptAppKey(s.creds.AppKey)
	if err != nil {
		return "", fmt.Errorf("credfile: reading app key: %w", err)
	}

	if key == "" {
		key = s.creds.AppKey
	}

	s.fetched = true

	tok := a.FetchRefreshToken(ctx, key)
	if tok == "" {
		return "", ErrNoToken
	}

	s.creds = Credentials{AppKey: key, RefreshToken: tok}

	if err := s.Persist(); err != nil {
		return "", err
	}

	s.logger.Info("pairing complete", slog.String("path", s.path))

	return tok, nil
}
