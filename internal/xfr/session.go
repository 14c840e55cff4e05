package xfr

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/dbxfr/dbx-xfr/internal/credfile"
	"github.com/dbxfr/dbx-xfr/internal/dropbox"
	"github.com/dbxfr/dbx-xfr/pkg/contenthash"
)

// partialSuffix marks a download that has not been verified yet.
const partialSuffix = ".partial"

// downloadPerms is the mode of a file created by Get.
const downloadPerms = 0o644

var errIsDir = errors.New("is a directory, not a file")

// Local file access; replaced in tests to inject I/O failures.
var (
	openLocal     = os.Open
	createPartial = os.CreateTemp
)

// Options configures how a Session reaches Dropbox. The zero value talks to
// the production service with http.DefaultClient.
type Options struct {
	APIURL     string
	ContentURL string
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = dropbox.DefaultAPIURL
	}

	if o.ContentURL == "" {
		o.ContentURL = dropbox.DefaultContentURL
	}

	if o.Endpoint.TokenURL == "" {
		o.Endpoint = dropbox.DefaultEndpoint
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// Session owns one live Dropbox client for its scope. It is bound to a
// remote folder and is not safe for concurrent use.
type Session struct {
	client *dropbox.Client
	folder string
	logger *slog.Logger
}

// Open acquires a session using the store's credentials. When no refresh
// token is cached the pairing flow runs through auth first; if that yields
// nothing, Open returns ErrNotPaired. The caller must Close the session.
func Open(ctx context.Context, store *credfile.Store, auth credfile.Authorizer, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	tok, err := store.RefreshToken(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}

	if tok == "" {
		return nil, ErrNotPaired
	}

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	client := dropbox.New(dropbox.Config{
		APIURL:     opts.APIURL,
		ContentURL: opts.ContentURL,
		HTTPClient: opts.HTTPClient,
		Token:      dropbox.NewTokenSource(ctx, store.AppKey(), tok, opts.Endpoint, opts.Logger),
		UserAgent:  opts.UserAgent,
		Logger:     opts.Logger,
	})

	opts.Logger.Debug("session opened", slog.String("credentials", store.Path()))

	return &Session{
		client: client,
		folder: RootPath,
		logger: opts.Logger,
	}, nil
}

// Do opens a session, runs fn, and closes the session on every path,
// including when fn fails or panics.
func Do(
	ctx context.Context, store *credfile.Store, auth credfile.Authorizer, opts Options, fn func(*Session) error,
) (err error) {
	s, err := Open(ctx, store, auth, opts)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(s)
}

// Close releases the client. The session is unusable afterwards.
func (s *Session) Close() error {
	s.logger.Debug("session closed")

	return s.client.Close()
}

// Path returns the normalized remote folder.
func (s *Session) Path() string {
	return s.folder
}

// SetPath sets the remote folder used by later transfers; see NormalizeFolder.
func (s *Session) SetPath(folder string) {
	s.folder = NormalizeFolder(folder)
}

// Status reports whether an authenticated round trip succeeds. It never
// returns an error: any failure is logged and reported as false.
func (s *Session) Status(ctx context.Context) bool {
	if _, err := s.client.CurrentAccount(ctx); err != nil {
		s.logger.Info("status check failed", slog.String("error", err.Error()))
		return false
	}

	return true
}

// Account returns the authenticated user.
func (s *Session) Account(ctx context.Context) (*dropbox.Account, error) {
	acct, err := s.client.CurrentAccount(ctx)
	if err != nil {
		return nil, mapTransport(err, func(e error) error { return e })
	}

	return acct, nil
}

// Put uploads localDir/filename to Path()/base(filename), replacing any
// existing remote file. Local failures are *LocalError; remote failures are
// *TransportError or *UploadError.
func (s *Session) Put(ctx context.Context, filename, localDir string) error {
	localPath := localFilePath(filename, localDir)
	dest := joinRemote(s.folder, remoteName(filename))

	f, err := openLocal(localPath)
	if err != nil {
		return &LocalError{Op: "open", Path: localPath, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return &LocalError{Op: "stat", Path: localPath, Err: err}
	}

	if fi.IsDir() {
		return &LocalError{Op: "open", Path: localPath, Err: errIsDir}
	}

	localHash, err := contenthash.File(localPath)
	if err != nil {
		return &LocalError{Op: "read", Path: localPath, Err: err}
	}

	s.logger.Debug("put", slog.String("local_path", localPath), slog.String("remote_path", dest),
		slog.Int64("size", fi.Size()))

	src := &localReader{r: f}

	md, err := s.client.Upload(ctx, dest, src, fi.Size())
	if src.err != nil {
		return &LocalError{Op: "read", Path: localPath, Err: src.err}
	}

	if err != nil {
		return mapUploadError(err)
	}

	if md.ContentHash != "" && md.ContentHash != localHash {
		mismatch := &HashMismatchError{Path: dest, Local: localHash, Remote: md.ContentHash}
		return &UploadError{Kind: KindIntegrity, Message: mismatch.Error(), Err: mismatch}
	}

	s.logger.Info("upload complete", slog.String("remote_path", dest), slog.Int64("size", fi.Size()))

	return nil
}

// Get downloads Path()/base(filename) to localDir/filename, replacing any
// existing local file. Content is streamed to a uniquely named sibling
// .partial file, verified, then renamed into place; a failed download leaves
// the old file untouched.
func (s *Session) Get(ctx context.Context, filename, localDir string) error {
	localPath := localFilePath(filename, localDir)
	source := joinRemote(s.folder, remoteName(filename))

	s.logger.Debug("get", slog.String("remote_path", source), slog.String("local_path", localPath))

	f, err := createPartial(filepath.Dir(localPath), filepath.Base(localPath)+".*"+partialSuffix)
	if err != nil {
		return &LocalError{Op: "create", Path: localPath, Err: err}
	}

	partialPath := f.Name()
	dst := &localWriter{w: f}
	h := contenthash.New()

	md, n, err := s.client.Download(ctx, source, io.MultiWriter(dst, h))
	closeErr := f.Close()

	switch {
	case dst.err != nil:
		os.Remove(partialPath)
		return &LocalError{Op: "write", Path: partialPath, Err: dst.err}
	case err != nil:
		os.Remove(partialPath)
		return mapDownloadError(err, source)
	case closeErr != nil:
		os.Remove(partialPath)
		return &LocalError{Op: "write", Path: partialPath, Err: closeErr}
	}

	if localHash := hex.EncodeToString(h.Sum(nil)); md.ContentHash != "" && md.ContentHash != localHash {
		os.Remove(partialPath)

		mismatch := &HashMismatchError{Path: source, Local: localHash, Remote: md.ContentHash}

		return &DownloadError{Kind: KindIntegrity, Source: source, Message: mismatch.Error(), Err: mismatch}
	}

	if err := os.Chmod(partialPath, downloadPerms); err != nil {
		os.Remove(partialPath)
		return &LocalError{Op: "chmod", Path: partialPath, Err: err}
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		os.Remove(partialPath)
		return &LocalError{Op: "rename", Path: localPath, Err: err}
	}

	s.logger.Info("download complete", slog.String("local_path", localPath), slog.Int64("bytes", n))

	return nil
}

// TryPut is Put reporting only success; the error is logged.
func (s *Session) TryPut(ctx context.Context, filename, localDir string) bool {
	if err := s.Put(ctx, filename, localDir); err != nil {
		s.logger.Error("upload failed", slog.String("file", filename), slog.String("error", err.Error()))
		return false
	}

	return true
}

// TryGet is Get reporting only success; the error is logged.
func (s *Session) TryGet(ctx context.Context, filename, localDir string) bool {
	if err := s.Get(ctx, filename, localDir); err != nil {
		s.logger.Error("download failed", slog.String("file", filename), slog.String("error", err.Error()))
		return false
	}

	return true
}

func localFilePath(filename, localDir string) string {
	if localDir == "" {
		localDir = "."
	}

	return filepath.Join(localDir, filename)
}

// localReader records the first read failure of the local source so it is
// not mistaken for a network error.
type localReader struct {
	r   io.Reader
	err error
}

func (l *localReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && l.err == nil {
		l.err = err
	}

	return n, err
}

// localWriter records the first write failure of the local destination.
type localWriter struct {
	w   io.Writer
	err error
}

func (l *localWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if err != nil && l.err == nil {
		l.err = err
	}

	return n, err
}
