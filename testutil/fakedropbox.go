// Package testutil provides a shared in-process Dropbox fake for unit and
// command tests: RPC and content endpoints plus the OAuth2 token endpoint.
// It depends only on stdlib and this module's pkg/ so any test can use it.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dbxfr/dbx-xfr/pkg/contenthash"
)

// Canned credentials accepted by the fake.
const (
	FakeAuthCode     = "ABC123"
	FakeRefreshToken = "tok-1"
	FakeAccessToken  = "access-1"
)

// Endpoint paths served by the fake.
const (
	PathToken          = "/oauth2/token"
	PathCurrentAccount = "/2/users/get_current_account"
	PathUpload         = "/2/files/upload"
	PathDownload       = "/2/files/download"
)

// Canned error bodies for the common endpoint failures.
const (
	BodyInsufficientSpace = `{"error_summary": "path/insufficient_space/..", ` +
		`"error": {".tag": "path", "reason": {".tag": "insufficient_space"}, "upload_session_id": "s1"}}`
	BodyNotFound = `{"error_summary": "path/not_found/..", "error": {".tag": "path", "path": {".tag": "not_found"}}}`
)

// Failure is an injected response for one endpoint.
type Failure struct {
	Status int
	Body   string
}

// FakeDropbox is an httptest server emulating the slice of the Dropbox API
// that dbx-xfr uses. Files are kept in memory keyed by lower-cased path.
type FakeDropbox struct {
	Server *httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	failures map[string]Failure
	calls    map[string]int
	lastArgs map[string]map[string]any
}

// NewFakeDropbox starts a fake server that is closed when the test ends.
func NewFakeDropbox(t *testing.T) *FakeDropbox {
	t.Helper()

	f := &FakeDropbox{
		files:    make(map[string][]byte),
		failures: make(map[string]Failure),
		calls:    make(map[string]int),
		lastArgs: make(map[string]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathToken, f.handleToken)
	mux.HandleFunc("POST "+PathCurrentAccount, f.authorized(f.handleAccount))
	mux.HandleFunc("POST "+PathUpload, f.authorized(f.handleUpload))
	mux.HandleFunc("POST "+PathDownload, f.authorized(f.handleDownload))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

// URL is the origin serving every endpoint (API, content and OAuth2).
func (f *FakeDropbox) URL() string {
	return f.Server.URL
}

// TokenURL is the OAuth2 token endpoint.
func (f *FakeDropbox) TokenURL() string {
	return f.Server.URL + PathToken
}

// AuthURL is a placeholder authorize URL; nothing is served there.
func (f *FakeDropbox) AuthURL() string {
	return f.Server.URL + "/oauth2/authorize"
}

// PutFile stores a remote file.
func (f *FakeDropbox) PutFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[strings.ToLower(path)] = append([]byte(nil), data...)
}

// File returns a remote file.
func (f *FakeDropbox) File(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[strings.ToLower(path)]

	return data, ok
}

// Fail makes every later request to path fail with status and body.
func (f *FakeDropbox) Fail(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[path] = Failure{Status: status, Body: body}
}

// Calls returns how many requests reached path.
func (f *FakeDropbox) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[path]
}

// LastArg returns the decoded Dropbox-API-Arg of the last request to path.
func (f *FakeDropbox) LastArg(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastArgs[path]
}

// record counts the call and reports an injected failure, if any.
func (f *FakeDropbox) record(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	failure, failing := f.failures[r.URL.Path]
	f.mu.Unlock()

	if !failing {
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Dropbox-Request-Id", "fake-req")
	w.WriteHeader(failure.Status)
	_, _ = io.WriteString(w, failure.Body)

	return true
}

func (f *FakeDropbox) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.record(w, r) {
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+FakeAccessToken {
			writeJSON(w, http.StatusUnauthorized,
				`{"error_summary": "invalid_access_token/..", "error": {".tag": "invalid_access_token"}}`)

			return
		}

		next(w, r)
	}
}

func (f *FakeDropbox) handleToken(w http.ResponseWriter, r *http.Request) {
	if f.record(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"error": "invalid_request"}`)
		return
	}

	ok := false

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		ok = r.PostForm.Get("code") == FakeAuthCode && r.PostForm.Get("code_verifier") != ""
	case "refresh_token":
		ok = r.PostForm.Get("refresh_token") == FakeRefreshToken
	}

	if !ok {
		writeJSON(w, http.StatusBadRequest,
			`{"error": "invalid_grant", "error_description": "code doesn't exist or has expired"}`)

		return
	}

	body := fmt.Sprintf(`{"access_token": %q, "token_type": "bearer", "expires_in": 14400, "account_id": "dbid:fake"`,
		FakeAccessToken)
	if r.PostForm.Get("grant_type") == "authorization_code" {
		body += fmt.Sprintf(`, "refresh_token": %q`, FakeRefreshToken)
	}

	writeJSON(w, http.StatusOK, body+"}")
}

func (f *FakeDropbox) handleAccount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, `{"account_id": "dbid:fake", "name": {"display_name": "Test User"}, `+
		`"email": "test@example.com", "country": "US"}`)
}

func (f *FakeDropbox) handleUpload(w http.ResponseWriter, r *http.Request) {
	arg, ok := f.decodeArg(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, `{"error": "read failed"}`)
		return
	}

	path, _ := arg["path"].(string)
	f.PutFile(path, data)

	writeJSON(w, http.StatusOK, metadataJSON(path, data))
}

func (f *FakeDropbox) handleDownload(w http.ResponseWriter, r *http.Request) {
	arg, ok := f.decodeArg(w, r)
	if !ok {
		return
	}

	path, _ := arg["path"].(string)

	data, found := f.File(path)
	if !found {
		writeJSON(w, http.StatusConflict, BodyNotFound)
		return
	}

	w.Header().Set("Dropbox-API-Result", metadataJSON(path, data))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (f *FakeDropbox) decodeArg(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var arg map[string]any
	if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"error": "bad Dropbox-API-Arg"}`)
		return nil, false
	}

	f.mu.Lock()
	f.lastArgs[r.URL.Path] = arg
	f.mu.Unlock()

	return arg, true
}

func metadataJSON(path string, data []byte) string {
	name := path[strings.LastIndex(path, "/")+1:]
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	md := map[string]any{
		".tag":            "file",
		"id":              "id:" + strings.ToLower(path),
		"name":            name,
		"path_lower":      strings.ToLower(path),
		"path_display":    path,
		"rev":             "015f",
		"size":            len(data),
		"content_hash":    contenthash.Sum(data),
		"client_modified": now,
		"server_modified": now,
	}

	out, _ := json.Marshal(md)

	return string(out)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
