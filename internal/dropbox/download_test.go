package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorWriter is an io.Writer that always returns an error.
type errorWriter struct{}

func (errorWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestDownload_Success(t *testing.T) {
	content := "file body for download"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/download", r.URL.Path)

		var arg map[string]any
		assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/host/b.txt", arg["path"])

		w.Header().Set("Dropbox-API-Result",
			fmt.Sprintf(`{"name": "b.txt", "size": %d, "content_hash": "h1"}`, len(content)))
		fmt.Fprint(w, content)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	md, n, err := newTestClient(t, srv.URL).Download(context.Background(), "/host/b.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, content, buf.String())
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, "b.txt", md.Name)
	assert.Equal(t, "h1", md.ContentHash)
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error_summary": "path/not_found/..", "error": {".tag": "path", "path": {".tag": "not_found"}}}`)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	_, _, err := newTestClient(t, srv.URL).Download(context.Background(), "/missing", &buf)

	var epErr *EndpointError
	require.ErrorAs(t, err, &epErr)
	assert.True(t, IsNotFound(err))
	assert.Zero(t, buf.Len())
}

func TestDownload_WriterError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Dropbox-API-Result", `{"name": "x", "size": 4}`)
		fmt.Fprint(w, "data")
	}))
	defer srv.Close()

	_, _, err := newTestClient(t, srv.URL).Download(context.Background(), "/x", errorWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "streaming download content")
}

func TestDownload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "try later")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	_, _, err := newTestClient(t, srv.URL).Download(context.Background(), "/x", &buf)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Zero(t, buf.Len())
}
