package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modeTag extracts the write mode from a decoded Dropbox-API-Arg, which
// carries unions either as {".tag": "x"} or as a bare string.
func modeTag(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case map[string]any:
		tag, _ := m[".tag"].(string)
		return tag
	default:
		return ""
	}
}

func TestUpload_Success(t *testing.T) {
	content := "hello dropbox"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/upload", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, int64(len(content)), r.ContentLength)

		var arg map[string]any
		assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/host/a.txt", arg["path"])
		assert.Equal(t, "overwrite", modeTag(arg["mode"]))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, content, string(body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "a.txt", "path_display": "/host/a.txt", "rev": "r1", "size": %d,
			"content_hash": "abc", "server_modified": "2024-05-01T10:00:00Z"}`, len(content))
	}))
	defer srv.Close()

	md, err := newTestClient(t, srv.URL).Upload(context.Background(), "/host/a.txt",
		io.MultiReader(strings.NewReader(content)), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", md.Name)
	assert.Equal(t, "/host/a.txt", md.PathDisplay)
	assert.Equal(t, uint64(len(content)), md.Size)
	assert.Equal(t, "abc", md.ContentHash)
	assert.Equal(t, 2024, md.ServerModified.Year())
}

func TestUpload_InsufficientSpace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error_summary": "path/insufficient_space/..",
			"error": {".tag": "path", "reason": {".tag": "insufficient_space"}, "upload_session_id": "s1"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), "/x", strings.NewReader("x"), 1)

	var epErr *EndpointError
	require.ErrorAs(t, err, &epErr)
	assert.True(t, IsInsufficientSpace(err))
	assert.Empty(t, epErr.UserMessage)
}

func TestUpload_UserMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error_summary": "path/disallowed_name/..",
			"error": {".tag": "path", "reason": {".tag": "disallowed_name"}, "upload_session_id": "s1"},
			"user_message": {"locale": "en", "text": "That name is not allowed."}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), "/x", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Equal(t, "That name is not allowed.", UserMessage(err))
	assert.False(t, IsInsufficientSpace(err))

	ue, ok := UploadFailure(err)
	require.True(t, ok)
	assert.Equal(t, "path", ue.Tag)
}

func TestUpload_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("oversized upload must not be sent")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), "/big", strings.NewReader(""), SimpleUploadMaxSize+1)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUpload_BadResponseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), "/x", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), endpointUpload)

	var epErr *EndpointError
	assert.False(t, errors.As(err, &epErr))
}
