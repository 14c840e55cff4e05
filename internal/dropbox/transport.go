package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const headerRequestID = "X-Dropbox-Request-Id"

// exchange is what the transport observed for the last response.
type exchange struct {
	status      int
	requestID   string
	userMessage string
}

// transport sits between the SDK and the network. It binds each request to
// the caller's context (the SDK builds requests without one), sets the user
// agent and declared length, and records the response status. Dropbox sends
// user_message as an object the SDK does not model, so 409 bodies have it
// lifted out before the SDK decodes them.
type transport struct {
	base      http.RoundTripper
	userAgent string

	ctx           context.Context
	contentLength int64
	last          exchange
}

// start resets the recorded exchange for a new call.
func (t *transport) start(ctx context.Context, contentLength int64) {
	t.ctx = ctx
	t.contentLength = contentLength
	t.last = exchange{}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := t.ctx
	if ctx == nil {
		ctx = req.Context()
	}

	out := req.Clone(ctx)
	out.Header.Set("User-Agent", t.userAgent)

	if out.Body != nil && t.contentLength > 0 {
		out.ContentLength = t.contentLength
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	t.last = exchange{status: resp.StatusCode, requestID: resp.Header.Get(headerRequestID)}

	if resp.StatusCode != http.StatusConflict {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()

	if err != nil {
		return nil, err
	}

	t.last.userMessage, body = liftUserMessage(body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	return resp, nil
}

// liftUserMessage returns the user_message text of an error body and the
// body without that member. Bodies that are not JSON objects come back
// unchanged.
func liftUserMessage(body []byte) (string, []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", body
	}

	raw, ok := fields["user_message"]
	if !ok {
		return "", body
	}

	delete(fields, "user_message")

	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Some endpoints send the text as a bare string.
		_ = json.Unmarshal(raw, &msg.Text)
	}

	stripped, err := json.Marshal(fields)
	if err != nil {
		return msg.Text, body
	}

	return msg.Text, stripped
}
