package dropbox

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Dropbox OAuth2 endpoints.
const (
	AuthorizeURL = "https://www.dropbox.com/oauth2/authorize"
	TokenURL     = "https://api.dropboxapi.com/oauth2/token"
)

// DefaultEndpoint is the production OAuth2 endpoint. The app is a public
// client (PKCE, no secret), so credentials travel in the request body.
var DefaultEndpoint = oauth2.Endpoint{
	AuthURL:   AuthorizeURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// ErrNoCode is reported when the operator enters an empty authorization code.
var ErrNoCode = errors.New("dropbox: no authorization code entered")

// ErrNoRefreshToken is reported when the token response lacks a refresh token.
var ErrNoRefreshToken = errors.New("dropbox: token response has no refresh token")

// OAuthConfig builds the oauth2.Config for an app key. No redirect URL:
// Dropbox shows the authorization code on its own page instead.
func OAuthConfig(appKey string, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID: appKey,
		Endpoint: endpoint,
	}
}

// Authenticator runs the interactive "authorization code, PKCE, no redirect,
// offline access" flow over a pair of text streams (normally stdin/stdout).
// It keeps no state between calls besides its IO handles.
type Authenticator struct {
	// Endpoint defaults to DefaultEndpoint. Tests point it at a fake server.
	Endpoint oauth2.Endpoint

	// OpenURL, when set, is called with the authorization URL so the
	// operator's browser opens it. Failures are logged and ignored; the URL
	// is always printed.
	OpenURL func(string) error

	// HTTPClient is used for the code exchange. Nil means http.DefaultClient.
	HTTPClient *http.Client

	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator reading answers from in and
// writing prompts to out.
func NewAuthenticator(in io.Reader, out io.Writer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Authenticator{
		Endpoint: DefaultEndpoint,
		in:       bufio.NewReader(in),
		out:      out,
		logger:   logger,
	}
}

// AuthorizeURL returns the URL the operator visits to approve access.
func (a *Authenticator) AuthorizeURL(appKey, verifier string) string {
	cfg := OAuthConfig(appKey, a.Endpoint)

	return cfg.AuthCodeURL("",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
}

// Exchange trades an authorization code for a token.
func (a *Authenticator) Exchange(ctx context.Context, appKey, code, verifier string) (*oauth2.Token, error) {
	if a.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}

	cfg := OAuthConfig(appKey, a.Endpoint)

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("dropbox: token exchange failed: %w", err)
	}

	return tok, nil
}

// FetchRefreshToken walks the operator through authorization and returns
// the long-lived refresh token. Blocks on input with no timeout. Every
// failure is printed as "Error: ..." and reported as an empty string; the
// flow is never retried.
func (a *Authenticator) FetchRefreshToken(ctx context.Context, appKey string) string {
	tok, err := a.fetch(ctx, appKey)
	if err != nil {
		a.logger.Warn("authorization failed", slog.String("error", err.Error()))
		fmt.Fprintf(a.out, "Error: %v\n", err)

		return ""
	}

	return tok
}

func (a *Authenticator) fetch(ctx context.Context, appKey string) (string, error) {
	verifier := oauth2.GenerateVerifier()
	authURL := a.AuthorizeURL(appKey, verifier)

	a.logger.Info("starting authorization flow (authorization code + PKCE, no redirect)")

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "1. Go to: %s\n", authURL)
	fmt.Fprintln(a.out, `2. Click "Allow" (you might have to log in first).`)
	fmt.Fprintln(a.out, "3. Copy the authorization code.")

	a.launchBrowser(authURL)

	fmt.Fprint(a.out, "Enter the authorization code here: ")

	code, err := a.readLine()
	if err != nil {
		return "", fmt.Errorf("dropbox: reading authorization code: %w", err)
	}

	if code == "" {
		return "", ErrNoCode
	}

	a.logger.Info("received authorization code, exchanging for token")

	tok, err := a.Exchange(ctx, appKey, code, verifier)
	if err != nil {
		return "", err
	}

	if tok.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	a.logger.Info("token exchange successful")

	return tok.RefreshToken, nil
}

// PromptAppKey asks the operator to confirm or replace the app key.
// A blank answer keeps current.
func (a *Authenticator) PromptAppKey(current string) (string, error) {
	fmt.Fprintf(a.out, "App key [%s]: ", current)

	key, err := a.readLine()
	if err != nil {
		return "", err
	}

	if key == "" {
		return current, nil
	}

	return key, nil
}

// launchBrowser tries to open the URL. The URL has already been printed,
// so a failure only costs the operator a copy-paste.
func (a *Authenticator) launchBrowser(authURL string) {
	if a.OpenURL == nil {
		return
	}

	if err := a.OpenURL(authURL); err != nil {
		a.logger.Warn("failed to open browser", slog.String("error", err.Error()))
	}
}

// readLine reads one trimmed line. A final line without a newline is
// accepted; EOF with nothing read is an error.
func (a *Authenticator) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
