package relatics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenPath is where every Relatics host serves its OAuth2 token endpoint.
const tokenPath = "/oauth2/token"

// tokenExpiryMargin is how long before expiry a cached token is replaced.
// Relatics tokens are valid for an hour; refreshing five minutes early
// matches the window the webservice documentation recommends.
const tokenExpiryMargin = 5 * time.Minute

// Authentication configures how a webservice call identifies itself.
// A nil Authentication makes anonymous calls; the Authentication element is
// still sent, because Relatics rejects requests without it.
//
// The implementation set is closed: EntryCode and *ClientCredential.
type Authentication interface {
	// authenticate fills the Authentication element of the request body
	// and/or the HTTP headers for the call against baseURL.
	authenticate(ctx context.Context, baseURL string, auth *etree.Element, header http.Header) error
}

// EntryCode authenticates a call with a webservice entry code.
type EntryCode string

func (e EntryCode) authenticate(_ context.Context, _ string, auth *etree.Element, _ http.Header) error {
	auth.CreateElement("Entrycode").SetText(string(e))
	return nil
}

// ClientCredential authenticates calls with OAuth2 client credentials.
// Tokens are requested from the host's token endpoint with the credentials
// in a Basic authorization header, cached per host, and reused until shortly
// before they expire. A ClientCredential is safe for concurrent use and can
// serve clients for multiple hosts.
type ClientCredential struct {
	clientID     string
	clientSecret string

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewClientCredential creates a credential from an OAuth2 client id and
// secret configured in the Relatics workspace.
func NewClientCredential(clientID, clientSecret string) *ClientCredential {
	return &ClientCredential{
		clientID:     clientID,
		clientSecret: clientSecret,
		sources:      make(map[string]oauth2.TokenSource),
	}
}

// Token returns a valid token for the given base URL, requesting a new one
// only when no reusable token is cached.
func (c *ClientCredential) Token(ctx context.Context, baseURL string) (*oauth2.Token, error) {
	c.mu.Lock()
	source, ok := c.sources[baseURL]
	if !ok {
		cfg := &clientcredentials.Config{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			TokenURL:     baseURL + tokenPath,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		// The source outlives this call and refreshes tokens later, so it
		// must not inherit the caller's cancellation.
		source = oauth2.ReuseTokenSourceWithExpiry(nil, cfg.TokenSource(context.WithoutCancel(ctx)), tokenExpiryMargin)
		c.sources[baseURL] = source
	}
	c.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &TokenError{
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
				Err:         err,
			}
		}
		return nil, &TokenError{Err: err}
	}
	return token, nil
}

func (c *ClientCredential) authenticate(ctx context.Context, baseURL string, _ *etree.Element, header http.Header) error {
	token, err := c.Token(ctx, baseURL)
	if err != nil {
		return err
	}
	header.Set("Authorization", "Bearer "+token.AccessToken)
	return nil
}
