package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	errUtils "github.com/worklab/sessiond/errors"
	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/schema"
)

// Client is an authenticated API client handle. It caches the most recent
// access token and transparently re-authenticates near expiry using the
// already-loaded credential. Safe for concurrent use: at most one token
// refresh is in flight at a time, and callers racing at expiry wait for it
// instead of each triggering their own.
type Client struct {
	cred    *Credential
	conf    *jwt.Config
	timeout time.Duration
	skew    time.Duration

	mu    sync.Mutex
	token *oauth2.Token

	// now is stubbed in tests.
	now func() time.Time
}

const (
	defaultTimeout = 30 * time.Second
	defaultSkew    = 2 * time.Minute
)

// NewClient builds an unauthenticated Client from a loaded credential.
// Call Authenticate (or Bootstrap) before use.
func NewClient(cred *Credential, cfg schema.AuthConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	skew := cfg.ExpirySkew
	if skew <= 0 {
		skew = defaultSkew
	}
	return &Client{
		cred: cred,
		conf: &jwt.Config{
			Email:        cred.ClientEmail,
			PrivateKey:   []byte(cred.PrivateKey),
			PrivateKeyID: cred.PrivateKeyID,
			Scopes:       cfg.Scopes,
			TokenURL:     cred.TokenURI,
		},
		timeout: timeout,
		skew:    skew,
		now:     time.Now,
	}
}

// Email returns the service-account identity the client acts as.
func (c *Client) Email() string {
	return c.cred.ClientEmail
}

// ProjectID returns the credential's project, if present.
func (c *Client) ProjectID() string {
	return c.cred.ProjectID
}

// Authenticate exchanges the credential for an access token. The call is
// bounded by the configured timeout; a timeout is reported as the endpoint
// being unavailable.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// EnsureValid refreshes the cached token if it is expired or within the
// expiry skew. It performs no network call when the token is still fresh.
func (c *Client) EnsureValid(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.validLocked() {
		return nil
	}
	return c.refreshLocked(ctx)
}

// TokenSource returns an oauth2.TokenSource backed by this client, for
// wiring into Google API clients via option.WithTokenSource. The source
// shares the client's cached token and refresh lock.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &clientTokenSource{ctx: ctx, client: c}
}

type clientTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *clientTokenSource) Token() (*oauth2.Token, error) {
	if err := s.client.EnsureValid(s.ctx); err != nil {
		return nil, err
	}
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	return s.client.token, nil
}

// validLocked reports whether the cached token is usable past the expiry
// skew. Callers must hold c.mu.
func (c *Client) validLocked() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return c.now().Add(c.skew).Before(c.token.Expiry)
}

// refreshLocked performs the token exchange. Callers must hold c.mu, which
// is what makes the refresh mutually exclusive.
func (c *Client) refreshLocked(ctx context.Context) error {
	// The jwt source issues its POST without the request context, so a
	// context deadline would never reach the wire. The timeout rides on the
	// HTTP client handed to the source instead.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})

	token, err := c.conf.TokenSource(ctx).Token()
	if err != nil {
		return classifyTokenError(err)
	}
	c.token = token
	log.Debug("access token refreshed", "email", c.cred.ClientEmail, "expiry", token.Expiry)
	return nil
}

// classifyTokenError maps a token-exchange failure onto the bootstrap error
// taxonomy. A definitive remote judgment (4xx, e.g. invalid_grant) is a
// rejection and must not be retried; everything else, including timeouts,
// rate limiting, and 5xx responses, is the endpoint being unavailable.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if resp := retrieveErr.Response; resp != nil &&
			resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusTooManyRequests {
			detail := retrieveErr.ErrorCode
			if detail == "" {
				detail = resp.Status
			}
			return fmt.Errorf("%w: %s: %w", errUtils.ErrAuthRejected, detail, err)
		}
	}
	return fmt.Errorf("%w: %w", errUtils.ErrAuthUnavailable, err)
}
