package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/worklab/sessiond/errors"
	"github.com/worklab/sessiond/pkg/schema"
)

// tokenEndpoint is a fake OAuth token endpoint. It counts hits atomically so
// tests can assert on the number of network calls.
type tokenEndpoint struct {
	hits    atomic.Int64
	handler http.HandlerFunc
	server  *httptest.Server
}

func newTokenEndpoint(t *testing.T, handler http.HandlerFunc) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{handler: handler}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		te.hits.Add(1)
		te.handler(w, r)
	}))
	t.Cleanup(te.server.Close)
	return te
}

func grantToken(expiresIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"ya29.test-token","token_type":"Bearer","expires_in":%d}`, expiresIn)
	}
}

func denyGrant(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
}

func serverError(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func testCredential(t *testing.T, tokenURI string) *Credential {
	t.Helper()
	path := writeCredentialFile(t, map[string]any{
		"type":         "service_account",
		"project_id":   "worklab-sessions",
		"private_key":  testPrivateKeyPEM(t),
		"client_email": "sessiond@worklab-sessions.iam.gserviceaccount.com",
		"token_uri":    tokenURI,
	})
	cred, err := LoadCredential(path)
	require.NoError(t, err)
	return cred
}

func testAuthConfig() schema.AuthConfig {
	return schema.AuthConfig{
		Scopes:     []string{"https://www.googleapis.com/auth/calendar"},
		Timeout:    5 * time.Second,
		ExpirySkew: 2 * time.Minute,
	}
}

func TestAuthenticate_Success(t *testing.T) {
	te := newTokenEndpoint(t, grantToken(3600))
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	require.NoError(t, client.Authenticate(context.Background()))

	tok, err := client.TokenSource(context.Background()).Token()
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", tok.AccessToken)
	assert.True(t, tok.Expiry.After(time.Now()), "token must not be expired")
	assert.EqualValues(t, 1, te.hits.Load())
}

func TestAuthenticate_InvalidGrantIsRejected(t *testing.T) {
	te := newTokenEndpoint(t, denyGrant)
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrAuthRejected)
	assert.NotErrorIs(t, err, errUtils.ErrAuthUnavailable)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestAuthenticate_ServerErrorIsUnavailable(t *testing.T) {
	te := newTokenEndpoint(t, serverError)
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, errUtils.ErrAuthUnavailable)
}

func TestAuthenticate_UnreachableEndpointIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(testCredential(t, url), testAuthConfig())
	err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, errUtils.ErrAuthUnavailable)
}

func TestAuthenticate_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	te := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		grantToken(3600)(w, r)
	})
	t.Cleanup(func() { close(release) })

	cfg := testAuthConfig()
	cfg.Timeout = 20 * time.Millisecond
	client := NewClient(testCredential(t, te.server.URL), cfg)

	start := time.Now()
	err := client.Authenticate(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, errUtils.ErrAuthUnavailable)
	assert.Less(t, elapsed, 5*time.Second, "a hung endpoint must not block past the configured timeout")
}

func TestAuthenticate_RateLimitIsUnavailable(t *testing.T) {
	te := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate_limit_exceeded"}`, http.StatusTooManyRequests)
	})
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, errUtils.ErrAuthUnavailable)
	assert.NotErrorIs(t, err, errUtils.ErrAuthRejected, "rate limiting is transient and must stay retryable")
}

func TestEnsureValid_FreshTokenMakesNoNetworkCall(t *testing.T) {
	te := newTokenEndpoint(t, grantToken(3600))
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	require.NoError(t, client.Authenticate(context.Background()))
	require.NoError(t, client.EnsureValid(context.Background()))
	require.NoError(t, client.EnsureValid(context.Background()))

	assert.EqualValues(t, 1, te.hits.Load(), "EnsureValid on a fresh token must not hit the endpoint")
}

func TestEnsureValid_RefreshesNearExpiry(t *testing.T) {
	te := newTokenEndpoint(t, grantToken(3600))
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	require.NoError(t, client.Authenticate(context.Background()))
	require.EqualValues(t, 1, te.hits.Load())

	// Move the clock to one minute before expiry, inside the 2m skew.
	client.now = func() time.Time { return time.Now().Add(3600*time.Second - time.Minute) }

	require.NoError(t, client.EnsureValid(context.Background()))
	assert.EqualValues(t, 2, te.hits.Load(), "near-expiry token must be refreshed")
}

func TestEnsureValid_ConcurrentRefreshIsSingleFlight(t *testing.T) {
	te := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		// Hold the exchange open long enough for every waiter to pile up on
		// the refresh lock.
		time.Sleep(50 * time.Millisecond)
		grantToken(3600)(w, r)
	})
	client := NewClient(testCredential(t, te.server.URL), testAuthConfig())

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.EnsureValid(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.EqualValues(t, 1, te.hits.Load(), "racing callers must share a single in-flight refresh")

	tok, err := client.TokenSource(context.Background()).Token()
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", tok.AccessToken)
}
