package netutil

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var errDial = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	calls := 0
	client := NewClient(ClientOptions{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, errDial
			}
			return okResponse(), nil
		}),
	})

	resp, err := client.Get("http://payments.test/api/auth/me")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, 3, calls)
}

func TestRetryTransportReplaysBody(t *testing.T) {
	var bodies []string
	client := NewClient(ClientOptions{
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			bodies = append(bodies, string(b))
			if len(bodies) == 1 {
				return nil, errDial
			}
			return okResponse(), nil
		}),
	})

	resp, err := client.Post("http://payments.test/x", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
}

func TestRetryTransportIdempotentOnly(t *testing.T) {
	calls := 0
	client := NewClient(ClientOptions{
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
		IdempotentOnly: true,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return nil, errDial
		}),
	})

	_, err := client.Post("http://payments.test/api/transfers/send", "application/json", strings.NewReader(`{}`))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("boom")))
	assert.True(t, ShouldRetry(errDial))
	assert.True(t, ShouldRetry(&url.Error{Op: "Get", URL: "http://x", Err: errDial}))
	assert.True(t, ShouldRetry(&net.DNSError{IsTimeout: true}))
	assert.False(t, ShouldRetry(&net.DNSError{IsNotFound: true}))
}
