package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/m3rciful/eldersbot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	keepAlive         = 30 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	responseTimeout   = 5 * time.Second
	clientTimeout     = 30 * time.Second
	httpRetries       = 3
	httpRetryInterval = 500 * time.Millisecond
	httpRetryCeiling  = 4 * time.Second
)

// BuildHTTPClient returns the client telebot uses for Bot API calls. Transient
// transport failures are retried with exponential backoff inside the overall
// client timeout.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: responseTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: httpRetries,
			policy:     exponentialPolicy,
		},
	}
}

func exponentialPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = httpRetryInterval
	b.MaxInterval = httpRetryCeiling
	b.MaxElapsedTime = 0
	return b
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	policy     func() backoff.BackOff
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp    *http.Response
		attempt int
	)
	op := func() error {
		attempt++
		r, err := rewind(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = t.base.RoundTrip(r)
		if err != nil && (!netutil.ShouldRetry(err) || !replayable(req)) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(t.policy(), uint64(t.maxRetries))
	if err := backoff.Retry(op, backoff.WithContext(policy, req.Context())); err != nil {
		return nil, err
	}
	return resp, nil
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns req itself on the first attempt and a clone with a fresh
// body afterwards.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}
