package client

import (
	"net/http"
	"time"
)

// retryTransport retries idempotent requests on transport errors and 5xx
// responses with exponential backoff.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return base.RoundTrip(req)
	}

	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt >= t.retries {
			return resp, err
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		timer := time.NewTimer(t.backoff * time.Duration(1<<attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}
