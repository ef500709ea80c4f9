// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package nodeclient

import (
	"net/http"
	"time"
)

const (
	// retryInitialInterval is the first backoff delay after a failed
	// connection attempt.
	retryInitialInterval = 2 * time.Millisecond

	// retryMaxInterval caps the backoff delay.
	retryMaxInterval = 128 * time.Millisecond
)

// retryHTTP runs send until it returns a response, retrying connection
// failures with exponential backoff until the client's retry deadline.  A
// response with a non-2xx status is not retried and surfaces as a
// RequestFailureError.
func (c *Client) retryHTTP(path string, send func() (*http.Response, error)) (*http.Response, error) {
	deadline := time.Now().Add(c.retryTimeout)
	interval := retryInitialInterval
	for {
		resp, err := send()
		if err == nil {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				status := resp.StatusCode
				resp.Body.Close()
				return nil, RequestFailureError(status)
			}
			return resp, nil
		}

		log.Debugf("Failed to connect to %s: %v.  Next attempt in %v", path,
			err, interval)
		if time.Now().Add(interval).After(deadline) {
			return nil, ErrRetryTimeout
		}
		time.Sleep(interval)
		interval *= 2
		if interval > retryMaxInterval {
			interval = retryMaxInterval
		}
	}
}
