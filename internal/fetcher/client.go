// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Failure kinds the coordinator switches on with errors.Is. The client
// never retries on its own, it reports one round trip and gets out of
// the way.
var (
	ErrInvalidStatus       = errors.New("fetcher: invalid status identifier")
	ErrNotFound            = errors.New("fetcher: post not found")
	ErrRateLimited         = errors.New("fetcher: upstream rate limited")
	ErrUpstreamUnavailable = errors.New("fetcher: upstream unavailable")
)

type Client struct {
	httpClient http.Client
	limiter    *rate.Limiter
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration, requestsPerSec float64) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	return &Client{
		httpClient: http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		baseURL: baseURL,
	}
}
