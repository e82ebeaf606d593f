// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// The one retrying HTTP client every network-touching component goes
// through. We used to have per-call-site retry loops, they all collapsed
// into this single policy: fixed attempt ceiling, exponential backoff,
// retry on connection errors and on the usual transient status codes
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lefoai/footprints/core/logger"
)

// IFetcher - so components (and tests) don't depend on the concrete client
type IFetcher interface {
	GetBytes(url string) ([]byte, error)
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

const defaultMaxAttempts = 3
const defaultRequestTimeoutSec = 30
const defaultBackoffBase = time.Second

// Client - blocking HTTP GET with retries. Safe for concurrent use, each
// worker goroutine sleeps out its own backoff without blocking the others
type Client struct {
	HTTPClient  *http.Client
	MaxAttempts int
	BackoffBase time.Duration
	Log         logger.ILogger

	// Overridable for tests so they don't actually sleep
	sleep func(time.Duration)
}

func NewClient(log logger.ILogger) *Client {
	return &Client{
		HTTPClient:  &http.Client{Timeout: defaultRequestTimeoutSec * time.Second},
		MaxAttempts: defaultMaxAttempts,
		BackoffBase: defaultBackoffBase,
		Log:         log,
		sleep:       time.Sleep,
	}
}

// GetBytes - fetches a URL, returning the body bytes. Transient failures
// (connection errors, timeouts, 429/5xx) are retried with backoff
// delay = base * 2^attempt. Any other non-200 status fails immediately
func (c *Client) GetBytes(url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(c.BackoffBase * time.Duration(1<<uint(attempt-1)))
		}

		resp, err := c.HTTPClient.Get(url)
		if err != nil {
			lastErr = err
			c.Log.Errorf("Request failed (attempt %v/%v): %v", attempt+1, c.MaxAttempts, err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				c.Log.Errorf("Failed reading body (attempt %v/%v): %v", attempt+1, c.MaxAttempts, err)
				continue
			}
			return body, nil
		}

		resp.Body.Close()

		if !retryableStatus[resp.StatusCode] {
			return nil, fmt.Errorf("failed to fetch %v, HTTP status code: %v", url, resp.StatusCode)
		}

		lastErr = fmt.Errorf("HTTP status code: %v", resp.StatusCode)
		c.Log.Errorf("Request failed (attempt %v/%v): %v", attempt+1, c.MaxAttempts, lastErr)
	}

	return nil, fmt.Errorf("failed to fetch %v after %v attempts: %w", url, c.MaxAttempts, lastErr)
}
