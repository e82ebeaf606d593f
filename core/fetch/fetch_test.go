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

package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lefoai/footprints/core/logger"
)

func makeTestClient(t *testing.T) (*Client, *[]time.Duration) {
	sleeps := []time.Duration{}
	c := NewClient(&logger.NullLogger{})
	c.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return c, &sleeps
}

func TestGetBytesRetriesTransientStatus(t *testing.T) {
	calls := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer svr.Close()

	c, sleeps := makeTestClient(t)
	body, err := c.GetBytes(svr.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(body) != "image-bytes" {
		t.Errorf("unexpected body: %v", string(body))
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %v", calls)
	}

	// Backoff doubles: base*1, base*2
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %v sleeps, got %v", len(want), len(*sleeps))
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Errorf("sleep %v: expected %v, got %v", i, want[i], (*sleeps)[i])
		}
	}
}

func TestGetBytesGivesUpAfterCeiling(t *testing.T) {
	calls := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer svr.Close()

	c, _ := makeTestClient(t)
	_, err := c.GetBytes(svr.URL)
	if err == nil {
		t.Fatalf("expected failure after retry ceiling")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %v", calls)
	}
}

func TestGetBytesDoesNotRetryClientError(t *testing.T) {
	calls := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer svr.Close()

	c, sleeps := makeTestClient(t)
	_, err := c.GetBytes(svr.URL)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if calls != 1 {
		t.Errorf("404 should not be retried, got %v attempts", calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("404 should not back off, got %v sleeps", len(*sleeps))
	}
}
