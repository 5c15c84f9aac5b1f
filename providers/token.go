/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package providers

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// tokenState is a lazy, expiring cache for client-credentials access tokens.
// The token is refreshed 60 seconds before the provider-reported expiry so an
// in-flight request never carries a token that lapses mid-call.
type tokenState struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// fetch performs the actual token grant, returning the token and its
	// lifetime in seconds.
	fetch func(ctx context.Context) (string, int, error)
}

const tokenEarlyExpiry = 60 * time.Second

// get returns the cached token, fetching a fresh one when absent or near
// expiry. Fetches retry with capped exponential backoff; transient token
// endpoint hiccups do not fail a whole sync run.
func (t *tokenState) get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt) {
		return t.token, nil
	}

	var token string
	var expiresIn int
	operation := func() error {
		var err error
		token, expiresIn, err = t.fetch(ctx)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	t.token = token
	t.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenEarlyExpiry)
	return t.token, nil
}

// invalidate discards the cached token, forcing the next get to re-fetch.
func (t *tokenState) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
