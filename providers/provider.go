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

// Package providers holds one adapter per external financial data source.
// Each adapter translates its vendor's API responses into the canonical
// Transaction/Account/Debt shapes; nothing vendor-specific leaks past this
// package. Capabilities beyond the basic feed (debt feeds, link exchange,
// unlinking) are expressed as small optional interfaces the sync engine
// asserts at the call site.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

// Provider is the minimal contract: every adapter names its source.
type Provider interface {
	Source() string
}

// TransactionFetcher pulls the provider's transaction feed for one account
// over a date window. Adapters with incremental (cursor) feeds may ignore the
// window and mutate the account's sync cursor in its metadata instead; the
// engine persists the account after a successful sync.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, account *model.Account, start, end time.Time) ([]*model.Transaction, error)
}

// BalanceFetcher reports the provider's current balance for one account.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, account *model.Account) (*model.ProviderBalance, error)
}

// Adapter is the full transaction-feed contract most providers implement.
type Adapter interface {
	Provider
	TransactionFetcher
	BalanceFetcher
}

// DebtFetcher is implemented by providers that feed liabilities rather than
// (or in addition to) transactions.
type DebtFetcher interface {
	FetchDebts(ctx context.Context) ([]*model.Debt, error)
}

// LiabilityFetcher is implemented by transaction-feed providers that also
// expose per-account liabilities (credit card debt on a banking item).
type LiabilityFetcher interface {
	FetchLiabilities(ctx context.Context, account *model.Account) ([]*model.Debt, error)
}

// LinkExchanger turns a provider link code (public token, OAuth code) into
// live accounts.
type LinkExchanger interface {
	ExchangeLink(ctx context.Context, code, realmID string) ([]*model.Account, error)
}

// Unlinker revokes a provider connection.
type Unlinker interface {
	RemoveLink(ctx context.Context, account *model.Account) error
}

// Registry holds the configured providers keyed by source name. Dispatch goes
// through the registry; call sites never branch on provider name strings.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Re-registering a source replaces it without
// changing its position in the sync order.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Source()]; !exists {
		r.order = append(r.order, p.Source())
	}
	r.providers[p.Source()] = p
}

func (r *Registry) Get(source string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[source]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Provider '%s' is not configured", source), nil)
	}
	return p, nil
}

// Sources returns source names in registration order, which is also the
// sequential sync order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]string, len(r.order))
	copy(sources, r.order)
	return sources
}

// httpClient builds the shared outbound client, bounded by the configured
// provider timeout so one stalled vendor cannot hang a sync run.
func httpClient() *http.Client {
	timeout := 30 * time.Second
	if cnf, err := config.Fetch(); err == nil && cnf.Providers.TimeoutSec > 0 {
		timeout = time.Duration(cnf.Providers.TimeoutSec) * time.Second
	}
	return request.NewClient(timeout)
}

func providerError(source, operation string, err error) error {
	return apierror.NewAPIError(apierror.ErrProvider, fmt.Sprintf("%s: %s failed", source, operation), err)
}
