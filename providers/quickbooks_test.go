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
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

// memoryTokenStore is a test double for the persisted token store.
type memoryTokenStore struct {
	tokens map[string]*model.ProviderToken
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string]*model.ProviderToken)}
}

func (m *memoryTokenStore) SaveProviderToken(_ context.Context, token *model.ProviderToken) error {
	m.tokens[token.Provider+"/"+token.RealmID] = token
	return nil
}

func (m *memoryTokenStore) GetProviderToken(_ context.Context, provider, realmID string) (*model.ProviderToken, error) {
	token, ok := m.tokens[provider+"/"+realmID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "no token", nil)
	}
	return token, nil
}

func (m *memoryTokenStore) ListProviderTokens(_ context.Context, provider string) ([]*model.ProviderToken, error) {
	var tokens []*model.ProviderToken
	for _, token := range m.tokens {
		if token.Provider == provider {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (m *memoryTokenStore) DeleteProviderToken(_ context.Context, provider, realmID string) error {
	delete(m.tokens, provider+"/"+realmID)
	return nil
}

func testQuickBooks(store TokenStore) *QuickBooks {
	return NewQuickBooks(config.QuickBooksConfig{
		ClientID:    "client",
		Secret:      "secret",
		Environment: "sandbox",
		RedirectURI: "https://localhost/callback",
	}, store)
}

func TestQuickBooksExchangeLink_PersistsToken(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", quickBooksTokenURL,
		httpmock.NewStringResponder(200, `{"access_token": "qb-access", "refresh_token": "qb-refresh", "expires_in": 3600}`))
	httpmock.RegisterResponder("GET", `=~/v3/company/realm-9/companyinfo/realm-9`,
		httpmock.NewStringResponder(200, `{"CompanyInfo": {"CompanyName": "ClayGenius LLC"}}`))

	store := newMemoryTokenStore()
	q := testQuickBooks(store)

	accounts, err := q.ExchangeLink(context.Background(), "auth-code", "realm-9")
	assert.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, "qb_realm-9", accounts[0].SourceAccountID)
	assert.Equal(t, "ClayGenius LLC", accounts[0].AccountName)

	saved := store.tokens[model.SourceQuickBooks+"/realm-9"]
	assert.NotNil(t, saved)
	assert.Equal(t, "qb-access", saved.AccessToken)
	assert.Equal(t, "qb-refresh", saved.RefreshToken)
}

func TestQuickBooksFetchTransactions(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", `=~query=select.*Purchase`,
		httpmock.NewStringResponder(200, `{"QueryResponse": {"Purchase": [
			{"Id": "101", "TxnDate": "2025-08-05", "TotalAmt": 89.99,
			 "AccountRef": {"name": "Office Supplies"}, "EntityRef": {"name": "Staples"}}
		]}}`))
	httpmock.RegisterResponder("GET", `=~query=select.*Invoice`,
		httpmock.NewStringResponder(200, `{"QueryResponse": {"Invoice": [
			{"Id": "55", "TxnDate": "2025-08-06", "TotalAmt": 4500.00,
			 "CustomerRef": {"name": "Acme Corp"}}
		]}}`))

	store := newMemoryTokenStore()
	_ = store.SaveProviderToken(context.Background(), &model.ProviderToken{
		Provider:    model.SourceQuickBooks,
		RealmID:     "realm-9",
		AccessToken: "qb-access",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	q := testQuickBooks(store)
	account := &model.Account{
		SourceAccountID: "qb_realm-9",
		MetaData:        map[string]interface{}{"realm_id": "realm-9"},
	}

	transactions, err := q.FetchTransactions(context.Background(), account, time.Now().AddDate(0, -3, 0), time.Now())
	assert.NoError(t, err)
	assert.Len(t, transactions, 2)

	purchase := transactions[0]
	assert.Equal(t, "qb_purchase_101", purchase.SourceID)
	assert.Equal(t, model.TypeDebit, purchase.Type)
	assert.Equal(t, "Office Supplies", purchase.Category)
	assert.Equal(t, "Staples", purchase.Merchant)

	invoice := transactions[1]
	assert.Equal(t, "qb_invoice_55", invoice.SourceID)
	assert.Equal(t, model.TypeCredit, invoice.Type)
	assert.Equal(t, "Income", invoice.Category)
	assert.Equal(t, 4500.0, invoice.Amount)
}

func TestQuickBooksAccessToken_RefreshesExpired(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", quickBooksTokenURL,
		httpmock.NewStringResponder(200, `{"access_token": "qb-fresh", "refresh_token": "qb-refresh-2", "expires_in": 3600}`))

	store := newMemoryTokenStore()
	_ = store.SaveProviderToken(context.Background(), &model.ProviderToken{
		Provider:     model.SourceQuickBooks,
		RealmID:      "realm-9",
		AccessToken:  "qb-stale",
		RefreshToken: "qb-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})

	q := testQuickBooks(store)
	token, err := q.accessToken(context.Background(), "realm-9")
	assert.NoError(t, err)
	assert.Equal(t, "qb-fresh", token)

	saved := store.tokens[model.SourceQuickBooks+"/realm-9"]
	assert.Equal(t, "qb-refresh-2", saved.RefreshToken)
}

func TestQuickBooksRemoveLink_ForgetsRealmToken(t *testing.T) {
	store := newMemoryTokenStore()
	_ = store.SaveProviderToken(context.Background(), &model.ProviderToken{
		Provider: model.SourceQuickBooks,
		RealmID:  "realm-9",
	})

	q := testQuickBooks(store)
	account := &model.Account{MetaData: map[string]interface{}{"realm_id": "realm-9"}}
	assert.NoError(t, q.RemoveLink(context.Background(), account))

	_, ok := store.tokens[model.SourceQuickBooks+"/realm-9"]
	assert.False(t, ok)
}

func TestQuickBooksAuthorizationURL(t *testing.T) {
	q := testQuickBooks(newMemoryTokenStore())
	u := q.AuthorizationURL("state-1")
	assert.Contains(t, u, "https://appcenter.intuit.com/connect/oauth2?")
	assert.Contains(t, u, "client_id=client")
	assert.Contains(t, u, "state=state-1")
}
