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
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

const quickBooksTokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

// TokenStore persists per-realm OAuth credentials so QuickBooks connections
// survive process restarts.
type TokenStore interface {
	SaveProviderToken(ctx context.Context, token *model.ProviderToken) error
	GetProviderToken(ctx context.Context, provider, realmID string) (*model.ProviderToken, error)
	ListProviderTokens(ctx context.Context, provider string) ([]*model.ProviderToken, error)
	DeleteProviderToken(ctx context.Context, provider, realmID string) error
}

// QuickBooks is the accounting-SaaS adapter. Each linked company (realm) is
// one account; purchases come back as debits, invoices as credits. Tokens are
// looked up and refreshed through the store on every call.
type QuickBooks struct {
	conf    config.QuickBooksConfig
	baseURL string
	client  *http.Client
	store   TokenStore
}

func NewQuickBooks(conf config.QuickBooksConfig, store TokenStore) *QuickBooks {
	baseURL := "https://sandbox-quickbooks.api.intuit.com"
	if conf.Environment == "production" {
		baseURL = "https://quickbooks.api.intuit.com"
	}
	return &QuickBooks{conf: conf, baseURL: baseURL, client: httpClient(), store: store}
}

func (q *QuickBooks) Source() string { return model.SourceQuickBooks }

// AuthorizationURL builds the consent URL the user visits to link a company.
func (q *QuickBooks) AuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", q.conf.ClientID)
	params.Set("response_type", "code")
	params.Set("scope", "com.intuit.quickbooks.accounting com.intuit.quickbooks.payment")
	params.Set("redirect_uri", q.conf.RedirectURI)
	params.Set("state", state)
	return "https://appcenter.intuit.com/connect/oauth2?" + params.Encode()
}

type quickBooksTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (q *QuickBooks) tokenGrant(ctx context.Context, form url.Values) (*quickBooksTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, quickBooksTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(q.conf.ClientID, q.conf.Secret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var response quickBooksTokenResponse
	resp, err := request.CallWithClient(q.client, req, &response)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return &response, nil
}

func (q *QuickBooks) saveToken(ctx context.Context, realmID string, grant *quickBooksTokenResponse) error {
	return q.store.SaveProviderToken(ctx, &model.ProviderToken{
		Provider:     model.SourceQuickBooks,
		RealmID:      realmID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	})
}

// accessToken returns a live access token for the realm, refreshing through
// the store when the persisted one has lapsed.
func (q *QuickBooks) accessToken(ctx context.Context, realmID string) (string, error) {
	token, err := q.store.GetProviderToken(ctx, model.SourceQuickBooks, realmID)
	if err != nil {
		return "", err
	}
	if !token.Expired() {
		return token.AccessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token.RefreshToken)
	grant, err := q.tokenGrant(ctx, form)
	if err != nil {
		return "", providerError(q.Source(), "token refresh", err)
	}
	if err := q.saveToken(ctx, realmID, grant); err != nil {
		return "", err
	}
	return grant.AccessToken, nil
}

// ExchangeLink swaps an OAuth authorization code for tokens, persists them
// keyed by realm, and returns the company as an account.
func (q *QuickBooks) ExchangeLink(ctx context.Context, code, realmID string) ([]*model.Account, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", q.conf.RedirectURI)
	grant, err := q.tokenGrant(ctx, form)
	if err != nil {
		return nil, providerError(q.Source(), "token exchange", err)
	}
	if err := q.saveToken(ctx, realmID, grant); err != nil {
		return nil, err
	}

	companyName, err := q.companyName(ctx, realmID, grant.AccessToken)
	if err != nil {
		companyName = "QuickBooks Company " + realmID
	}

	account := &model.Account{
		Source:          model.SourceQuickBooks,
		SourceAccountID: "qb_" + realmID,
		InstitutionName: "QuickBooks",
		AccountName:     companyName,
		AccountType:     model.AccountChecking,
		Currency:        "USD",
		IsActive:        true,
		MetaData:        map[string]interface{}{"realm_id": realmID},
	}
	return []*model.Account{account}, nil
}

// RemoveLink drops the persisted realm credential. QuickBooks has no remote
// revocation worth calling for client-side disconnects; forgetting the token
// severs the connection.
func (q *QuickBooks) RemoveLink(ctx context.Context, account *model.Account) error {
	realmID, _ := account.MetaData["realm_id"].(string)
	if realmID == "" {
		return nil
	}
	return q.store.DeleteProviderToken(ctx, model.SourceQuickBooks, realmID)
}

// LinkedCompanies lists the realms with a persisted credential.
func (q *QuickBooks) LinkedCompanies(ctx context.Context) ([]*model.ProviderToken, error) {
	return q.store.ListProviderTokens(ctx, model.SourceQuickBooks)
}

func (q *QuickBooks) companyName(ctx context.Context, realmID, token string) (string, error) {
	endpoint := fmt.Sprintf("%s/v3/company/%s/companyinfo/%s", q.baseURL, realmID, realmID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var response struct {
		CompanyInfo struct {
			CompanyName string `json:"CompanyName"`
		} `json:"CompanyInfo"`
	}
	resp, err := request.CallWithClient(q.client, req, &response)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %d fetching company info", resp.StatusCode)
	}
	return response.CompanyInfo.CompanyName, nil
}

func (q *QuickBooks) query(ctx context.Context, realmID, token, query string, out interface{}) error {
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s", q.baseURL, realmID, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := request.CallWithClient(q.client, req, out)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from query", resp.StatusCode)
	}
	return nil
}

// realmOf recovers the realm id an account was linked under.
func realmOf(account *model.Account) string {
	if account.MetaData != nil {
		if realm, ok := account.MetaData["realm_id"].(string); ok && realm != "" {
			return realm
		}
	}
	return strings.TrimPrefix(account.SourceAccountID, "qb_")
}

type quickBooksPurchase struct {
	ID          string  `json:"Id"`
	TxnDate     string  `json:"TxnDate"`
	TotalAmt    float64 `json:"TotalAmt"`
	PrivateNote string  `json:"PrivateNote"`
	SyncToken   string  `json:"SyncToken"`
	AccountRef  struct {
		Name string `json:"name"`
	} `json:"AccountRef"`
	EntityRef struct {
		Name string `json:"name"`
	} `json:"EntityRef"`
	Line []struct {
		Description string `json:"Description"`
	} `json:"Line"`
}

type quickBooksInvoice struct {
	ID          string  `json:"Id"`
	TxnDate     string  `json:"TxnDate"`
	TotalAmt    float64 `json:"TotalAmt"`
	PrivateNote string  `json:"PrivateNote"`
	SyncToken   string  `json:"SyncToken"`
	CustomerRef struct {
		Name string `json:"name"`
	} `json:"CustomerRef"`
}

// FetchTransactions queries purchases (debits) and invoices (credits) over
// the window. The source id carries the record kind, keeping purchase and
// invoice ids from colliding in the upsert key space.
func (q *QuickBooks) FetchTransactions(ctx context.Context, account *model.Account, start, end time.Time) ([]*model.Transaction, error) {
	realmID := realmOf(account)
	token, err := q.accessToken(ctx, realmID)
	if err != nil {
		return nil, providerError(q.Source(), "token lookup", err)
	}

	startDate := start.Format("2006-01-02")
	endDate := end.Format("2006-01-02")

	var purchases struct {
		QueryResponse struct {
			Purchase []quickBooksPurchase `json:"Purchase"`
		} `json:"QueryResponse"`
	}
	expenseQuery := fmt.Sprintf("select * from Purchase where TxnDate >= '%s' and TxnDate <= '%s'", startDate, endDate)
	if err := q.query(ctx, realmID, token, expenseQuery, &purchases); err != nil {
		return nil, providerError(q.Source(), "purchases fetch", err)
	}

	var invoices struct {
		QueryResponse struct {
			Invoice []quickBooksInvoice `json:"Invoice"`
		} `json:"QueryResponse"`
	}
	incomeQuery := fmt.Sprintf("select * from Invoice where TxnDate >= '%s' and TxnDate <= '%s'", startDate, endDate)
	if err := q.query(ctx, realmID, token, incomeQuery, &invoices); err != nil {
		return nil, providerError(q.Source(), "invoices fetch", err)
	}

	var transactions []*model.Transaction
	for _, purchase := range purchases.QueryResponse.Purchase {
		txn, err := q.normalizePurchase(account, purchase)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	for _, invoice := range invoices.QueryResponse.Invoice {
		txn, err := q.normalizeInvoice(account, invoice)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

func (q *QuickBooks) normalizePurchase(account *model.Account, purchase quickBooksPurchase) (*model.Transaction, error) {
	date, err := time.Parse("2006-01-02", purchase.TxnDate)
	if err != nil {
		return nil, providerError(q.Source(), "purchase date parse", err)
	}

	description := purchase.PrivateNote
	if description == "" && len(purchase.Line) > 0 {
		description = purchase.Line[0].Description
	}
	if description == "" {
		description = "QuickBooks Expense"
	}

	category := purchase.AccountRef.Name
	if category == "" {
		category = "Uncategorized"
	}
	merchant := purchase.EntityRef.Name
	if merchant == "" {
		merchant = "Unknown"
	}

	return &model.Transaction{
		Source:      model.SourceQuickBooks,
		SourceID:    fmt.Sprintf("qb_purchase_%s", purchase.ID),
		AccountID:   account.SourceAccountID,
		Company:     model.CompanyUnallocated,
		Date:        date,
		Amount:      purchase.TotalAmt,
		Currency:    "USD",
		Description: description,
		Merchant:    merchant,
		Category:    category,
		Type:        model.TypeDebit,
		MetaData: map[string]interface{}{
			"quickbooks_id": purchase.ID,
			"sync_token":    purchase.SyncToken,
		},
	}, nil
}

func (q *QuickBooks) normalizeInvoice(account *model.Account, invoice quickBooksInvoice) (*model.Transaction, error) {
	date, err := time.Parse("2006-01-02", invoice.TxnDate)
	if err != nil {
		return nil, providerError(q.Source(), "invoice date parse", err)
	}

	description := invoice.PrivateNote
	if description == "" {
		description = "QuickBooks Income"
	}
	merchant := invoice.CustomerRef.Name
	if merchant == "" {
		merchant = "Unknown"
	}

	return &model.Transaction{
		Source:      model.SourceQuickBooks,
		SourceID:    fmt.Sprintf("qb_invoice_%s", invoice.ID),
		AccountID:   account.SourceAccountID,
		Company:     model.CompanyUnallocated,
		Date:        date,
		Amount:      invoice.TotalAmt,
		Currency:    "USD",
		Description: description,
		Merchant:    merchant,
		Category:    "Income",
		Type:        model.TypeCredit,
		MetaData: map[string]interface{}{
			"quickbooks_id": invoice.ID,
			"sync_token":    invoice.SyncToken,
		},
	}, nil
}

// FetchBalance: QuickBooks has no balance feed for a linked company; the
// nil/nil return tells the engine to skip the balance step.
func (q *QuickBooks) FetchBalance(_ context.Context, _ *model.Account) (*model.ProviderBalance, error) {
	return nil, nil
}

// ProfitAndLoss fetches the vendor-computed P&L report for the window.
func (q *QuickBooks) ProfitAndLoss(ctx context.Context, account *model.Account, start, end time.Time) (map[string]interface{}, error) {
	realmID := realmOf(account)
	token, err := q.accessToken(ctx, realmID)
	if err != nil {
		return nil, providerError(q.Source(), "token lookup", err)
	}

	endpoint := fmt.Sprintf("%s/v3/company/%s/reports/ProfitAndLoss?start_date=%s&end_date=%s",
		q.baseURL, realmID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var report map[string]interface{}
	resp, err := request.CallWithClient(q.client, req, &report)
	if err != nil {
		return nil, providerError(q.Source(), "profit and loss fetch", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, providerError(q.Source(), "profit and loss fetch", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return report, nil
}
