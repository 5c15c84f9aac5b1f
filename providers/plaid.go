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
	"strings"
	"time"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

// plaidCursorKey is where the incremental sync cursor lives in the account's
// metadata. The engine persists the account after each sync, carrying the
// cursor forward.
const plaidCursorKey = "plaid_cursor"

var plaidEnvironments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Plaid is the banking-feed adapter. Credentials ride in every request body,
// per the vendor's API convention.
type Plaid struct {
	conf    config.PlaidConfig
	baseURL string
	client  *http.Client
}

func NewPlaid(conf config.PlaidConfig) *Plaid {
	baseURL, ok := plaidEnvironments[conf.Environment]
	if !ok {
		baseURL = plaidEnvironments["sandbox"]
	}
	return &Plaid{conf: conf, baseURL: baseURL, client: httpClient()}
}

func (p *Plaid) Source() string { return model.SourcePlaid }

func (p *Plaid) post(ctx context.Context, path string, payload map[string]interface{}, out interface{}) error {
	payload["client_id"] = p.conf.ClientID
	payload["secret"] = p.conf.Secret

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return err
	}
	resp, err := request.CallWithClient(p.client, req, out)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return nil
}

// CreateLinkToken starts the account linking flow for the hosted Link widget.
func (p *Plaid) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	var response struct {
		LinkToken string `json:"link_token"`
	}
	payload := map[string]interface{}{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   "Tally",
		"products":      strings.Split(p.conf.Products, ","),
		"country_codes": strings.Split(p.conf.CountryCode, ","),
		"language":      "en",
	}
	if err := p.post(ctx, "/link/token/create", payload, &response); err != nil {
		return "", providerError(p.Source(), "link token create", err)
	}
	return response.LinkToken, nil
}

type plaidAccount struct {
	AccountID    string `json:"account_id"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	Mask         string `json:"mask"`
	Type         string `json:"type"`
	Subtype      string `json:"subtype"`
	Balances     struct {
		Current         float64  `json:"current"`
		Available       *float64 `json:"available"`
		Limit           *float64 `json:"limit"`
		IsoCurrencyCode string   `json:"iso_currency_code"`
	} `json:"balances"`
}

func (pa plaidAccount) currency() string {
	if pa.Balances.IsoCurrencyCode == "" {
		return "USD"
	}
	return pa.Balances.IsoCurrencyCode
}

// accountType maps the upstream type/subtype pair onto the normalized account
// types. Banking feeds report checking and savings under a "depository"
// umbrella with the detail pushed into the subtype.
func (pa plaidAccount) accountType() string {
	if pa.Type == "depository" {
		switch pa.Subtype {
		case "savings":
			return model.AccountSavings
		default:
			return model.AccountChecking
		}
	}
	return pa.Type
}

// ExchangeLink swaps a public token from the Link widget for a permanent
// access token and returns the item's accounts, credentialed and ready to
// store. Plaid has no tenancy, so realmID is ignored.
func (p *Plaid) ExchangeLink(ctx context.Context, publicToken, _ string) ([]*model.Account, error) {
	var exchange struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	err := p.post(ctx, "/item/public_token/exchange", map[string]interface{}{"public_token": publicToken}, &exchange)
	if err != nil {
		return nil, providerError(p.Source(), "public token exchange", err)
	}

	var accountsResp struct {
		Accounts []plaidAccount `json:"accounts"`
		Item     struct {
			InstitutionID string `json:"institution_id"`
		} `json:"item"`
	}
	err = p.post(ctx, "/accounts/get", map[string]interface{}{"access_token": exchange.AccessToken}, &accountsResp)
	if err != nil {
		return nil, providerError(p.Source(), "accounts fetch", err)
	}

	accounts := make([]*model.Account, 0, len(accountsResp.Accounts))
	for _, pa := range accountsResp.Accounts {
		account := &model.Account{
			Source:          model.SourcePlaid,
			SourceAccountID: pa.AccountID,
			AccessToken:     exchange.AccessToken,
			InstitutionName: accountsResp.Item.InstitutionID,
			AccountName:     pa.Name,
			AccountType:     pa.accountType(),
			AccountSubtype:  pa.Subtype,
			Mask:            pa.Mask,
			CurrentBalance:  pa.Balances.Current,
			CreditLimit:     pa.Balances.Limit,
			Currency:        pa.currency(),
			IsActive:        true,
		}
		account.UpdateBalance(pa.Balances.Current, pa.Balances.Available)
		accounts = append(accounts, account)
	}
	return accounts, nil
}

type plaidTransaction struct {
	TransactionID   string   `json:"transaction_id"`
	AccountID       string   `json:"account_id"`
	Amount          float64  `json:"amount"`
	Date            string   `json:"date"`
	Name            string   `json:"name"`
	MerchantName    string   `json:"merchant_name"`
	Category        []string `json:"category"`
	Pending         bool     `json:"pending"`
	IsoCurrencyCode string   `json:"iso_currency_code"`
	PaymentChannel  string   `json:"payment_channel"`
	Location        struct {
		Address string `json:"address"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
}

// FetchTransactions walks the incremental sync feed from the account's stored
// cursor, so the date window is advisory: the first sync returns full
// history, later syncs only the delta. Modified transactions (pending to
// posted, amount corrections) flow through the same path and land as upserts.
func (p *Plaid) FetchTransactions(ctx context.Context, account *model.Account, _, _ time.Time) ([]*model.Transaction, error) {
	cursor := ""
	if account.MetaData != nil {
		if stored, ok := account.MetaData[plaidCursorKey].(string); ok {
			cursor = stored
		}
	}

	var transactions []*model.Transaction
	for {
		var page struct {
			Added      []plaidTransaction `json:"added"`
			Modified   []plaidTransaction `json:"modified"`
			HasMore    bool               `json:"has_more"`
			NextCursor string             `json:"next_cursor"`
		}
		payload := map[string]interface{}{"access_token": account.AccessToken}
		if cursor != "" {
			payload["cursor"] = cursor
		}
		if err := p.post(ctx, "/transactions/sync", payload, &page); err != nil {
			return nil, providerError(p.Source(), "transactions sync", err)
		}

		for _, pt := range append(page.Added, page.Modified...) {
			txn, err := p.normalize(pt)
			if err != nil {
				return nil, err
			}
			transactions = append(transactions, txn)
		}

		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if account.MetaData == nil {
		account.MetaData = map[string]interface{}{}
	}
	account.MetaData[plaidCursorKey] = cursor
	return transactions, nil
}

// normalize maps one feed entry onto the canonical shape. The provider's
// category taxonomy is trusted: first element is the category, second the
// subcategory, "Other" when absent. Positive amounts are money leaving the
// account.
func (p *Plaid) normalize(pt plaidTransaction) (*model.Transaction, error) {
	date, err := time.Parse("2006-01-02", pt.Date)
	if err != nil {
		return nil, providerError(p.Source(), "transaction date parse", err)
	}

	category := "Other"
	subcategory := ""
	if len(pt.Category) > 0 {
		category = pt.Category[0]
	}
	if len(pt.Category) > 1 {
		subcategory = pt.Category[1]
	}

	txnType := model.TypeDebit
	if pt.Amount < 0 {
		txnType = model.TypeCredit
	}

	currency := pt.IsoCurrencyCode
	if currency == "" {
		currency = "USD"
	}

	txn := &model.Transaction{
		Source:      model.SourcePlaid,
		SourceID:    pt.TransactionID,
		AccountID:   pt.AccountID,
		Company:     model.CompanyUnallocated,
		Date:        date,
		Amount:      abs(pt.Amount),
		Currency:    currency,
		Description: pt.Name,
		Merchant:    pt.MerchantName,
		Category:    category,
		Subcategory: subcategory,
		Type:        txnType,
		Pending:     pt.Pending,
		MetaData:    map[string]interface{}{"payment_channel": pt.PaymentChannel},
	}
	if pt.Location.City != "" || pt.Location.Address != "" {
		txn.Location = &model.Location{
			Address: pt.Location.Address,
			City:    pt.Location.City,
			Region:  pt.Location.Region,
			Country: pt.Location.Country,
		}
	}
	return txn, nil
}

func (p *Plaid) FetchBalance(ctx context.Context, account *model.Account) (*model.ProviderBalance, error) {
	var response struct {
		Accounts []plaidAccount `json:"accounts"`
	}
	err := p.post(ctx, "/accounts/balance/get", map[string]interface{}{"access_token": account.AccessToken}, &response)
	if err != nil {
		return nil, providerError(p.Source(), "balance fetch", err)
	}

	for _, pa := range response.Accounts {
		if pa.AccountID == account.SourceAccountID {
			return &model.ProviderBalance{
				SourceAccountID: pa.AccountID,
				Current:         pa.Balances.Current,
				Available:       pa.Balances.Available,
				CreditLimit:     pa.Balances.Limit,
				Currency:        pa.currency(),
			}, nil
		}
	}
	return nil, providerError(p.Source(), "balance fetch", fmt.Errorf("account %s not in balance response", account.SourceAccountID))
}

// FetchLiabilities maps the item's credit-card liabilities onto debts, keyed
// to match the debt upsert identity (name + source).
func (p *Plaid) FetchLiabilities(ctx context.Context, account *model.Account) ([]*model.Debt, error) {
	var response struct {
		Accounts    []plaidAccount `json:"accounts"`
		Liabilities struct {
			Credit []struct {
				AccountID            string  `json:"account_id"`
				LastStatementBalance float64 `json:"last_statement_balance"`
				MinimumPaymentAmount float64 `json:"minimum_payment_amount"`
				NextPaymentDueDate   string  `json:"next_payment_due_date"`
				Aprs                 []struct {
					AprPercentage float64 `json:"apr_percentage"`
				} `json:"aprs"`
			} `json:"credit"`
		} `json:"liabilities"`
	}
	err := p.post(ctx, "/liabilities/get", map[string]interface{}{"access_token": account.AccessToken}, &response)
	if err != nil {
		return nil, providerError(p.Source(), "liabilities fetch", err)
	}

	names := make(map[string]plaidAccount, len(response.Accounts))
	for _, pa := range response.Accounts {
		names[pa.AccountID] = pa
	}

	var debts []*model.Debt
	for _, credit := range response.Liabilities.Credit {
		pa, ok := names[credit.AccountID]
		if !ok {
			continue
		}
		debt := &model.Debt{
			Name:           pa.Name,
			Type:           model.DebtCreditCard,
			Source:         model.SourcePlaid,
			AccountID:      credit.AccountID,
			CurrentBalance: pa.Balances.Current,
			CreditLimit:    pa.Balances.Limit,
			MinimumPayment: credit.MinimumPaymentAmount,
			DueDate:        credit.NextPaymentDueDate,
			IsActive:       true,
		}
		if len(credit.Aprs) > 0 {
			apr := credit.Aprs[0].AprPercentage
			debt.APR = &apr
		}
		debts = append(debts, debt)
	}
	return debts, nil
}

// RemoveLink revokes the item's access token. The engine soft-deletes the
// accounts afterwards.
func (p *Plaid) RemoveLink(ctx context.Context, account *model.Account) error {
	var response struct {
		Removed bool `json:"removed"`
	}
	err := p.post(ctx, "/item/remove", map[string]interface{}{"access_token": account.AccessToken}, &response)
	if err != nil {
		return providerError(p.Source(), "item remove", err)
	}
	return nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
