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
	"strconv"
	"strings"
	"time"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

// PayPal is the payment-feed adapter. PayPal has no account linking flow in
// the banking sense: the whole wallet is one account, authenticated by
// client credentials.
type PayPal struct {
	conf    config.PayPalConfig
	baseURL string
	client  *http.Client
	tokens  *tokenState
}

func NewPayPal(conf config.PayPalConfig) *PayPal {
	baseURL := "https://api.sandbox.paypal.com"
	if conf.Mode == "live" {
		baseURL = "https://api.paypal.com"
	}
	p := &PayPal{conf: conf, baseURL: baseURL, client: httpClient()}
	p.tokens = &tokenState{fetch: p.fetchToken}
	return p
}

func (p *PayPal) Source() string { return model.SourcePayPal }

func (p *PayPal) fetchToken(ctx context.Context) (string, int, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(p.conf.ClientID, p.conf.Secret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var response struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := request.CallWithClient(p.client, req, &response)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return response.AccessToken, response.ExpiresIn, nil
}

func (p *PayPal) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	token, err := p.tokens.get(ctx)
	if err != nil {
		return err
	}

	endpoint := p.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := request.CallWithClient(p.client, req, out)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		p.tokens.invalidate()
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return nil
}

type paypalTransaction struct {
	TransactionInfo struct {
		TransactionID             string `json:"transaction_id"`
		TransactionInitiationDate string `json:"transaction_initiation_date"`
		TransactionSubject        string `json:"transaction_subject"`
		TransactionNote           string `json:"transaction_note"`
		TransactionStatus         string `json:"transaction_status"`
		TransactionEventCode      string `json:"transaction_event_code"`
		TransactionAmount         struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"transaction_amount"`
	} `json:"transaction_info"`
	PayerInfo struct {
		EmailAddress string `json:"email_address"`
		PayerName    struct {
			AlternateFullName string `json:"alternate_full_name"`
		} `json:"payer_name"`
	} `json:"payer_info"`
}

// FetchTransactions pulls the reporting feed for the window. The account is
// the wallet itself; its credential is the adapter's client-credentials
// token, not a per-account token.
func (p *PayPal) FetchTransactions(ctx context.Context, _ *model.Account, start, end time.Time) ([]*model.Transaction, error) {
	params := url.Values{}
	params.Set("start_date", start.Format(time.RFC3339))
	params.Set("end_date", end.Format(time.RFC3339))
	params.Set("fields", "all")
	params.Set("page_size", "100")
	params.Set("page", "1")

	var response struct {
		TransactionDetails []paypalTransaction `json:"transaction_details"`
	}
	if err := p.get(ctx, "/v1/reporting/transactions", params, &response); err != nil {
		return nil, providerError(p.Source(), "transactions fetch", err)
	}

	transactions := make([]*model.Transaction, 0, len(response.TransactionDetails))
	for _, pt := range response.TransactionDetails {
		txn, err := p.normalize(pt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

func (p *PayPal) normalize(pt paypalTransaction) (*model.Transaction, error) {
	info := pt.TransactionInfo
	date, err := time.Parse(time.RFC3339, info.TransactionInitiationDate)
	if err != nil {
		return nil, providerError(p.Source(), "transaction date parse", err)
	}
	value, err := strconv.ParseFloat(info.TransactionAmount.Value, 64)
	if err != nil {
		value = 0
	}

	description := info.TransactionSubject
	if description == "" {
		description = info.TransactionNote
	}
	if description == "" {
		description = "PayPal Transaction"
	}

	txnType := model.TypeCredit
	if value < 0 {
		txnType = model.TypeDebit
	}

	currency := info.TransactionAmount.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	merchant := pt.PayerInfo.PayerName.AlternateFullName
	if merchant == "" {
		merchant = pt.PayerInfo.EmailAddress
	}

	return &model.Transaction{
		Source:      model.SourcePayPal,
		SourceID:    info.TransactionID,
		Company:     model.CompanyUnallocated,
		Date:        date,
		Amount:      abs(value),
		Currency:    currency,
		Description: description,
		Merchant:    merchant,
		Category:    categorizePayPal(info.TransactionSubject, info.TransactionNote),
		Type:        txnType,
		MetaData: map[string]interface{}{
			"paypal_status": info.TransactionStatus,
			"paypal_type":   info.TransactionEventCode,
		},
	}, nil
}

// categorizePayPal buckets a transaction by keyword. PayPal's feed carries no
// category taxonomy, so the subject and note text is all there is to go on.
func categorizePayPal(subject, note string) string {
	text := strings.ToLower(subject + " " + note)

	switch {
	case containsAny(text, "food", "restaurant", "coffee"):
		return "Food & Dining"
	case containsAny(text, "uber", "lyft", "gas"):
		return "Transportation"
	case containsAny(text, "amazon", "ebay", "shop"):
		return "Shopping"
	case containsAny(text, "netflix", "spotify", "game"):
		return "Entertainment"
	case containsAny(text, "electric", "water", "internet"):
		return "Bills & Utilities"
	default:
		return "Other"
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// FetchBalance sums the wallet's reported balances across currencies. Mixed
// currencies are summed at face value; the wallet is effectively
// single-currency in practice.
func (p *PayPal) FetchBalance(ctx context.Context, account *model.Account) (*model.ProviderBalance, error) {
	var response struct {
		Balances []struct {
			Currency     string `json:"currency"`
			TotalBalance struct {
				Value string `json:"value"`
			} `json:"total_balance"`
			AvailableBalance struct {
				Value string `json:"value"`
			} `json:"available_balance"`
		} `json:"balances"`
	}
	if err := p.get(ctx, "/v1/reporting/balances", nil, &response); err != nil {
		return nil, providerError(p.Source(), "balance fetch", err)
	}

	var current, available float64
	currency := "USD"
	for _, balance := range response.Balances {
		if v, err := strconv.ParseFloat(balance.TotalBalance.Value, 64); err == nil {
			current += v
		}
		if v, err := strconv.ParseFloat(balance.AvailableBalance.Value, 64); err == nil {
			available += v
		}
		if balance.Currency != "" {
			currency = balance.Currency
		}
	}
	return &model.ProviderBalance{
		SourceAccountID: account.SourceAccountID,
		Current:         current,
		Available:       &available,
		Currency:        currency,
	}, nil
}

// ExchangeLink connects the wallet. There is no code to exchange; the
// adapter's own credentials identify the wallet via userinfo.
func (p *PayPal) ExchangeLink(ctx context.Context, _, _ string) ([]*model.Account, error) {
	params := url.Values{}
	params.Set("schema", "paypalv1.1")

	var info struct {
		PayerID string `json:"payer_id"`
		Name    string `json:"name"`
		Emails  []struct {
			Value string `json:"value"`
		} `json:"emails"`
	}
	if err := p.get(ctx, "/v1/identity/oauth2/userinfo", params, &info); err != nil {
		return nil, providerError(p.Source(), "userinfo fetch", err)
	}

	name := info.Name
	if name == "" && len(info.Emails) > 0 {
		name = info.Emails[0].Value
	}
	account := &model.Account{
		Source:          model.SourcePayPal,
		SourceAccountID: "paypal_" + info.PayerID,
		InstitutionName: "PayPal",
		AccountName:     name,
		AccountType:     model.AccountPayPal,
		Currency:        "USD",
		IsActive:        true,
	}
	return []*model.Account{account}, nil
}
