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
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/model"
)

func testPlaid() *Plaid {
	return NewPlaid(config.PlaidConfig{
		ClientID:    "client",
		Secret:      "secret",
		Environment: "sandbox",
		Products:    "transactions",
		CountryCode: "US",
	})
}

func TestPlaidFetchTransactions_CursorPagination(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	pages := map[string]string{
		"": `{
			"added": [{
				"transaction_id": "txn-a",
				"account_id": "acc-1",
				"amount": 12.50,
				"date": "2025-08-01",
				"name": "Blue Bottle Coffee",
				"merchant_name": "Blue Bottle",
				"category": ["Food and Drink", "Coffee Shop"],
				"pending": false,
				"iso_currency_code": "USD"
			}],
			"modified": [],
			"has_more": true,
			"next_cursor": "cursor-1"
		}`,
		"cursor-1": `{
			"added": [{
				"transaction_id": "txn-b",
				"account_id": "acc-1",
				"amount": -1500.00,
				"date": "2025-08-02",
				"name": "Direct Deposit",
				"category": [],
				"pending": false
			}],
			"modified": [],
			"has_more": false,
			"next_cursor": "cursor-2"
		}`,
	}

	httpmock.RegisterResponder("POST", "https://sandbox.plaid.com/transactions/sync",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]interface{}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(400, "{}"), nil
			}
			cursor, _ := body["cursor"].(string)
			return httpmock.NewStringResponse(200, pages[cursor]), nil
		})

	p := testPlaid()
	account := &model.Account{SourceAccountID: "acc-1", AccessToken: "access-token"}

	transactions, err := p.FetchTransactions(context.Background(), account, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, transactions, 2)

	assert.Equal(t, "txn-a", transactions[0].SourceID)
	assert.Equal(t, model.TypeDebit, transactions[0].Type)
	assert.Equal(t, "Food and Drink", transactions[0].Category)
	assert.Equal(t, "Coffee Shop", transactions[0].Subcategory)

	assert.Equal(t, "txn-b", transactions[1].SourceID)
	assert.Equal(t, model.TypeCredit, transactions[1].Type)
	assert.Equal(t, 1500.0, transactions[1].Amount)
	assert.Equal(t, "Other", transactions[1].Category)

	// Cursor carried forward for the next incremental sync.
	assert.Equal(t, "cursor-2", account.MetaData[plaidCursorKey])
}

func TestPlaidExchangeLink(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://sandbox.plaid.com/item/public_token/exchange",
		httpmock.NewStringResponder(200, `{"access_token": "access-abc", "item_id": "item-1"}`))
	httpmock.RegisterResponder("POST", "https://sandbox.plaid.com/accounts/get",
		httpmock.NewStringResponder(200, `{
			"accounts": [{
				"account_id": "acc-1",
				"name": "Checking",
				"mask": "4321",
				"type": "depository",
				"subtype": "checking",
				"balances": {"current": 1250.50, "available": 1200.00, "iso_currency_code": "USD"}
			}],
			"item": {"institution_id": "ins_56"}
		}`))

	p := testPlaid()
	accounts, err := p.ExchangeLink(context.Background(), "public-token", "")
	assert.NoError(t, err)
	assert.Len(t, accounts, 1)

	account := accounts[0]
	assert.Equal(t, "acc-1", account.SourceAccountID)
	assert.Equal(t, "access-abc", account.AccessToken)
	assert.Equal(t, model.AccountChecking, account.AccountType)
	assert.Equal(t, 1250.50, account.CurrentBalance)
	assert.Equal(t, 1200.00, account.AvailableBalance)
	assert.True(t, account.IsActive)
	assert.Empty(t, account.SyncError)
}

func TestPlaidFetchBalance_AccountMissing(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://sandbox.plaid.com/accounts/balance/get",
		httpmock.NewStringResponder(200, `{"accounts": [{"account_id": "other-acc", "balances": {"current": 10}}]}`))

	p := testPlaid()
	_, err := p.FetchBalance(context.Background(), &model.Account{SourceAccountID: "acc-1", AccessToken: "tok"})
	assert.Error(t, err)
}

func TestPlaidRemoveLink(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://sandbox.plaid.com/item/remove",
		httpmock.NewStringResponder(200, `{"removed": true}`))

	p := testPlaid()
	err := p.RemoveLink(context.Background(), &model.Account{AccessToken: "tok"})
	assert.NoError(t, err)
}
