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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/model"
)

func TestNewManualCardAccount(t *testing.T) {
	account, err := NewManualCardAccount("chase", ManualCardDetails{
		LastFourDigits: "4321",
		CardType:       "Sapphire Preferred",
		CreditLimit:    15000,
		CurrentBalance: 2300,
		DueDate:        "15",
		MinimumPayment: 35,
	})
	assert.NoError(t, err)
	assert.Equal(t, model.SourceCreditCard, account.Source)
	assert.Equal(t, "card_chase_4321", account.SourceAccountID)
	assert.Equal(t, model.AccountCredit, account.AccountType)
	assert.Equal(t, 15000.0, *account.CreditLimit)
	assert.Equal(t, true, account.MetaData["manual_entry"])
}

func TestNewManualCardAccount_UnknownIssuer(t *testing.T) {
	_, err := NewManualCardAccount("unknownBank", ManualCardDetails{LastFourDigits: "0000"})
	assert.Error(t, err)
}

func TestImportCSV(t *testing.T) {
	statement := strings.Join([]string{
		"Date,Description,Amount,Category",
		"2025-08-01,BLUE BOTTLE COFFEE,12.50,Dining",
		"08/02/2025,PAYMENT THANK YOU,-500.00,",
		"not-a-date,junk row,abc,",
		"2025-08-03,AMAZON MARKETPLACE,89.99,Shopping",
	}, "\n")

	transactions, err := ImportCSV(strings.NewReader(statement), "chase")
	assert.NoError(t, err)
	assert.Len(t, transactions, 3)

	coffee := transactions[0]
	assert.Equal(t, model.SourceCreditCard, coffee.Source)
	assert.Equal(t, model.TypeDebit, coffee.Type)
	assert.Equal(t, 12.50, coffee.Amount)
	assert.Equal(t, "Dining", coffee.Category)
	assert.Equal(t, "chase", coffee.CardProvider)

	payment := transactions[1]
	assert.Equal(t, model.TypeCredit, payment.Type)
	assert.Equal(t, 500.0, payment.Amount)
	assert.Equal(t, "Other", payment.Category)
}

func TestImportCSV_RepeatImportKeepsSourceIDs(t *testing.T) {
	statement := strings.Join([]string{
		"Date,Description,Amount",
		"2025-08-01,BLUE BOTTLE COFFEE,12.50",
		"2025-08-01,BLUE BOTTLE COFFEE,12.50",
		"2025-08-03,AMAZON MARKETPLACE,89.99",
	}, "\n")

	first, err := ImportCSV(strings.NewReader(statement), "chase")
	assert.NoError(t, err)
	second, err := ImportCSV(strings.NewReader(statement), "chase")
	assert.NoError(t, err)

	// Re-importing the same statement reproduces the same source ids, so the
	// source-id upsert collapses the rows instead of duplicating them.
	assert.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].SourceID, second[i].SourceID)
	}

	// Identical lines within one statement are still distinct rows.
	assert.NotEqual(t, first[0].SourceID, first[1].SourceID)
}

func TestImportCSV_NoRows(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("Date,Description,Amount\n"), "chase")
	assert.Error(t, err)
}

func TestLookupIssuer(t *testing.T) {
	issuer, ok := LookupIssuer("barclays")
	assert.True(t, ok)
	assert.True(t, issuer.ManualEntry)

	_, ok = LookupIssuer("monzo")
	assert.False(t, ok)
}
