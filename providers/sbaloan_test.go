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
	"github.com/tallyhq/tally/model"
)

func testSBALoan() *SBALoan {
	return NewSBALoan(config.SBALoanConfig{ClientID: "client", Secret: "secret", APIKey: "api-key"})
}

func registerSBAToken() {
	httpmock.RegisterResponder("POST", "https://lending.sba.gov/api/oauth/token",
		httpmock.NewStringResponder(200, `{"access_token": "sba-token", "expires_in": 3600}`))
}

func TestValidateLoanNumber(t *testing.T) {
	assert.True(t, ValidateLoanNumber("1234567890"))
	assert.False(t, ValidateLoanNumber("123456789"))
	assert.False(t, ValidateLoanNumber("12345678901"))
	assert.False(t, ValidateLoanNumber("12345abcde"))
}

func TestSBAFetchLoan(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerSBAToken()
	httpmock.RegisterResponder("GET", "https://lending.sba.gov/api/loans/1234567890",
		httpmock.NewStringResponder(200, `{
			"loan_number": "1234567890",
			"loan_program": "7(a)",
			"original_loan_amount": 150000,
			"outstanding_balance": 98500,
			"interest_rate": 6.5,
			"monthly_payment": 1720,
			"next_payment_date": "2025-09-01",
			"lender_name": "First National"
		}`))

	s := testSBALoan()
	debt, err := s.FetchLoan(context.Background(), "1234567890")
	assert.NoError(t, err)
	assert.Equal(t, "SBA Loan - 1234567890", debt.Name)
	assert.Equal(t, model.DebtSBALoan, debt.Type)
	assert.Equal(t, model.SourceSBA, debt.Source)
	assert.Equal(t, 98500.0, debt.CurrentBalance)
	assert.Equal(t, 150000.0, *debt.OriginalBalance)
	assert.Equal(t, 6.5, *debt.APR)
	assert.Equal(t, "First National", debt.MetaData["lender"])
}

func TestSBAFetchLoan_InvalidNumber(t *testing.T) {
	s := testSBALoan()
	_, err := s.FetchLoan(context.Background(), "abc")
	assert.Error(t, err)
}

func TestSBARefreshDebt_DegradesToManualOnFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerSBAToken()
	httpmock.RegisterResponder("GET", "https://lending.sba.gov/api/loans/1234567890/balance",
		httpmock.NewStringResponder(500, `{"error": "registry unavailable"}`))

	s := testSBALoan()
	debt, err := s.RefreshDebt(context.Background(), &model.Debt{
		Name:     "SBA Loan - 1234567890",
		MetaData: map[string]interface{}{"loan_number": "1234567890"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, debt.CurrentBalance)
	assert.Equal(t, true, debt.MetaData["manual"])
}

func TestSBARefreshDebt_Success(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerSBAToken()
	httpmock.RegisterResponder("GET", "https://lending.sba.gov/api/loans/1234567890/balance",
		httpmock.NewStringResponder(200, `{
			"outstanding_balance": 97000,
			"original_loan_amount": 150000,
			"monthly_payment_amount": 1720,
			"interest_rate": 6.5,
			"next_payment_date": "2025-10-01"
		}`))

	s := testSBALoan()
	debt, err := s.RefreshDebt(context.Background(), &model.Debt{
		DebtID:   "debt_1",
		Name:     "SBA Loan - 1234567890",
		MetaData: map[string]interface{}{"loan_number": "1234567890"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "debt_1", debt.DebtID)
	assert.Equal(t, 97000.0, debt.CurrentBalance)
	assert.Equal(t, "2025-10-01", debt.DueDate)
}

func TestSBAFetchPayments(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerSBAToken()
	httpmock.RegisterResponder("GET", "https://lending.sba.gov/api/loans/1234567890/payments",
		httpmock.NewStringResponder(200, `{"payments": [{
			"payment_id": "pay-9",
			"payment_date": "2025-08-01",
			"payment_amount": 1720,
			"principal_amount": 1200,
			"interest_amount": 520,
			"remaining_balance": 97000,
			"payment_method": "ACH"
		}]}`))

	s := testSBALoan()
	payments, err := s.FetchPayments(context.Background(), "1234567890", time.Now().AddDate(0, -1, 0), time.Now())
	assert.NoError(t, err)
	assert.Len(t, payments, 1)

	payment := payments[0]
	assert.Equal(t, "sba_payment_pay-9", payment.SourceID)
	assert.Equal(t, model.TypeDebit, payment.Type)
	assert.Equal(t, 1720.0, payment.Amount)
	assert.True(t, payment.TaxDeductible)
	assert.Equal(t, "Loan Payment", payment.Category)
}
