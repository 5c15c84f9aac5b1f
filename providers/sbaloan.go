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
	"regexp"
	"time"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

var loanNumberPattern = regexp.MustCompile(`^\d{10}$`)

// SBALoan is the government loan-registry adapter. Loans map onto debts named
// "SBA Loan - <number>"; payments map onto debit transactions. When the
// registry is unreachable a balance fetch degrades to a zeroed manual entry
// instead of failing, because manual tracking must stay possible while the
// API is down.
type SBALoan struct {
	conf    config.SBALoanConfig
	baseURL string
	client  *http.Client
	tokens  *tokenState
}

func NewSBALoan(conf config.SBALoanConfig) *SBALoan {
	s := &SBALoan{
		conf:    conf,
		baseURL: "https://lending.sba.gov/api",
		client:  httpClient(),
	}
	s.tokens = &tokenState{fetch: s.fetchToken}
	return s
}

func (s *SBALoan) Source() string { return model.SourceSBA }

// ValidateLoanNumber reports whether the number has the registry's 10-digit
// shape.
func ValidateLoanNumber(loanNumber string) bool {
	return loanNumberPattern.MatchString(loanNumber)
}

func (s *SBALoan) fetchToken(ctx context.Context) (string, int, error) {
	body, err := request.ToJsonReq(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     s.conf.ClientID,
		"client_secret": s.conf.Secret,
	})
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/oauth/token", body)
	if err != nil {
		return "", 0, err
	}

	var response struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := request.CallWithClient(s.client, req, &response)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return response.AccessToken, response.ExpiresIn, nil
}

func (s *SBALoan) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	token, err := s.tokens.get(ctx)
	if err != nil {
		return err
	}

	endpoint := s.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-Key", s.conf.APIKey)

	resp, err := request.CallWithClient(s.client, req, out)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return apierror.NewAPIError(apierror.ErrNotFound, "Loan not found. Please verify the loan number", nil)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return nil
}

type sbaLoanData struct {
	LoanNumber          string  `json:"loan_number"`
	BorrowerName        string  `json:"borrower_name"`
	LoanProgram         string  `json:"loan_program"`
	OriginalLoanAmount  float64 `json:"original_loan_amount"`
	OutstandingBalance  float64 `json:"outstanding_balance"`
	InterestRate        float64 `json:"interest_rate"`
	MonthlyPayment      float64 `json:"monthly_payment"`
	NextPaymentDate     string  `json:"next_payment_date"`
	MaturityDate        string  `json:"maturity_date"`
	LoanStatus          string  `json:"loan_status"`
	LenderName          string  `json:"lender_name"`
	GuaranteePercentage float64 `json:"sba_guarantee_percentage"`
}

func debtName(loanNumber string) string {
	return fmt.Sprintf("SBA Loan - %s", loanNumber)
}

func (s *SBALoan) loanToDebt(loan sbaLoanData) *model.Debt {
	debt := &model.Debt{
		Name:           debtName(loan.LoanNumber),
		Type:           model.DebtSBALoan,
		Source:         model.SourceSBA,
		CurrentBalance: loan.OutstandingBalance,
		MinimumPayment: loan.MonthlyPayment,
		DueDate:        loan.NextPaymentDate,
		IsActive:       true,
		MetaData: map[string]interface{}{
			"loan_number":          loan.LoanNumber,
			"lender":               loan.LenderName,
			"loan_type":            loan.LoanProgram,
			"maturity_date":        loan.MaturityDate,
			"guarantee_percentage": loan.GuaranteePercentage,
		},
	}
	if loan.OriginalLoanAmount > 0 {
		original := loan.OriginalLoanAmount
		debt.OriginalBalance = &original
	}
	if loan.InterestRate > 0 {
		apr := loan.InterestRate
		debt.APR = &apr
	}
	return debt
}

// FetchLoan pulls full loan details and maps them onto a debt.
func (s *SBALoan) FetchLoan(ctx context.Context, loanNumber string) (*model.Debt, error) {
	if !ValidateLoanNumber(loanNumber) {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "loan number must be 10 digits", nil)
	}

	var loan sbaLoanData
	if err := s.get(ctx, "/loans/"+loanNumber, nil, &loan); err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			return nil, err
		}
		return nil, providerError(s.Source(), "loan fetch", err)
	}
	return s.loanToDebt(loan), nil
}

// RefreshDebt re-fetches the balance for a previously-linked loan. Registry
// failure degrades to a zeroed manual entry rather than an error.
func (s *SBALoan) RefreshDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	loanNumber, _ := debt.MetaData["loan_number"].(string)
	if loanNumber == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "debt has no loan number to refresh", nil)
	}

	var balance struct {
		OutstandingBalance   float64 `json:"outstanding_balance"`
		OriginalLoanAmount   float64 `json:"original_loan_amount"`
		MonthlyPaymentAmount float64 `json:"monthly_payment_amount"`
		InterestRate         float64 `json:"interest_rate"`
		NextPaymentDate      string  `json:"next_payment_date"`
	}
	if err := s.get(ctx, fmt.Sprintf("/loans/%s/balance", loanNumber), nil, &balance); err != nil {
		return s.manualEntry(loanNumber), nil
	}

	refreshed := &model.Debt{
		DebtID:         debt.DebtID,
		Name:           debtName(loanNumber),
		Type:           model.DebtSBALoan,
		Source:         model.SourceSBA,
		CurrentBalance: balance.OutstandingBalance,
		MinimumPayment: balance.MonthlyPaymentAmount,
		DueDate:        balance.NextPaymentDate,
		IsActive:       true,
		MetaData:       debt.MetaData,
	}
	if balance.OriginalLoanAmount > 0 {
		original := balance.OriginalLoanAmount
		refreshed.OriginalBalance = &original
	}
	if balance.InterestRate > 0 {
		apr := balance.InterestRate
		refreshed.APR = &apr
	}
	return refreshed, nil
}

// manualEntry is the degraded shape returned when the registry cannot be
// reached: zero balances, flagged for manual tracking.
func (s *SBALoan) manualEntry(loanNumber string) *model.Debt {
	return &model.Debt{
		Name:           debtName(loanNumber),
		Type:           model.DebtSBALoan,
		Source:         model.SourceSBA,
		CurrentBalance: 0,
		IsActive:       true,
		MetaData: map[string]interface{}{
			"loan_number": loanNumber,
			"manual":      true,
			"note":        "Manual entry - SBA API not available or loan not found",
		},
	}
}

// FetchPayments maps the loan's payment records onto debit transactions. The
// source id embeds the registry's payment id, so re-syncs upsert cleanly.
// Interest-bearing payments are flagged tax deductible.
func (s *SBALoan) FetchPayments(ctx context.Context, loanNumber string, start, end time.Time) ([]*model.Transaction, error) {
	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))

	var response struct {
		Payments []struct {
			PaymentID        string  `json:"payment_id"`
			PaymentDate      string  `json:"payment_date"`
			PaymentAmount    float64 `json:"payment_amount"`
			PrincipalAmount  float64 `json:"principal_amount"`
			InterestAmount   float64 `json:"interest_amount"`
			RemainingBalance float64 `json:"remaining_balance"`
			PaymentMethod    string  `json:"payment_method"`
		} `json:"payments"`
	}
	if err := s.get(ctx, fmt.Sprintf("/loans/%s/payments", loanNumber), params, &response); err != nil {
		return nil, providerError(s.Source(), "payments fetch", err)
	}

	var transactions []*model.Transaction
	for _, payment := range response.Payments {
		date, err := time.Parse("2006-01-02", payment.PaymentDate)
		if err != nil {
			date, err = time.Parse(time.RFC3339, payment.PaymentDate)
			if err != nil {
				return nil, providerError(s.Source(), "payment date parse", err)
			}
		}

		transactions = append(transactions, &model.Transaction{
			Source:          model.SourceSBA,
			SourceID:        fmt.Sprintf("sba_payment_%s", payment.PaymentID),
			AccountID:       "sba_loan_payment",
			Company:         model.CompanyUnallocated,
			Date:            date,
			Amount:          payment.PaymentAmount,
			Currency:        "USD",
			Description:     fmt.Sprintf("SBA Loan Payment - Principal: $%.2f, Interest: $%.2f", payment.PrincipalAmount, payment.InterestAmount),
			Merchant:        "SBA Loan Payment",
			Category:        "Loan Payment",
			Subcategory:     "Business Loan",
			Type:            model.TypeDebit,
			BusinessPurpose: "Loan payment for business financing",
			TaxDeductible:   payment.InterestAmount > 0,
			MetaData: map[string]interface{}{
				"loan_number":           loanNumber,
				"principal_amount":      payment.PrincipalAmount,
				"interest_amount":       payment.InterestAmount,
				"balance_after_payment": payment.RemainingBalance,
				"payment_method":        payment.PaymentMethod,
			},
		})
	}
	return transactions, nil
}

// FetchBorrowerLoans lists every loan under a borrower id.
func (s *SBALoan) FetchBorrowerLoans(ctx context.Context, borrowerID string) ([]*model.Debt, error) {
	var response struct {
		Loans []sbaLoanData `json:"loans"`
	}
	if err := s.get(ctx, "/borrowers/"+borrowerID+"/loans", nil, &response); err != nil {
		return nil, providerError(s.Source(), "borrower loans fetch", err)
	}

	debts := make([]*model.Debt, 0, len(response.Loans))
	for _, loan := range response.Loans {
		debts = append(debts, s.loanToDebt(loan))
	}
	return debts, nil
}
