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

package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/apierror"
)

// SplitAllocation is one entry of a transaction split across companies.
// Amount is derived from the transaction magnitude and the percentage.
type SplitAllocation struct {
	Company    string  `json:"company"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// Location is the optional geolocation a banking feed attaches to a movement.
type Location struct {
	Address    string  `json:"address,omitempty"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
}

// Transaction is the canonical representation of one financial movement,
// independent of the provider it came from. SourceID is the provider-native
// id and the idempotency key: re-ingesting the same SourceID updates the
// stored record instead of duplicating it.
type Transaction struct {
	ID                   int64                  `json:"-"`
	TransactionID        string                 `json:"id"`
	Source               string                 `json:"source"`
	SourceID             string                 `json:"source_id"`
	AccountID            string                 `json:"account_id"`
	Company              string                 `json:"company"`
	AllocationPercentage float64                `json:"allocation_percentage"`
	SplitAllocations     []SplitAllocation      `json:"split_allocations,omitempty"`
	Date                 time.Time              `json:"date"`
	Amount               float64                `json:"amount"`
	Currency             string                 `json:"currency"`
	Description          string                 `json:"description"`
	Merchant             string                 `json:"merchant,omitempty"`
	Category             string                 `json:"category"`
	Subcategory          string                 `json:"subcategory,omitempty"`
	Type                 string                 `json:"type"`
	Pending              bool                   `json:"pending"`
	ExpenseSource        string                 `json:"expense_source,omitempty"`
	InvoiceNumber        string                 `json:"invoice_number,omitempty"`
	ReceiptURL           string                 `json:"receipt_url,omitempty"`
	CardProvider         string                 `json:"card_provider,omitempty"`
	BusinessPurpose      string                 `json:"business_purpose,omitempty"`
	TaxDeductible        bool                   `json:"tax_deductible"`
	Notes                string                 `json:"notes,omitempty"`
	Tags                 []string               `json:"tags,omitempty"`
	MetaData             map[string]interface{} `json:"meta_data,omitempty"`
	Location             *Location              `json:"location,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// NewManualTransaction returns a transaction with a generated source id in the
// manual namespace. Manual entries are the only transactions that may be
// deleted; provider-sourced records are corrected by re-sync instead.
func NewManualTransaction() *Transaction {
	now := time.Now()
	return &Transaction{
		TransactionID:        GenerateUUIDWithSuffix("txn"),
		Source:               SourceManual,
		SourceID:             GenerateUUIDWithSuffix("manual"),
		Company:              CompanyUnallocated,
		AllocationPercentage: 100,
		Currency:             "USD",
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (t *Transaction) IsExpense() bool {
	return t.Type == TypeDebit
}

func (t *Transaction) IsIncome() bool {
	return t.Type == TypeCredit
}

// AllocateTo assigns the transaction wholly (or by the given percentage) to a
// single company and clears any previous split breakdown.
func (t *Transaction) AllocateTo(company string, percentage float64) error {
	if !IsValidCompany(company) && company != CompanyUnallocated {
		return apierror.NewAPIError(apierror.ErrValidation, "unknown company "+company, nil)
	}
	if percentage <= 0 || percentage > 100 {
		return apierror.NewAPIError(apierror.ErrValidation, "allocation percentage must be in (0, 100]", nil)
	}
	t.Company = company
	t.AllocationPercentage = percentage
	t.SplitAllocations = nil
	t.UpdatedAt = time.Now()
	return nil
}

// SplitBetween splits the transaction across several companies. The
// percentages must sum to exactly 100; otherwise the transaction is left
// unmodified. The first entry becomes the denormalized head allocation on the
// primary company/percentage fields.
func (t *Transaction) SplitBetween(allocations []SplitAllocation) error {
	if len(allocations) == 0 {
		return apierror.NewAPIError(apierror.ErrValidation, "at least one allocation is required", nil)
	}

	total := decimal.Zero
	for _, a := range allocations {
		if !IsValidCompany(a.Company) {
			return apierror.NewAPIError(apierror.ErrValidation, "unknown company "+a.Company, nil)
		}
		total = total.Add(decimal.NewFromFloat(a.Percentage))
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		return apierror.NewAPIError(apierror.ErrValidation, "total allocation percentage must equal 100%", nil)
	}

	amount := decimal.NewFromFloat(t.Amount)
	split := make([]SplitAllocation, len(allocations))
	for i, a := range allocations {
		derived := amount.Mul(decimal.NewFromFloat(a.Percentage)).Div(decimal.NewFromInt(100)).Round(2)
		split[i] = SplitAllocation{
			Company:    a.Company,
			Percentage: a.Percentage,
			Amount:     derived.InexactFloat64(),
		}
	}

	t.SplitAllocations = split
	t.Company = allocations[0].Company
	t.AllocationPercentage = allocations[0].Percentage
	t.UpdatedAt = time.Now()
	return nil
}

func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
