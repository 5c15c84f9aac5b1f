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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tallyhq/tally/model"
)

// RecordExpense is the request body for manual expense and income entry.
type RecordExpense struct {
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description"`
	Merchant        string  `json:"merchant"`
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	Company         string  `json:"company"`
	BusinessPurpose string  `json:"business_purpose"`
	TaxDeductible   bool    `json:"tax_deductible"`
	Notes           string  `json:"notes"`
}

func (r *RecordExpense) ValidateRecordExpense() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Type, validation.In("", model.TypeDebit, model.TypeCredit)),
	)
}

// ToTransaction converts the request into a canonical manual transaction.
func (r *RecordExpense) ToTransaction() *model.Transaction {
	txn := model.NewManualTransaction()
	txn.Amount = r.Amount
	txn.Description = r.Description
	txn.Merchant = r.Merchant
	txn.Category = r.Category
	txn.Type = r.Type
	txn.BusinessPurpose = r.BusinessPurpose
	txn.TaxDeductible = r.TaxDeductible
	txn.Notes = r.Notes
	if r.Currency != "" {
		txn.Currency = r.Currency
	}
	if r.Type == "" {
		txn.Type = model.TypeDebit
	}
	if r.Category == "" {
		txn.Category = "Other"
	}
	txn.Date = time.Now()
	if r.Date != "" {
		if parsed, err := time.Parse(time.DateOnly, r.Date); err == nil {
			txn.Date = parsed
		}
	}
	if r.Company != "" {
		txn.Company = r.Company
	}
	return txn
}

// AllocateTransaction assigns one transaction to a company.
type AllocateTransaction struct {
	Company    string  `json:"company"`
	Percentage float64 `json:"percentage"`
}

func (a *AllocateTransaction) ValidateAllocateTransaction() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Company, validation.Required),
		validation.Field(&a.Percentage, validation.Min(0.0), validation.Max(100.0)),
	)
}

// SplitTransaction distributes one transaction across companies.
type SplitTransaction struct {
	Allocations []SplitEntry `json:"allocations"`
}

type SplitEntry struct {
	Company    string  `json:"company"`
	Percentage float64 `json:"percentage"`
}

func (s *SplitTransaction) ValidateSplitTransaction() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Allocations, validation.Required, validation.Length(2, 0)),
	)
}

func (s *SplitTransaction) ToAllocations() []model.SplitAllocation {
	allocations := make([]model.SplitAllocation, len(s.Allocations))
	for i, entry := range s.Allocations {
		allocations[i] = model.SplitAllocation{Company: entry.Company, Percentage: entry.Percentage}
	}
	return allocations
}

// BulkAllocate assigns many transactions to one company.
type BulkAllocate struct {
	TransactionIDs []string `json:"transaction_ids"`
	Company        string   `json:"company"`
}

func (b *BulkAllocate) ValidateBulkAllocate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.TransactionIDs, validation.Required),
		validation.Field(&b.Company, validation.Required),
	)
}

// RecordDebtPayment applies a payment against a tracked debt.
type RecordDebtPayment struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

func (r *RecordDebtPayment) ValidateRecordDebtPayment() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Amount, validation.Required, validation.Min(0.01)),
	)
}

// CreateDebt records a manually tracked debt.
type CreateDebt struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	CurrentBalance float64  `json:"current_balance"`
	CreditLimit    *float64 `json:"credit_limit"`
	MinimumPayment float64  `json:"minimum_payment"`
	APR            *float64 `json:"apr"`
	DueDateDay     int      `json:"due_date_day"`
}

func (c *CreateDebt) ValidateCreateDebt() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.CurrentBalance, validation.Min(0.0)),
		validation.Field(&c.DueDateDay, validation.Min(0), validation.Max(31)),
	)
}

func (c *CreateDebt) ToDebt() *model.Debt {
	return &model.Debt{
		Name:           c.Name,
		Type:           c.Type,
		CurrentBalance: c.CurrentBalance,
		CreditLimit:    c.CreditLimit,
		MinimumPayment: c.MinimumPayment,
		APR:            c.APR,
		DueDateDay:     c.DueDateDay,
	}
}

// LinkProvider carries the provider handoff credential: a Plaid public
// token, an OAuth authorization code, or nothing for providers that link
// from configuration alone.
type LinkProvider struct {
	Code    string `json:"code"`
	RealmID string `json:"realm_id"`
}

// LinkSBALoan registers a federal loan for tracking.
type LinkSBALoan struct {
	LoanNumber string `json:"loan_number"`
}

func (l *LinkSBALoan) ValidateLinkSBALoan() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.LoanNumber, validation.Required, validation.By(func(value interface{}) error {
			number, ok := value.(string)
			if !ok {
				return errors.New("invalid loan number")
			}
			if len(number) != 10 {
				return errors.New("loan number must be exactly 10 digits")
			}
			return nil
		})),
	)
}

// ConnectCard registers a manually tracked credit card.
type ConnectCard struct {
	Issuer         string  `json:"issuer"`
	LastFourDigits string  `json:"last_four_digits"`
	CardType       string  `json:"card_type"`
	CreditLimit    float64 `json:"credit_limit"`
	CurrentBalance float64 `json:"current_balance"`
	DueDate        string  `json:"due_date"`
	MinimumPayment float64 `json:"minimum_payment"`
}

func (c *ConnectCard) ValidateConnectCard() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.LastFourDigits, validation.Required, validation.Length(4, 4)),
	)
}
