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

import "time"

// Debt kinds.
const (
	DebtCreditCard   = "credit_card"
	DebtPersonalLoan = "personal_loan"
	DebtStudentLoan  = "student_loan"
	DebtMortgage     = "mortgage"
	DebtAutoLoan     = "auto_loan"
	DebtSBALoan      = "sba_loan"
	DebtOther        = "other"
)

// DebtPayment is one entry in a debt's ordered payment history. Balance is
// the balance immediately after the payment was applied.
type DebtPayment struct {
	Date    time.Time `json:"date"`
	Amount  float64   `json:"amount"`
	Balance float64   `json:"balance"`
	Note    string    `json:"note,omitempty"`
}

// Debt is one liability. Debts are keyed by (Name, Source) across syncs.
type Debt struct {
	ID              int64                  `json:"-"`
	DebtID          string                 `json:"id"`
	Name            string                 `json:"name"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	AccountID       string                 `json:"account_id,omitempty"`
	CurrentBalance  float64                `json:"current_balance"`
	OriginalBalance *float64               `json:"original_balance,omitempty"`
	CreditLimit     *float64               `json:"credit_limit,omitempty"`
	MinimumPayment  float64                `json:"minimum_payment"`
	APR             *float64               `json:"apr,omitempty"`
	DueDate         string                 `json:"due_date,omitempty"`
	DueDateDay      int                    `json:"due_date_day,omitempty"`
	PaymentHistory  []DebtPayment          `json:"payment_history,omitempty"`
	IsActive        bool                   `json:"is_active"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
	LastUpdated     time.Time              `json:"last_updated"`
	CreatedAt       time.Time              `json:"created_at"`
}

// RecordPayment decrements the current balance by the payment amount and
// appends a history entry carrying the resulting balance, keeping history and
// balance consistent. Overpayment is allowed: the balance may go negative and
// is recorded as-is.
func (d *Debt) RecordPayment(amount float64, note string) DebtPayment {
	d.CurrentBalance -= amount
	payment := DebtPayment{
		Date:    time.Now(),
		Amount:  amount,
		Balance: d.CurrentBalance,
		Note:    note,
	}
	d.PaymentHistory = append(d.PaymentHistory, payment)
	d.LastUpdated = payment.Date
	return payment
}

// Utilization returns currentBalance / creditLimit as a percentage. The
// second return is false when no credit limit is recorded — utilization is
// undefined then, not zero.
func (d *Debt) Utilization() (float64, bool) {
	if d.CreditLimit == nil || *d.CreditLimit == 0 {
		return 0, false
	}
	return d.CurrentBalance / *d.CreditLimit * 100, true
}

// PayoffProgress returns the percentage of the original balance already paid
// off. Undefined when no original balance is recorded.
func (d *Debt) PayoffProgress() (float64, bool) {
	if d.OriginalBalance == nil || *d.OriginalBalance == 0 {
		return 0, false
	}
	paid := *d.OriginalBalance - d.CurrentBalance
	return paid / *d.OriginalBalance * 100, true
}
