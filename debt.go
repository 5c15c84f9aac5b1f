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

package tally

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/model"
)

// DebtOverview is the aggregate view of all active debts.
type DebtOverview struct {
	TotalDebt        float64                    `json:"total_debt"`
	DebtCount        int                        `json:"debt_count"`
	ByType           []database.DebtTypeSummary `json:"by_type"`
	UpcomingPayments []*model.Debt              `json:"upcoming_payments"`
}

// GetDebts returns every active debt.
func (t *Tally) GetDebts(ctx context.Context) ([]*model.Debt, error) {
	return t.datasource.GetActiveDebts(ctx)
}

// GetDebt returns one debt by id.
func (t *Tally) GetDebt(ctx context.Context, debtID string) (*model.Debt, error) {
	return t.datasource.GetDebtByID(ctx, debtID)
}

// RecordDebtPayment applies a payment to a debt. The balance decrement and
// the history append happen in one storage transaction, so a concurrent sync
// can never observe one without the other.
func (t *Tally) RecordDebtPayment(ctx context.Context, debtID string, amount float64, note string) (*model.Debt, error) {
	return t.datasource.RecordDebtPayment(ctx, debtID, amount, note)
}

// CreateManualDebt records a debt entered by hand.
func (t *Tally) CreateManualDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	if debt.Source == "" {
		debt.Source = model.SourceManual
	}
	if debt.Type == "" {
		debt.Type = model.DebtOther
	}
	debt.IsActive = true
	return t.datasource.UpsertDebt(ctx, debt)
}

// DebtOverview aggregates total owed, per-type breakdown and the debts due
// within the next two weeks.
func (t *Tally) DebtOverview(ctx context.Context) (*DebtOverview, error) {
	total, count, err := t.datasource.TotalDebt(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := t.datasource.DebtSummaryByType(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := t.datasource.UpcomingPayments(ctx, 14)
	if err != nil {
		return nil, err
	}
	return &DebtOverview{
		TotalDebt:        total,
		DebtCount:        count,
		ByType:           byType,
		UpcomingPayments: upcoming,
	}, nil
}

// LinkSBALoan looks a loan up in the federal registry and stores it as a
// tracked debt. A registry miss or outage surfaces to the caller here;
// degradation to a manual entry only happens on later refreshes of an
// already linked loan.
func (t *Tally) LinkSBALoan(ctx context.Context, loanNumber string) (*model.Debt, error) {
	debt, err := t.sba.FetchLoan(ctx, loanNumber)
	if err != nil {
		return nil, err
	}
	saved, err := t.datasource.UpsertDebt(ctx, debt)
	if err != nil {
		return nil, err
	}
	logrus.WithField("loan", loanNumber).Info("linked SBA loan")
	return saved, nil
}

// LinkBorrowerLoans looks up every registry loan under a borrower id and
// tracks each one as a debt.
func (t *Tally) LinkBorrowerLoans(ctx context.Context, borrowerID string) ([]*model.Debt, error) {
	loans, err := t.sba.FetchBorrowerLoans(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	linked := make([]*model.Debt, 0, len(loans))
	for _, loan := range loans {
		saved, err := t.datasource.UpsertDebt(ctx, loan)
		if err != nil {
			return nil, err
		}
		linked = append(linked, saved)
	}
	logrus.WithFields(logrus.Fields{"borrower": borrowerID, "loans": len(linked)}).Info("linked borrower SBA loans")
	return linked, nil
}

// ImportLoanPayments pulls the payment feed of a linked SBA loan and records
// each payment as a transaction. Re-imports are idempotent through the
// source-id upsert.
func (t *Tally) ImportLoanPayments(ctx context.Context, loanNumber string, start, end time.Time) (int, error) {
	payments, err := t.sba.FetchPayments(ctx, loanNumber, start, end)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, txn := range payments {
		if _, err := t.datasource.UpsertTransaction(ctx, txn); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
