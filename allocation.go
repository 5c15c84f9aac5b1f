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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

// AllocateTransaction assigns a transaction to one company. Percentage 0 is
// treated as 100, matching the single-company common case.
func (t *Tally) AllocateTransaction(ctx context.Context, transactionID, company string, percentage float64) (*model.Transaction, error) {
	txn, err := t.datasource.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if percentage == 0 {
		percentage = 100
	}
	if err := txn.AllocateTo(company, percentage); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrValidation, err.Error(), err)
	}
	if err := t.datasource.UpdateAllocation(ctx, txn); err != nil {
		return nil, err
	}

	// Allocation is what pins an expense to a company, so this is where the
	// company's category budget learns about the spend. Best-effort: budget
	// counters are advisory, the allocation itself already committed.
	if txn.IsExpense() && company != model.CompanyUnallocated {
		if err := t.datasource.UpdateBudgetSpend(ctx, company, txn.Category, txn.Amount); err != nil {
			logrus.Warnf("failed to update budget spend for %s: %v", company, err)
		}
	}
	return txn, nil
}

// SplitTransaction distributes a transaction across companies. The
// percentages must sum to exactly 100; the model enforces it before anything
// is written.
func (t *Tally) SplitTransaction(ctx context.Context, transactionID string, allocations []model.SplitAllocation) (*model.Transaction, error) {
	txn, err := t.datasource.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := txn.SplitBetween(allocations); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrValidation, err.Error(), err)
	}
	if err := t.datasource.UpdateAllocation(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// BulkAllocate assigns many transactions to one company in a single
// statement and reports how many rows changed.
func (t *Tally) BulkAllocate(ctx context.Context, transactionIDs []string, company string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, apierror.NewAPIError(apierror.ErrValidation, "no transaction ids provided", nil)
	}
	if !model.IsValidCompany(company) && company != model.CompanyUnallocated {
		return 0, apierror.NewAPIError(apierror.ErrValidation, fmt.Sprintf("unknown company: %s", company), nil)
	}
	return t.datasource.BulkAllocate(ctx, transactionIDs, company)
}

// UnallocatedTransactions lists transactions still waiting for a company
// assignment, newest first.
func (t *Tally) UnallocatedTransactions(ctx context.Context, limit, offset int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return t.datasource.ListTransactions(ctx, database.TransactionFilter{Company: model.CompanyUnallocated}, limit, offset)
}
