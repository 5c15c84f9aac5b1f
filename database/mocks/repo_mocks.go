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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Transaction methods

func (m *MockDataSource) UpsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionBySourceID(ctx context.Context, sourceID string) (*model.Transaction, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) ListTransactions(ctx context.Context, filter database.TransactionFilter, limit, offset int) ([]*model.Transaction, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) CountTransactions(ctx context.Context, filter database.TransactionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) UpdateAllocation(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockDataSource) BulkAllocate(ctx context.Context, transactionIDs []string, company string) (int64, error) {
	args := m.Called(ctx, transactionIDs, company)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) DeleteTransaction(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) DailyDebitTotal(ctx context.Context, date time.Time) (float64, int, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *MockDataSource) CategoryBreakdown(ctx context.Context, start, end time.Time) ([]database.CategoryTotal, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.CategoryTotal), args.Error(1)
}

func (m *MockDataSource) GetCompanyStats(ctx context.Context, companyName string, start, end time.Time) (*database.CompanyStats, error) {
	args := m.Called(ctx, companyName, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.CompanyStats), args.Error(1)
}

func (m *MockDataSource) GetTransactionStats(ctx context.Context, start, end time.Time) (*database.TransactionStats, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.TransactionStats), args.Error(1)
}

func (m *MockDataSource) GetCompanyCategoryExpenses(ctx context.Context, companyName string, start, end time.Time) ([]database.CategoryTotal, error) {
	args := m.Called(ctx, companyName, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.CategoryTotal), args.Error(1)
}

// Account methods

func (m *MockDataSource) CreateOrUpdateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountsBySource(ctx context.Context, source string, activeOnly bool) ([]*model.Account, error) {
	args := m.Called(ctx, source, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *MockDataSource) GetActiveAccounts(ctx context.Context) ([]*model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *MockDataSource) UpdateAccountBalance(ctx context.Context, accountID string, current, available float64) error {
	args := m.Called(ctx, accountID, current, available)
	return args.Error(0)
}

func (m *MockDataSource) MarkAccountSyncError(ctx context.Context, accountID string, message string) error {
	args := m.Called(ctx, accountID, message)
	return args.Error(0)
}

func (m *MockDataSource) DeactivateAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockDataSource) TotalBalanceByType(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

// Debt methods

func (m *MockDataSource) UpsertDebt(ctx context.Context, d *model.Debt) (*model.Debt, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Debt), args.Error(1)
}

func (m *MockDataSource) GetDebtByID(ctx context.Context, id string) (*model.Debt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Debt), args.Error(1)
}

func (m *MockDataSource) GetDebt(ctx context.Context, name, source string) (*model.Debt, error) {
	args := m.Called(ctx, name, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Debt), args.Error(1)
}

func (m *MockDataSource) GetActiveDebts(ctx context.Context) ([]*model.Debt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Debt), args.Error(1)
}

func (m *MockDataSource) RecordDebtPayment(ctx context.Context, debtID string, amount float64, note string) (*model.Debt, error) {
	args := m.Called(ctx, debtID, amount, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Debt), args.Error(1)
}

func (m *MockDataSource) DebtSummaryByType(ctx context.Context) ([]database.DebtTypeSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.DebtTypeSummary), args.Error(1)
}

func (m *MockDataSource) TotalDebt(ctx context.Context) (float64, int, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *MockDataSource) UpcomingPayments(ctx context.Context, days int) ([]*model.Debt, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Debt), args.Error(1)
}

// Company methods

func (m *MockDataSource) SeedCompanies(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDataSource) GetCompanies(ctx context.Context) ([]*model.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Company), args.Error(1)
}

func (m *MockDataSource) GetCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockDataSource) UpdateBudgetSpend(ctx context.Context, companyName, category string, amount float64) error {
	args := m.Called(ctx, companyName, category, amount)
	return args.Error(0)
}

// Provider token methods

func (m *MockDataSource) SaveProviderToken(ctx context.Context, token *model.ProviderToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockDataSource) GetProviderToken(ctx context.Context, provider, realmID string) (*model.ProviderToken, error) {
	args := m.Called(ctx, provider, realmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderToken), args.Error(1)
}

func (m *MockDataSource) ListProviderTokens(ctx context.Context, provider string) ([]*model.ProviderToken, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProviderToken), args.Error(1)
}

func (m *MockDataSource) DeleteProviderToken(ctx context.Context, provider, realmID string) error {
	args := m.Called(ctx, provider, realmID)
	return args.Error(0)
}
