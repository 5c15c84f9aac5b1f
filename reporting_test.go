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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/database/mocks"
	"github.com/tallyhq/tally/model"
)

func TestGenerateDailySummary(t *testing.T) {
	ds := new(mocks.MockDataSource)
	date := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

	ds.On("DailyDebitTotal", mock.Anything, date).Return(90.0, 3, nil)
	ds.On("CategoryBreakdown", mock.Anything, mock.Anything, mock.Anything).Return([]database.CategoryTotal{
		{Category: "Food & Dining", Total: 60, Count: 2},
		{Category: "Transportation", Total: 30, Count: 1},
	}, nil)

	tally := newTestTally(ds)
	summary, err := tally.GenerateDailySummary(context.Background(), date)

	assert.NoError(t, err)
	assert.Equal(t, "2025-06-15", summary.Date)
	assert.Equal(t, 90.0, summary.TotalSpent)
	assert.Equal(t, 3, summary.TransactionCount)
	assert.Equal(t, "Food & Dining", summary.TopCategory)
	assert.Equal(t, 60.0, summary.TopCategoryAmount)
	assert.Equal(t, 30.0, summary.AverageTransaction)
	ds.AssertExpectations(t)
}

func TestGenerateDailySummary_EmptyDay(t *testing.T) {
	ds := new(mocks.MockDataSource)
	date := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	ds.On("DailyDebitTotal", mock.Anything, date).Return(0.0, 0, nil)
	ds.On("CategoryBreakdown", mock.Anything, mock.Anything, mock.Anything).Return([]database.CategoryTotal{}, nil)

	tally := newTestTally(ds)
	summary, err := tally.GenerateDailySummary(context.Background(), date)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.TotalSpent)
	assert.Equal(t, "", summary.TopCategory)
	assert.Equal(t, 0.0, summary.AverageTransaction)
	ds.AssertExpectations(t)
}

func TestGenerateDailySummary_RoundsAverage(t *testing.T) {
	ds := new(mocks.MockDataSource)
	date := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)

	ds.On("DailyDebitTotal", mock.Anything, date).Return(10.0, 3, nil)
	ds.On("CategoryBreakdown", mock.Anything, mock.Anything, mock.Anything).Return([]database.CategoryTotal{
		{Category: "Other", Total: 10, Count: 3},
	}, nil)

	tally := newTestTally(ds)
	summary, err := tally.GenerateDailySummary(context.Background(), date)

	assert.NoError(t, err)
	assert.Equal(t, 3.33, summary.AverageTransaction)
	ds.AssertExpectations(t)
}

func TestGetDashboard(t *testing.T) {
	ds := new(mocks.MockDataSource)

	ds.On("TotalBalanceByType", mock.Anything).Return(map[string]float64{
		"checking": 1200,
		"savings":  4800,
	}, nil)
	ds.On("CategoryBreakdown", mock.Anything, mock.Anything, mock.Anything).Return([]database.CategoryTotal{
		{Category: "Food & Dining", Total: 300},
		{Category: "Shopping", Total: 200},
	}, nil)
	ds.On("GetCompanies", mock.Anything).Return([]*model.Company{{Name: "DataLabs"}}, nil)
	ds.On("GetCompanyStats", mock.Anything, "DataLabs", mock.Anything, mock.Anything).Return(&database.CompanyStats{
		Expenses: 400, Income: 1000, Profit: 600, TransactionCount: 7,
	}, nil)
	ds.On("TotalDebt", mock.Anything).Return(2500.0, 2, nil)
	ds.On("DailyDebitTotal", mock.Anything, mock.Anything).Return(50.0, 2, nil)

	tally := newTestTally(ds)
	config.MockConfig(&config.Configuration{Sync: config.SyncConfig{MonthlyBudget: 1000}})

	dashboard, err := tally.GetDashboard(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 6000.0, dashboard.TotalBalance)
	assert.Equal(t, 500.0, dashboard.MonthSpent)
	assert.Equal(t, 1000.0, dashboard.MonthlyBudget)
	assert.Equal(t, 50.0, dashboard.BudgetUsedPct)
	assert.Equal(t, 2500.0, dashboard.TotalDebt)
	assert.Equal(t, 600.0, dashboard.Companies["DataLabs"].Profit)
	ds.AssertExpectations(t)
}

func TestTransactionStatsSummary(t *testing.T) {
	ds := new(mocks.MockDataSource)
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)

	ds.On("GetTransactionStats", mock.Anything, start, end).Return(&database.TransactionStats{
		Expenses: 800, ExpenseCount: 12, Income: 3000, IncomeCount: 2, NetFlow: 2200,
		BySource: map[string]int{model.SourcePlaid: 10, model.SourcePayPal: 4},
	}, nil)
	ds.On("CategoryBreakdown", mock.Anything, start, end).Return([]database.CategoryTotal{
		{Category: "Food & Dining", Total: 500},
		{Category: "Transportation", Total: 300},
	}, nil)

	tally := newTestTally(ds)
	stats, err := tally.TransactionStatsSummary(context.Background(), start, end)

	assert.NoError(t, err)
	assert.Equal(t, 2200.0, stats.NetFlow)
	assert.Equal(t, 10, stats.BySource[model.SourcePlaid])
	assert.Len(t, stats.TopCategories, 2)
	ds.AssertExpectations(t)
}

func TestDebtOverview(t *testing.T) {
	ds := new(mocks.MockDataSource)

	ds.On("TotalDebt", mock.Anything).Return(10500.0, 3, nil)
	ds.On("DebtSummaryByType", mock.Anything).Return([]database.DebtTypeSummary{
		{Type: model.DebtCreditCard, Total: 500, Count: 1},
		{Type: model.DebtSBALoan, Total: 10000, Count: 2},
	}, nil)
	ds.On("UpcomingPayments", mock.Anything, 14).Return([]*model.Debt{
		{Name: "Chase Card", DueDateDay: 5},
	}, nil)

	tally := newTestTally(ds)
	overview, err := tally.DebtOverview(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 10500.0, overview.TotalDebt)
	assert.Equal(t, 3, overview.DebtCount)
	assert.Len(t, overview.ByType, 2)
	assert.Len(t, overview.UpcomingPayments, 1)
	ds.AssertExpectations(t)
}
