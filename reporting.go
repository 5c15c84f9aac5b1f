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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
	"github.com/tallyhq/tally/providers"
)

// Dashboard is the aggregate snapshot the overview endpoint serves.
type Dashboard struct {
	BalancesByType map[string]float64                `json:"balances_by_type"`
	TotalBalance   float64                           `json:"total_balance"`
	TodaySpent     float64                           `json:"today_spent"`
	YesterdaySpent float64                           `json:"yesterday_spent"`
	SpendChangePct float64                           `json:"spend_change_pct"`
	MonthSpent     float64                           `json:"month_spent"`
	MonthlyBudget  float64                           `json:"monthly_budget"`
	BudgetUsedPct  float64                           `json:"budget_used_pct"`
	TopCategories  []database.CategoryTotal          `json:"top_categories"`
	Companies      map[string]*database.CompanyStats `json:"companies"`
	TotalDebt      float64                           `json:"total_debt"`
}

// DailySpend is one day of a spending trend.
type DailySpend struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// CompanySummary is one company's month-to-date view: cash flow, category
// spend and the most recent activity.
type CompanySummary struct {
	Company      string                   `json:"company"`
	Stats        *database.CompanyStats   `json:"stats"`
	Categories   []database.CategoryTotal `json:"categories"`
	Transactions []*model.Transaction     `json:"recent_transactions"`
}

// GenerateDailySummary aggregates one day of debit activity. The summary is
// appended to the configured spreadsheet best-effort: a sheets outage logs a
// warning but never fails the report.
func (t *Tally) GenerateDailySummary(ctx context.Context, date time.Time) (*model.DailySummary, error) {
	ctx, span := otel.Tracer("tally.reporting").Start(ctx, "Generating daily summary")
	defer span.End()

	total, count, err := t.datasource.DailyDebitTotal(ctx, date)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	categories, err := t.datasource.CategoryBreakdown(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	summary := &model.DailySummary{
		Date:             dayStart.Format(time.DateOnly),
		TotalSpent:       total,
		TransactionCount: count,
	}
	if len(categories) > 0 {
		summary.TopCategory = categories[0].Category
		summary.TopCategoryAmount = categories[0].Total
	}
	if count > 0 {
		avg := decimal.NewFromFloat(total).Div(decimal.NewFromInt(int64(count)))
		summary.AverageTransaction, _ = avg.Round(2).Float64()
	}

	if cnf, err := config.Fetch(); err == nil && cnf.Providers.Sheets.SpreadsheetID != "" {
		if err := t.sheets.AppendDailySummary(ctx, summary); err != nil {
			logrus.Warnf("failed to append daily summary to sheet: %v", err)
		}
	}
	return summary, nil
}

// GetDashboard builds the overview snapshot for the current month.
func (t *Tally) GetDashboard(ctx context.Context) (*Dashboard, error) {
	balances, err := t.datasource.TotalBalanceByType(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	categories, err := t.datasource.CategoryBreakdown(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}

	monthSpent := 0.0
	for _, c := range categories {
		monthSpent += c.Total
	}
	if len(categories) > 5 {
		categories = categories[:5]
	}

	companies, err := t.datasource.GetCompanies(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]*database.CompanyStats, len(companies))
	for _, company := range companies {
		s, err := t.datasource.GetCompanyStats(ctx, company.Name, monthStart, now)
		if err != nil {
			return nil, err
		}
		stats[company.Name] = s
	}

	totalDebt, _, err := t.datasource.TotalDebt(ctx)
	if err != nil {
		return nil, err
	}

	todaySpent, _, err := t.datasource.DailyDebitTotal(ctx, now)
	if err != nil {
		return nil, err
	}
	yesterdaySpent, _, err := t.datasource.DailyDebitTotal(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		BalancesByType: balances,
		TodaySpent:     todaySpent,
		YesterdaySpent: yesterdaySpent,
		MonthSpent:     monthSpent,
		TopCategories:  categories,
		Companies:      stats,
		TotalDebt:      totalDebt,
	}
	if yesterdaySpent > 0 {
		dashboard.SpendChangePct = (todaySpent - yesterdaySpent) / yesterdaySpent * 100
	}
	for _, balance := range balances {
		dashboard.TotalBalance += balance
	}
	if cnf, err := config.Fetch(); err == nil {
		dashboard.MonthlyBudget = cnf.Sync.MonthlyBudget
		if dashboard.MonthlyBudget > 0 {
			dashboard.BudgetUsedPct = monthSpent / dashboard.MonthlyBudget * 100
		}
	}
	return dashboard, nil
}

// SpendingTrends returns the daily debit totals for the last N days, oldest
// first.
func (t *Tally) SpendingTrends(ctx context.Context, days int) ([]DailySpend, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	trend := make([]DailySpend, 0, days)
	now := time.Now()
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		total, count, err := t.datasource.DailyDebitTotal(ctx, day)
		if err != nil {
			return nil, err
		}
		trend = append(trend, DailySpend{
			Date:  day.Format(time.DateOnly),
			Total: total,
			Count: count,
		})
	}
	return trend, nil
}

// GetCompanySummary builds one company's month-to-date summary.
func (t *Tally) GetCompanySummary(ctx context.Context, companyName string) (*CompanySummary, error) {
	company, err := t.datasource.GetCompanyByName(ctx, companyName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats, err := t.datasource.GetCompanyStats(ctx, company.Name, monthStart, now)
	if err != nil {
		return nil, err
	}
	categories, err := t.datasource.GetCompanyCategoryExpenses(ctx, company.Name, monthStart, now)
	if err != nil {
		return nil, err
	}
	recent, err := t.datasource.ListTransactions(ctx, database.TransactionFilter{Company: company.Name}, 10, 0)
	if err != nil {
		return nil, err
	}
	return &CompanySummary{
		Company:      company.Name,
		Stats:        stats,
		Categories:   categories,
		Transactions: recent,
	}, nil
}

// BudgetStatus is one category's budget line against actual spend.
type BudgetStatus struct {
	Category  string  `json:"category"`
	Budget    float64 `json:"budget"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

// MonthlyBudgetReport compares the month's category spend against the budget
// lines kept in the spreadsheet.
func (t *Tally) MonthlyBudgetReport(ctx context.Context) ([]BudgetStatus, error) {
	lines, err := t.sheets.FetchMonthlyBudget(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	categories, err := t.datasource.CategoryBreakdown(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]float64, len(categories))
	for _, c := range categories {
		spent[c.Category] = c.Total
	}

	report := make([]BudgetStatus, 0, len(lines))
	for _, line := range lines {
		report = append(report, BudgetStatus{
			Category:  line.Category,
			Budget:    line.Budgeted,
			Spent:     spent[line.Category],
			Remaining: line.Budgeted - spent[line.Category],
		})
	}
	return report, nil
}

// TransactionStatsReport is the window-wide transaction statistics view.
type TransactionStatsReport struct {
	*database.TransactionStats
	TopCategories []database.CategoryTotal `json:"top_categories"`
}

// TransactionStatsSummary aggregates the window's cash flow, per-source
// counts and the ten largest debit categories.
func (t *Tally) TransactionStatsSummary(ctx context.Context, start, end time.Time) (*TransactionStatsReport, error) {
	stats, err := t.datasource.GetTransactionStats(ctx, start, end)
	if err != nil {
		return nil, err
	}
	categories, err := t.datasource.CategoryBreakdown(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(categories) > 10 {
		categories = categories[:10]
	}
	return &TransactionStatsReport{TransactionStats: stats, TopCategories: categories}, nil
}

// ProfitAndLoss returns the accounting vendor's own P&L report for a linked
// company account over the window. Only accounting-SaaS accounts have one.
func (t *Tally) ProfitAndLoss(ctx context.Context, accountID string, start, end time.Time) (map[string]interface{}, error) {
	account, err := t.datasource.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p, err := t.registry.Get(account.Source)
	if err != nil {
		return nil, err
	}
	qb, ok := p.(*providers.QuickBooks)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Account '%s' has no profit and loss report", accountID), nil)
	}
	return qb.ProfitAndLoss(ctx, account, start, end)
}
