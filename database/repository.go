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

package database

import (
	"context"
	"time"

	"github.com/tallyhq/tally/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	transaction   // Interface for transaction-related operations
	account       // Interface for account-related operations
	debt          // Interface for debt-related operations
	company       // Interface for company-related operations
	providerToken // Interface for persisted OAuth credentials
}

// TransactionFilter narrows transaction listings. Zero-valued fields are not
// applied.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Source    string
	Type      string
	Company   string
	MinAmount *float64
	MaxAmount *float64
	Search    string
}

// CategoryTotal is one row of a category aggregate.
type CategoryTotal struct {
	Category  string  `json:"category"`
	Total     float64 `json:"total"`
	Count     int     `json:"count"`
	AvgAmount float64 `json:"avg_amount"`
}

// CompanyStats summarizes one company's cash flow over a period.
type CompanyStats struct {
	Expenses         float64 `json:"expenses"`
	Income           float64 `json:"income"`
	Profit           float64 `json:"profit"`
	TransactionCount int     `json:"transaction_count"`
}

// TransactionStats is the window-wide cash flow aggregate: debit and credit
// totals with net flow, plus the transaction count per provider source.
type TransactionStats struct {
	Expenses     float64        `json:"expenses"`
	ExpenseCount int            `json:"expense_count"`
	Income       float64        `json:"income"`
	IncomeCount  int            `json:"income_count"`
	NetFlow      float64        `json:"net_flow"`
	BySource     map[string]int `json:"by_source"`
}

// DebtTypeSummary is one row of the per-kind debt aggregate.
type DebtTypeSummary struct {
	Type       string  `json:"type"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	AvgBalance float64 `json:"avg_balance"`
}

// transaction defines methods for handling canonical transactions.
type transaction interface {
	UpsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)                         // Insert-or-update keyed by provider-native source id
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                                         // Retrieves a transaction by internal id
	GetTransactionBySourceID(ctx context.Context, sourceID string) (*model.Transaction, error)                         // Retrieves a transaction by provider-native id
	ListTransactions(ctx context.Context, filter TransactionFilter, limit, offset int) ([]*model.Transaction, error)   // Filtered, paginated listing, newest first
	CountTransactions(ctx context.Context, filter TransactionFilter) (int64, error)                                    // Count for the same filter
	UpdateAllocation(ctx context.Context, txn *model.Transaction) error                                                // Persists company/percentage/split fields
	BulkAllocate(ctx context.Context, transactionIDs []string, company string) (int64, error)                          // Assigns many transactions to one company
	DeleteTransaction(ctx context.Context, id string) error                                                            // Deletes by internal id (manual entries only, enforced upstream)
	DailyDebitTotal(ctx context.Context, date time.Time) (float64, int, error)                                         // Sum and count of one day's debits
	CategoryBreakdown(ctx context.Context, start, end time.Time) ([]CategoryTotal, error)                              // Debit totals grouped by category
	GetCompanyStats(ctx context.Context, companyName string, start, end time.Time) (*CompanyStats, error)              // Expenses/income/profit for one company
	GetCompanyCategoryExpenses(ctx context.Context, companyName string, start, end time.Time) ([]CategoryTotal, error) // Company debit totals grouped by category
	GetTransactionStats(ctx context.Context, start, end time.Time) (*TransactionStats, error)                          // Window-wide debit/credit totals and per-source counts
}

// account defines methods for handling provider accounts.
type account interface {
	CreateOrUpdateAccount(ctx context.Context, account *model.Account) (*model.Account, error) // Upsert keyed by provider-native account id
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountsBySource(ctx context.Context, source string, activeOnly bool) ([]*model.Account, error)
	GetActiveAccounts(ctx context.Context) ([]*model.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID string, current, available float64) error // Atomic balance write; clears sync error
	MarkAccountSyncError(ctx context.Context, accountID string, message string) error
	DeactivateAccount(ctx context.Context, accountID string) error // Soft delete
	TotalBalanceByType(ctx context.Context) (map[string]float64, error)
}

// debt defines methods for handling debts.
type debt interface {
	UpsertDebt(ctx context.Context, d *model.Debt) (*model.Debt, error) // Upsert keyed by (name, source)
	GetDebtByID(ctx context.Context, id string) (*model.Debt, error)
	GetDebt(ctx context.Context, name, source string) (*model.Debt, error)
	GetActiveDebts(ctx context.Context) ([]*model.Debt, error)
	RecordDebtPayment(ctx context.Context, debtID string, amount float64, note string) (*model.Debt, error) // Balance decrement + history append, atomically
	DebtSummaryByType(ctx context.Context) ([]DebtTypeSummary, error)
	TotalDebt(ctx context.Context) (float64, int, error)
	UpcomingPayments(ctx context.Context, days int) ([]*model.Debt, error)
}

// company defines methods for handling allocation targets.
type company interface {
	SeedCompanies(ctx context.Context) error // Idempotent insert of the fixed company set
	GetCompanies(ctx context.Context) ([]*model.Company, error)
	GetCompanyByName(ctx context.Context, name string) (*model.Company, error)
	UpdateBudgetSpend(ctx context.Context, companyName, category string, amount float64) error
}

// providerToken defines methods for the persisted OAuth token store.
type providerToken interface {
	SaveProviderToken(ctx context.Context, token *model.ProviderToken) error
	GetProviderToken(ctx context.Context, provider, realmID string) (*model.ProviderToken, error)
	ListProviderTokens(ctx context.Context, provider string) ([]*model.ProviderToken, error)
	DeleteProviderToken(ctx context.Context, provider, realmID string) error
}
