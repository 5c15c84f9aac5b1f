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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/database/mocks"
	"github.com/tallyhq/tally/model"
	"github.com/tallyhq/tally/providers"
)

type stubFeed struct {
	source       string
	transactions []*model.Transaction
	balance      *model.ProviderBalance
	fetchErr     error
}

func (s *stubFeed) Source() string { return s.source }

func (s *stubFeed) FetchTransactions(ctx context.Context, account *model.Account, start, end time.Time) ([]*model.Transaction, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.transactions, nil
}

func (s *stubFeed) FetchBalance(ctx context.Context, account *model.Account) (*model.ProviderBalance, error) {
	return s.balance, nil
}

type stubDebtFeed struct {
	source string
	debts  []*model.Debt
	err    error
}

func (s *stubDebtFeed) Source() string { return s.source }

func (s *stubDebtFeed) FetchDebts(ctx context.Context) ([]*model.Debt, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.debts, nil
}

func newTestTally(ds *mocks.MockDataSource, feeds ...providers.Provider) *Tally {
	config.MockConfig(&config.Configuration{})
	registry := providers.NewRegistry()
	for _, feed := range feeds {
		registry.Register(feed)
	}
	return &Tally{datasource: ds, registry: registry}
}

func testAccount(source string) *model.Account {
	return &model.Account{
		AccountID:       "acc_" + source,
		SourceAccountID: source + "_1",
		Source:          source,
		AccountName:     "Checking",
		AccountType:     model.AccountChecking,
		IsActive:        true,
	}
}

func testTransaction(sourceID string) *model.Transaction {
	return &model.Transaction{
		SourceID:    sourceID,
		Amount:      12.50,
		Currency:    "USD",
		Description: "Coffee",
		Type:        model.TypeDebit,
		Date:        time.Now(),
	}
}

func TestSynchronize_AllProvidersReported(t *testing.T) {
	ds := new(mocks.MockDataSource)

	available := 90.0
	feed := &stubFeed{
		source:       "bank_one",
		transactions: []*model.Transaction{testTransaction("b1_1"), testTransaction("b1_2")},
		balance:      &model.ProviderBalance{Current: 100, Available: &available},
	}
	debts := &stubDebtFeed{
		source: "ledger",
		debts:  []*model.Debt{{Name: "Chase Card", Source: "ledger", CurrentBalance: 500}},
	}

	account := testAccount("bank_one")
	ds.On("GetAccountsBySource", mock.Anything, "bank_one", true).Return([]*model.Account{account}, nil)
	ds.On("UpsertTransaction", mock.Anything, mock.Anything).Return(testTransaction("b1_1"), nil)
	ds.On("UpdateAccountBalance", mock.Anything, account.AccountID, 100.0, 90.0).Return(nil)
	ds.On("CreateOrUpdateAccount", mock.Anything, account).Return(account, nil)
	ds.On("UpsertDebt", mock.Anything, mock.Anything).Return(debts.debts[0], nil)

	tally := newTestTally(ds, feed, debts)
	results := tally.Synchronize(context.Background())

	assert.Len(t, results, 2)
	assert.True(t, results["bank_one"].Success)
	assert.Equal(t, 2, results["bank_one"].Count)
	assert.True(t, results["ledger"].Success)
	assert.Equal(t, 1, results["ledger"].Count)
	ds.AssertExpectations(t)
}

func TestSynchronize_OneProviderFailureDoesNotStopOthers(t *testing.T) {
	ds := new(mocks.MockDataSource)

	broken := &stubFeed{source: "bank_down", fetchErr: errors.New("credentials revoked")}
	healthy := &stubFeed{
		source:       "bank_up",
		transactions: []*model.Transaction{testTransaction("up_1")},
	}

	brokenAccount := testAccount("bank_down")
	healthyAccount := testAccount("bank_up")
	ds.On("GetAccountsBySource", mock.Anything, "bank_down", true).Return([]*model.Account{brokenAccount}, nil)
	ds.On("MarkAccountSyncError", mock.Anything, brokenAccount.AccountID, "credentials revoked").Return(nil)
	ds.On("GetAccountsBySource", mock.Anything, "bank_up", true).Return([]*model.Account{healthyAccount}, nil)
	ds.On("UpsertTransaction", mock.Anything, mock.Anything).Return(testTransaction("up_1"), nil)
	ds.On("CreateOrUpdateAccount", mock.Anything, healthyAccount).Return(healthyAccount, nil)

	tally := newTestTally(ds, broken, healthy)
	results := tally.Synchronize(context.Background())

	assert.Len(t, results, 2)
	assert.False(t, results["bank_down"].Success)
	assert.Contains(t, results["bank_down"].Error, "credentials revoked")
	assert.True(t, results["bank_up"].Success)
	assert.Equal(t, 1, results["bank_up"].Count)
	ds.AssertExpectations(t)
}

func TestSynchronize_NilBalanceSkipsBalanceWrite(t *testing.T) {
	ds := new(mocks.MockDataSource)

	feed := &stubFeed{
		source:       "saas_books",
		transactions: []*model.Transaction{testTransaction("qb_1")},
		balance:      nil,
	}

	account := testAccount("saas_books")
	ds.On("GetAccountsBySource", mock.Anything, "saas_books", true).Return([]*model.Account{account}, nil)
	ds.On("UpsertTransaction", mock.Anything, mock.Anything).Return(testTransaction("qb_1"), nil)
	ds.On("CreateOrUpdateAccount", mock.Anything, account).Return(account, nil)

	tally := newTestTally(ds, feed)
	results := tally.Synchronize(context.Background())

	assert.True(t, results["saas_books"].Success)
	ds.AssertNotCalled(t, "UpdateAccountBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestSynchronize_ClosingUpsertCarriesFreshBalance(t *testing.T) {
	ds := new(mocks.MockDataSource)

	available := 240.0
	feed := &stubFeed{
		source:  "bank_one",
		balance: &model.ProviderBalance{Current: 250, Available: &available},
	}

	account := testAccount("bank_one")
	account.CurrentBalance = 100
	account.AvailableBalance = 100
	account.SyncError = "previous failure"

	ds.On("GetAccountsBySource", mock.Anything, "bank_one", true).Return([]*model.Account{account}, nil)
	ds.On("UpdateAccountBalance", mock.Anything, account.AccountID, 250.0, 240.0).Return(nil)
	// The upsert persists whatever the struct holds, so a stale copy here
	// would write the pre-sync balance back over the row just updated.
	ds.On("CreateOrUpdateAccount", mock.Anything, mock.MatchedBy(func(a *model.Account) bool {
		return a.CurrentBalance == 250 && a.AvailableBalance == 240 && a.SyncError == ""
	})).Return(account, nil)

	tally := newTestTally(ds, feed)
	results := tally.Synchronize(context.Background())

	assert.True(t, results["bank_one"].Success)
	ds.AssertExpectations(t)
}

// liabilityFeed serves transactions plus a per-account liability feed.
type liabilityFeed struct {
	stubFeed
	debts []*model.Debt
}

func (l *liabilityFeed) FetchLiabilities(ctx context.Context, account *model.Account) ([]*model.Debt, error) {
	return l.debts, nil
}

func TestSynchronize_CreditAccountLiabilitiesUpserted(t *testing.T) {
	ds := new(mocks.MockDataSource)

	feed := &liabilityFeed{
		stubFeed: stubFeed{source: "bank_cards", transactions: []*model.Transaction{testTransaction("c_1")}},
		debts:    []*model.Debt{{Name: "Visa ••1234", Source: "bank_cards", Type: model.DebtCreditCard, CurrentBalance: 820}},
	}

	account := testAccount("bank_cards")
	account.AccountType = model.AccountCredit
	ds.On("GetAccountsBySource", mock.Anything, "bank_cards", true).Return([]*model.Account{account}, nil)
	ds.On("UpsertTransaction", mock.Anything, mock.Anything).Return(testTransaction("c_1"), nil)
	ds.On("UpsertDebt", mock.Anything, feed.debts[0]).Return(feed.debts[0], nil)
	ds.On("CreateOrUpdateAccount", mock.Anything, account).Return(account, nil)

	tally := newTestTally(ds, feed)
	results := tally.Synchronize(context.Background())

	assert.True(t, results["bank_cards"].Success)
	ds.AssertExpectations(t)
}

func TestSynchronize_AccountFailureContinuesRemainingAccounts(t *testing.T) {
	ds := new(mocks.MockDataSource)

	calls := 0
	feed := &perAccountFeed{source: "bank_multi", calls: &calls}

	first := testAccount("bank_multi")
	second := &model.Account{AccountID: "acc_second", SourceAccountID: "bank_multi_2", Source: "bank_multi", IsActive: true}
	ds.On("GetAccountsBySource", mock.Anything, "bank_multi", true).Return([]*model.Account{first, second}, nil)
	ds.On("MarkAccountSyncError", mock.Anything, first.AccountID, "token expired").Return(nil)
	ds.On("UpsertTransaction", mock.Anything, mock.Anything).Return(testTransaction("m_1"), nil)
	ds.On("CreateOrUpdateAccount", mock.Anything, second).Return(second, nil)

	tally := newTestTally(ds, feed)
	results := tally.Synchronize(context.Background())

	// The provider is marked failed but the second account still synced.
	assert.False(t, results["bank_multi"].Success)
	assert.Equal(t, 1, results["bank_multi"].Count)
	ds.AssertExpectations(t)
}

// perAccountFeed fails its first account and succeeds on the rest.
type perAccountFeed struct {
	source string
	calls  *int
}

func (p *perAccountFeed) Source() string { return p.source }

func (p *perAccountFeed) FetchTransactions(ctx context.Context, account *model.Account, start, end time.Time) ([]*model.Transaction, error) {
	*p.calls++
	if *p.calls == 1 {
		return nil, errors.New("token expired")
	}
	return []*model.Transaction{testTransaction("m_1")}, nil
}
