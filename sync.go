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
	"go.opentelemetry.io/otel"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/notification"
	"github.com/tallyhq/tally/model"
	"github.com/tallyhq/tally/providers"
)

// Synchronize runs one full reconciliation pass: every registered provider is
// synced sequentially, and every provider gets exactly one entry in the
// returned map whether it succeeded or not. One provider failing never stops
// the others; its error lands in its result and the run continues.
func (t *Tally) Synchronize(ctx context.Context) map[string]model.SyncResult {
	ctx, span := otel.Tracer("tally.sync").Start(ctx, "Synchronizing providers")
	defer span.End()

	start, end := t.syncWindow()
	results := make(map[string]model.SyncResult, len(t.registry.Sources()))

	for _, source := range t.registry.Sources() {
		p, err := t.registry.Get(source)
		if err != nil {
			results[source] = model.SyncResult{Error: err.Error()}
			continue
		}

		count, err := t.syncProvider(ctx, p, start, end)
		if err != nil {
			logrus.WithField("provider", source).Errorf("sync failed: %v", err)
			notification.NotifyError(err)
			results[source] = model.SyncResult{Count: count, Error: err.Error()}
			continue
		}
		results[source] = model.SyncResult{Success: true, Count: count}
	}
	return results
}

// SyncProvider runs one provider's sync on demand.
func (t *Tally) SyncProvider(ctx context.Context, source string) (model.SyncResult, error) {
	p, err := t.registry.Get(source)
	if err != nil {
		return model.SyncResult{}, err
	}
	start, end := t.syncWindow()
	count, err := t.syncProvider(ctx, p, start, end)
	if err != nil {
		return model.SyncResult{Count: count, Error: err.Error()}, nil
	}
	return model.SyncResult{Success: true, Count: count}, nil
}

func (t *Tally) syncWindow() (time.Time, time.Time) {
	windowDays := 30
	if cnf, err := config.Fetch(); err == nil && cnf.Sync.WindowDays > 0 {
		windowDays = cnf.Sync.WindowDays
	}
	end := time.Now()
	return end.AddDate(0, 0, -windowDays), end
}

// syncProvider dispatches on the provider's capabilities: transaction feeds
// sync per account, debt feeds upsert debts keyed by (name, source).
func (t *Tally) syncProvider(ctx context.Context, p providers.Provider, start, end time.Time) (int, error) {
	count := 0

	if fetcher, ok := p.(providers.TransactionFetcher); ok {
		n, err := t.syncTransactionFeed(ctx, p.Source(), fetcher, start, end)
		count += n
		if err != nil {
			return count, err
		}
	}

	if fetcher, ok := p.(providers.DebtFetcher); ok {
		n, err := t.syncDebtFeed(ctx, fetcher)
		count += n
		if err != nil {
			return count, err
		}
	}

	if p.Source() == model.SourceSBA {
		n, err := t.refreshSBADebts(ctx)
		count += n
		if err != nil {
			return count, err
		}
	}

	return count, nil
}

// syncTransactionFeed syncs every active account of one source. An account
// failure marks the account and fails the provider, but the remaining
// accounts are still processed first — one revoked credential must not
// freeze the rest of the institution.
func (t *Tally) syncTransactionFeed(ctx context.Context, source string, fetcher providers.TransactionFetcher, start, end time.Time) (int, error) {
	accounts, err := t.datasource.GetAccountsBySource(ctx, source, true)
	if err != nil {
		return 0, err
	}

	count := 0
	var firstErr error
	for _, account := range accounts {
		n, err := t.syncAccount(ctx, account, fetcher, start, end)
		count += n
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"provider": source,
				"account":  account.SourceAccountID,
			}).Errorf("account sync failed: %v", err)
			_ = t.datasource.MarkAccountSyncError(ctx, account.AccountID, err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return count, firstErr
}

// syncAccount pulls one account's feed, upserts each transaction, then
// refreshes the balance. The balance write happens only after the upserts so
// a stored balance never reflects transactions that failed to land, and a
// successful pass clears any previous sync error.
func (t *Tally) syncAccount(ctx context.Context, account *model.Account, fetcher providers.TransactionFetcher, start, end time.Time) (int, error) {
	transactions, err := fetcher.FetchTransactions(ctx, account, start, end)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, txn := range transactions {
		if _, err := t.datasource.UpsertTransaction(ctx, txn); err != nil {
			return count, err
		}
		count++
	}

	if balanceFetcher, ok := fetcher.(providers.BalanceFetcher); ok {
		balance, err := balanceFetcher.FetchBalance(ctx, account)
		if err != nil {
			return count, err
		}
		if balance != nil {
			// The in-memory account must carry the fresh figures too: the
			// closing upsert below writes the struct's balances back, and a
			// stale copy would undo this update.
			account.UpdateBalance(balance.Current, balance.Available)
			if err := t.datasource.UpdateAccountBalance(ctx, account.AccountID, account.CurrentBalance, account.AvailableBalance); err != nil {
				return count, err
			}
		}
	}

	// Credit accounts may carry a liability feed alongside transactions. A
	// liability failure does not fail the account; the item may simply not
	// have the product enabled.
	if liabilityFetcher, ok := fetcher.(providers.LiabilityFetcher); ok && account.AccountType == model.AccountCredit {
		debts, err := liabilityFetcher.FetchLiabilities(ctx, account)
		if err != nil {
			logrus.WithField("account", account.SourceAccountID).Warnf("liability fetch failed: %v", err)
		}
		for _, debt := range debts {
			if _, err := t.datasource.UpsertDebt(ctx, debt); err != nil {
				return count, err
			}
		}
	}

	// Cursor and metadata updates from the fetch ride along here.
	if _, err := t.datasource.CreateOrUpdateAccount(ctx, account); err != nil {
		return count, err
	}
	return count, nil
}

// syncDebtFeed upserts the feed's debts keyed by (name, source); re-syncs
// update figures without touching payment history.
func (t *Tally) syncDebtFeed(ctx context.Context, fetcher providers.DebtFetcher) (int, error) {
	debts, err := fetcher.FetchDebts(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, debt := range debts {
		if _, err := t.datasource.UpsertDebt(ctx, debt); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// refreshSBADebts re-fetches the balance of every previously linked SBA
// loan. A registry outage degrades each loan to a zeroed manual entry inside
// the adapter rather than failing the provider.
func (t *Tally) refreshSBADebts(ctx context.Context) (int, error) {
	debts, err := t.datasource.GetActiveDebts(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, debt := range debts {
		if debt.Source != model.SourceSBA {
			continue
		}
		refreshed, err := t.sba.RefreshDebt(ctx, debt)
		if err != nil {
			return count, err
		}
		if _, err := t.datasource.UpsertDebt(ctx, refreshed); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
