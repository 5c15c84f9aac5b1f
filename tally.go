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

// Package tally is the reconciliation core: it pulls transaction, balance
// and debt feeds from the configured providers, normalizes them into the
// canonical model, upserts them idempotently, and keeps account and debt
// balances reconciled. Allocation and reporting read and write the same
// storage.
package tally

import (
	"context"
	"fmt"
	"io"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
	"github.com/tallyhq/tally/providers"
)

// Tally is the main application service.
type Tally struct {
	datasource database.IDataSource
	registry   *providers.Registry
	sheets     *providers.Sheets
	sba        *providers.SBALoan
	queue      *Queue
}

// NewTally wires the service: provider adapters are constructed from
// configuration and registered once, here — no call site branches on
// provider names. The company set is seeded idempotently on startup.
func NewTally(db database.IDataSource) (*Tally, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	sheets := providers.NewSheets(cnf.Providers.Sheets)
	sba := providers.NewSBALoan(cnf.Providers.SBALoan)

	registry.Register(providers.NewPlaid(cnf.Providers.Plaid))
	registry.Register(providers.NewPayPal(cnf.Providers.PayPal))
	registry.Register(providers.NewQuickBooks(cnf.Providers.QuickBooks, db))
	registry.Register(sheets)
	registry.Register(sba)

	t := &Tally{
		datasource: db,
		registry:   registry,
		sheets:     sheets,
		sba:        sba,
		queue:      NewQueue(cnf),
	}

	if err := db.SeedCompanies(context.Background()); err != nil {
		return nil, err
	}
	return t, nil
}

// Registry exposes the provider registry for link/unlink flows.
func (t *Tally) Registry() *providers.Registry {
	return t.registry
}

// LinkProvider exchanges a provider link code for accounts and stores them.
func (t *Tally) LinkProvider(ctx context.Context, source, code, realmID string) ([]*model.Account, error) {
	p, err := t.registry.Get(source)
	if err != nil {
		return nil, err
	}
	exchanger, ok := p.(providers.LinkExchanger)
	if !ok {
		return nil, errNotLinkable(source)
	}

	accounts, err := exchanger.ExchangeLink(ctx, code, realmID)
	if err != nil {
		return nil, err
	}

	stored := make([]*model.Account, 0, len(accounts))
	for _, account := range accounts {
		saved, err := t.datasource.CreateOrUpdateAccount(ctx, account)
		if err != nil {
			return nil, err
		}
		stored = append(stored, saved)
	}
	return stored, nil
}

// UnlinkAccount revokes the provider connection where the provider supports
// revocation, then soft-deletes the account either way.
func (t *Tally) UnlinkAccount(ctx context.Context, accountID string) error {
	account, err := t.datasource.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	if p, err := t.registry.Get(account.Source); err == nil {
		if unlinker, ok := p.(providers.Unlinker); ok {
			if err := unlinker.RemoveLink(ctx, account); err != nil {
				return err
			}
		}
	}
	return t.datasource.DeactivateAccount(ctx, account.AccountID)
}

// GetAccounts lists active accounts.
func (t *Tally) GetAccounts(ctx context.Context) ([]*model.Account, error) {
	return t.datasource.GetActiveAccounts(ctx)
}

// GetTransaction retrieves one transaction.
func (t *Tally) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return t.datasource.GetTransaction(ctx, id)
}

// ListTransactions lists transactions under a filter, newest first.
func (t *Tally) ListTransactions(ctx context.Context, filter database.TransactionFilter, limit, offset int) ([]*model.Transaction, int64, error) {
	transactions, err := t.datasource.ListTransactions(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := t.datasource.CountTransactions(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// RecordManualTransaction stores a hand-entered transaction and mirrors it to
// the spreadsheet ledger when one is configured. The mirror write is best
// effort; the stored row is the source of truth.
func (t *Tally) RecordManualTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	saved, err := t.datasource.UpsertTransaction(ctx, txn)
	if err != nil {
		return nil, err
	}
	if cnf, err := config.Fetch(); err == nil && cnf.Providers.Sheets.SpreadsheetID != "" {
		_ = t.sheets.AppendTransaction(ctx, saved)
	}
	return saved, nil
}

// DeleteManualTransaction removes a transaction. Only manual and CSV-imported
// rows may be deleted; provider-synced rows would just come back on the next
// sync.
func (t *Tally) DeleteManualTransaction(ctx context.Context, id string) error {
	txn, err := t.datasource.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if txn.Source != model.SourceManual && txn.Source != model.SourceCreditCard {
		return errNotDeletable(txn.Source)
	}
	return t.datasource.DeleteTransaction(ctx, txn.TransactionID)
}

// GetCompanies lists the allocation targets.
func (t *Tally) GetCompanies(ctx context.Context) ([]*model.Company, error) {
	return t.datasource.GetCompanies(ctx)
}

// ConnectManualCard registers a card account with no provider feed. Activity
// arrives through statement imports and manual entry.
func (t *Tally) ConnectManualCard(ctx context.Context, issuer string, details providers.ManualCardDetails) (*model.Account, error) {
	account, err := providers.NewManualCardAccount(issuer, details)
	if err != nil {
		return nil, err
	}
	return t.datasource.CreateOrUpdateAccount(ctx, account)
}

// ImportCardStatement parses a CSV statement export and stores its rows.
// Rows that fail to parse are skipped; re-importing the same file is
// idempotent through the source-id upsert.
func (t *Tally) ImportCardStatement(ctx context.Context, issuer string, r io.Reader) (int, error) {
	transactions, err := providers.ImportCSV(r, issuer)
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
	return count, nil
}

// QueueSync enqueues a full sync run for the worker pool. Duplicate triggers
// while one is pending collapse into a single job.
func (t *Tally) QueueSync() error {
	if t.queue == nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Task queue is not configured", nil)
	}
	return t.queue.EnqueueSync()
}

func errNotLinkable(source string) error {
	return apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Provider '%s' has no link flow", source), nil)
}

func errNotDeletable(source string) error {
	return apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Transactions synced from '%s' cannot be deleted", source), nil)
}
