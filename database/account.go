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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

const accountColumns = `account_id, source, source_account_id, access_token, institution_name, account_name,
	account_type, account_subtype, mask, current_balance, available_balance, credit_limit, currency,
	is_active, last_synced, sync_error, meta_data, created_at, updated_at`

// CreateOrUpdateAccount upserts an account keyed by its provider-native id.
// Balances and metadata are refreshed on conflict; the access token is only
// overwritten when the caller supplies a new one.
func (d Datasource) CreateOrUpdateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acct")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = time.Now()

	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal account metadata", err)
	}

	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (source_account_id) DO UPDATE SET
			institution_name = EXCLUDED.institution_name,
			account_name = EXCLUDED.account_name,
			account_type = EXCLUDED.account_type,
			account_subtype = EXCLUDED.account_subtype,
			mask = EXCLUDED.mask,
			current_balance = EXCLUDED.current_balance,
			available_balance = EXCLUDED.available_balance,
			credit_limit = EXCLUDED.credit_limit,
			currency = EXCLUDED.currency,
			is_active = TRUE,
			access_token = COALESCE(NULLIF(EXCLUDED.access_token, ''), accounts.access_token),
			meta_data = EXCLUDED.meta_data,
			last_synced = EXCLUDED.last_synced,
			updated_at = EXCLUDED.updated_at
		RETURNING account_id
	`,
		account.AccountID, account.Source, account.SourceAccountID, account.AccessToken, account.InstitutionName, account.AccountName,
		account.AccountType, account.AccountSubtype, account.Mask, account.CurrentBalance, account.AvailableBalance, account.CreditLimit, account.Currency,
		account.IsActive, account.LastSynced, account.SyncError, metaDataJSON, account.CreatedAt, account.UpdatedAt,
	).Scan(&account.AccountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert account", err)
	}
	return account, nil
}

func scanAccount(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Account, error) {
	account := &model.Account{}
	var metaDataJSON []byte
	var accessToken, institutionName, accountName, accountType, accountSubtype, mask, syncError sql.NullString
	var creditLimit sql.NullFloat64
	var lastSynced sql.NullTime

	err := scanner.Scan(
		&account.AccountID, &account.Source, &account.SourceAccountID, &accessToken, &institutionName, &accountName,
		&accountType, &accountSubtype, &mask, &account.CurrentBalance, &account.AvailableBalance, &creditLimit, &account.Currency,
		&account.IsActive, &lastSynced, &syncError, &metaDataJSON, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.AccessToken = accessToken.String
	account.InstitutionName = institutionName.String
	account.AccountName = accountName.String
	account.AccountType = accountType.String
	account.AccountSubtype = accountSubtype.String
	account.Mask = mask.String
	account.SyncError = syncError.String
	if creditLimit.Valid {
		account.CreditLimit = &creditLimit.Float64
	}
	if lastSynced.Valid {
		account.LastSynced = lastSynced.Time
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &account.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal account metadata", err)
		}
	}
	return account, nil
}

func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_id = $1 OR source_account_id = $1
	`, id)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return account, nil
}

func (d Datasource) GetAccountsBySource(ctx context.Context, source string, activeOnly bool) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE source = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := d.Conn.QueryContext(ctx, query, source)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list accounts", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAccounts(rows)
}

func (d Datasource) GetActiveAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_active = TRUE
		ORDER BY source, created_at
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list accounts", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]*model.Account, error) {
	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateAccountBalance writes fresh balances and clears any sync error.
func (d Datasource) UpdateAccountBalance(ctx context.Context, accountID string, current, available float64) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE accounts
		SET current_balance = $2, available_balance = $3, sync_error = '',
			last_synced = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1 OR source_account_id = $1
	`, accountID, current, available)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account balance", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account balance", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", accountID), nil)
	}
	return nil
}

func (d Datasource) MarkAccountSyncError(ctx context.Context, accountID string, message string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE accounts
		SET sync_error = $2, last_synced = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1 OR source_account_id = $1
	`, accountID, message)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record sync error", err)
	}
	return nil
}

// DeactivateAccount soft deletes. Historical transactions keep referencing
// the account.
func (d Datasource) DeactivateAccount(ctx context.Context, accountID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE accounts
		SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1 OR source_account_id = $1
	`, accountID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to deactivate account", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to deactivate account", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", accountID), nil)
	}
	return nil
}

func (d Datasource) TotalBalanceByType(ctx context.Context) (map[string]float64, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_type, COALESCE(SUM(current_balance), 0)
		FROM accounts
		WHERE is_active = TRUE
		GROUP BY account_type
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to aggregate balances", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]float64)
	for rows.Next() {
		var accountType string
		var total float64
		if err := rows.Scan(&accountType, &total); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan balance aggregate", err)
		}
		totals[accountType] = total
	}
	return totals, rows.Err()
}
