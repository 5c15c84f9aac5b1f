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

const debtColumns = `debt_id, name, type, source, account_id, current_balance, original_balance, credit_limit,
	minimum_payment, apr, due_date, due_date_day, payment_history, is_active, meta_data, last_updated, created_at`

// UpsertDebt inserts or refreshes a debt keyed by (name, source). Payment
// history is preserved on conflict — a re-sync updates figures, never
// rewrites history.
func (d Datasource) UpsertDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	if debt.DebtID == "" {
		debt.DebtID = model.GenerateUUIDWithSuffix("debt")
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now()
	}
	debt.LastUpdated = time.Now()

	historyJSON, err := json.Marshal(debt.PaymentHistory)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal payment history", err)
	}
	metaDataJSON, err := json.Marshal(debt.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal debt metadata", err)
	}

	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (name, source) DO UPDATE SET
			type = EXCLUDED.type,
			account_id = EXCLUDED.account_id,
			current_balance = EXCLUDED.current_balance,
			original_balance = COALESCE(EXCLUDED.original_balance, debts.original_balance),
			credit_limit = EXCLUDED.credit_limit,
			minimum_payment = EXCLUDED.minimum_payment,
			apr = EXCLUDED.apr,
			due_date = EXCLUDED.due_date,
			due_date_day = EXCLUDED.due_date_day,
			is_active = TRUE,
			meta_data = EXCLUDED.meta_data,
			last_updated = EXCLUDED.last_updated
		RETURNING debt_id, payment_history
	`,
		debt.DebtID, debt.Name, debt.Type, debt.Source, debt.AccountID, debt.CurrentBalance, debt.OriginalBalance, debt.CreditLimit,
		debt.MinimumPayment, debt.APR, debt.DueDate, debt.DueDateDay, historyJSON, debt.IsActive, metaDataJSON, debt.LastUpdated, debt.CreatedAt,
	).Scan(&debt.DebtID, &historyJSON)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert debt", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &debt.PaymentHistory); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal payment history", err)
		}
	}
	return debt, nil
}

func scanDebt(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Debt, error) {
	debt := &model.Debt{}
	var historyJSON, metaDataJSON []byte
	var accountID, dueDate sql.NullString
	var originalBalance, creditLimit, apr sql.NullFloat64
	var dueDateDay sql.NullInt64

	err := scanner.Scan(
		&debt.DebtID, &debt.Name, &debt.Type, &debt.Source, &accountID, &debt.CurrentBalance, &originalBalance, &creditLimit,
		&debt.MinimumPayment, &apr, &dueDate, &dueDateDay, &historyJSON, &debt.IsActive, &metaDataJSON, &debt.LastUpdated, &debt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	debt.AccountID = accountID.String
	debt.DueDate = dueDate.String
	debt.DueDateDay = int(dueDateDay.Int64)
	if originalBalance.Valid {
		debt.OriginalBalance = &originalBalance.Float64
	}
	if creditLimit.Valid {
		debt.CreditLimit = &creditLimit.Float64
	}
	if apr.Valid {
		debt.APR = &apr.Float64
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &debt.PaymentHistory); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal payment history", err)
		}
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &debt.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal debt metadata", err)
		}
	}
	return debt, nil
}

func (d Datasource) GetDebtByID(ctx context.Context, id string) (*model.Debt, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+debtColumns+`
		FROM debts
		WHERE debt_id = $1
	`, id)

	debt, err := scanDebt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Debt with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve debt", err)
	}
	return debt, nil
}

func (d Datasource) GetDebt(ctx context.Context, name, source string) (*model.Debt, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+debtColumns+`
		FROM debts
		WHERE name = $1 AND source = $2
	`, name, source)

	debt, err := scanDebt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Debt '%s' from source '%s' not found", name, source), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve debt", err)
	}
	return debt, nil
}

func (d Datasource) GetActiveDebts(ctx context.Context) ([]*model.Debt, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+debtColumns+`
		FROM debts
		WHERE is_active = TRUE
		ORDER BY current_balance DESC
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list debts", err)
	}
	defer func() { _ = rows.Close() }()

	var debts []*model.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan debt", err)
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

// RecordDebtPayment decrements the balance and appends a history entry in a
// single database transaction, so the recorded post-payment balance can never
// drift from the stored balance. The row is locked for the duration.
func (d Datasource) RecordDebtPayment(ctx context.Context, debtID string, amount float64, note string) (*model.Debt, error) {
	if amount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "payment amount must be positive", nil)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin payment transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+debtColumns+`
		FROM debts
		WHERE debt_id = $1
		FOR UPDATE
	`, debtID)

	debt, err := scanDebt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Debt with ID '%s' not found", debtID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve debt", err)
	}

	debt.RecordPayment(amount, note)

	historyJSON, err := json.Marshal(debt.PaymentHistory)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal payment history", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE debts
		SET current_balance = $2, payment_history = $3, last_updated = $4
		WHERE debt_id = $1
	`, debtID, debt.CurrentBalance, historyJSON, debt.LastUpdated)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit payment", err)
	}
	return debt, nil
}

func (d Datasource) DebtSummaryByType(ctx context.Context) ([]DebtTypeSummary, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(current_balance), 0), COUNT(*), COALESCE(AVG(current_balance), 0)
		FROM debts
		WHERE is_active = TRUE
		GROUP BY type
		ORDER BY SUM(current_balance) DESC
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to summarize debts", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []DebtTypeSummary
	for rows.Next() {
		var row DebtTypeSummary
		if err := rows.Scan(&row.Type, &row.Total, &row.Count, &row.AvgBalance); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan debt summary", err)
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

func (d Datasource) TotalDebt(ctx context.Context) (float64, int, error) {
	var total float64
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(current_balance), 0), COUNT(*)
		FROM debts
		WHERE is_active = TRUE
	`).Scan(&total, &count)
	if err != nil {
		return 0, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute total debt", err)
	}
	return total, count, nil
}

// UpcomingPayments returns active debts whose monthly due day falls within
// the next `days` days.
func (d Datasource) UpcomingPayments(ctx context.Context, days int) ([]*model.Debt, error) {
	debts, err := d.GetActiveDebts(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	horizon := now.AddDate(0, 0, days)

	var upcoming []*model.Debt
	for _, debt := range debts {
		if debt.DueDateDay < 1 || debt.DueDateDay > 31 {
			continue
		}
		due := nextDueDate(now, debt.DueDateDay)
		if !due.After(horizon) {
			upcoming = append(upcoming, debt)
		}
	}
	return upcoming, nil
}

// nextDueDate finds the next occurrence of a monthly due day, clamping days
// that exceed the month's length (the 31st falls on the 30th in June).
func nextDueDate(from time.Time, day int) time.Time {
	year, month := from.Year(), from.Month()
	due := time.Date(year, month, 1, 0, 0, 0, 0, from.Location()).AddDate(0, 0, clampDay(year, month, day)-1)
	if due.Before(from) {
		next := time.Date(year, month, 1, 0, 0, 0, 0, from.Location()).AddDate(0, 1, 0)
		due = next.AddDate(0, 0, clampDay(next.Year(), next.Month(), day)-1)
	}
	return due
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if day > last {
		return last
	}
	return day
}
