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
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

const transactionColumns = `transaction_id, source, source_id, account_id, company, allocation_percentage, split_allocations,
	date, amount, currency, description, merchant, category, subcategory, type, pending,
	expense_source, invoice_number, receipt_url, card_provider, business_purpose, tax_deductible, notes,
	tags, meta_data, location, created_at, updated_at`

// UpsertTransaction inserts a canonical transaction keyed by its
// provider-native source id. On conflict the provider-derived fields are
// overwritten with the fresh normalization (pending→posted corrections
// propagate) while the allocation fields survive — a human assignment is
// never undone by a re-sync.
func (d Datasource) UpsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("tally.sync").Start(ctx, "Upserting transaction")
	defer span.End()

	if txn.Amount < 0 {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "transaction amount must be a non-negative magnitude", nil)
	}
	if txn.TransactionID == "" {
		txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	txn.UpdatedAt = time.Now()

	splitJSON, metaDataJSON, tagsJSON, locationJSON, err := marshalTransactionJSON(txn)
	if err != nil {
		return nil, err
	}

	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
		ON CONFLICT (source_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			date = EXCLUDED.date,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			description = EXCLUDED.description,
			merchant = EXCLUDED.merchant,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			type = EXCLUDED.type,
			pending = EXCLUDED.pending,
			meta_data = EXCLUDED.meta_data,
			location = EXCLUDED.location,
			updated_at = EXCLUDED.updated_at
		RETURNING transaction_id, company, allocation_percentage
	`,
		txn.TransactionID, txn.Source, txn.SourceID, txn.AccountID, txn.Company, txn.AllocationPercentage, splitJSON,
		txn.Date, txn.Amount, txn.Currency, txn.Description, txn.Merchant, txn.Category, txn.Subcategory, txn.Type, txn.Pending,
		txn.ExpenseSource, txn.InvoiceNumber, txn.ReceiptURL, txn.CardProvider, txn.BusinessPurpose, txn.TaxDeductible, txn.Notes,
		tagsJSON, metaDataJSON, locationJSON, txn.CreatedAt, txn.UpdatedAt,
	)

	err = row.Scan(&txn.TransactionID, &txn.Company, &txn.AllocationPercentage)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Benign race: a concurrent sync inserted the same source id with
			// equivalent data first.
			return d.GetTransactionBySourceID(ctx, txn.SourceID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert transaction", err)
	}

	return txn, nil
}

func marshalTransactionJSON(txn *model.Transaction) (split, metaData, tags, location []byte, err error) {
	split, err = json.Marshal(txn.SplitAllocations)
	if err != nil {
		return nil, nil, nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal split allocations", err)
	}
	metaData, err = json.Marshal(txn.MetaData)
	if err != nil {
		return nil, nil, nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}
	tags, err = json.Marshal(txn.Tags)
	if err != nil {
		return nil, nil, nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal tags", err)
	}
	location, err = json.Marshal(txn.Location)
	if err != nil {
		return nil, nil, nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal location", err)
	}
	return split, metaData, tags, location, nil
}

func scanTransaction(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var splitJSON, metaDataJSON, tagsJSON, locationJSON []byte
	var merchant, subcategory, expenseSource, invoiceNumber, receiptURL, cardProvider, businessPurpose, notes sql.NullString

	err := scanner.Scan(
		&txn.TransactionID, &txn.Source, &txn.SourceID, &txn.AccountID, &txn.Company, &txn.AllocationPercentage, &splitJSON,
		&txn.Date, &txn.Amount, &txn.Currency, &txn.Description, &merchant, &txn.Category, &subcategory, &txn.Type, &txn.Pending,
		&expenseSource, &invoiceNumber, &receiptURL, &cardProvider, &businessPurpose, &txn.TaxDeductible, &notes,
		&tagsJSON, &metaDataJSON, &locationJSON, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Merchant = merchant.String
	txn.Subcategory = subcategory.String
	txn.ExpenseSource = expenseSource.String
	txn.InvoiceNumber = invoiceNumber.String
	txn.ReceiptURL = receiptURL.String
	txn.CardProvider = cardProvider.String
	txn.BusinessPurpose = businessPurpose.String
	txn.Notes = notes.String

	if len(splitJSON) > 0 {
		if err := json.Unmarshal(splitJSON, &txn.SplitAllocations); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal split allocations", err)
		}
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &txn.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &txn.Tags); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal tags", err)
		}
	}
	if len(locationJSON) > 0 && string(locationJSON) != "null" {
		txn.Location = &model.Location{}
		if err := json.Unmarshal(locationJSON, txn.Location); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal location", err)
		}
	}

	return txn, nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_id = $1
	`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

func (d Datasource) GetTransactionBySourceID(ctx context.Context, sourceID string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE source_id = $1
	`, sourceID)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with source ID '%s' not found", sourceID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

// buildTransactionFilter renders the WHERE clause for a filter. Arguments are
// appended positionally starting at $1.
func buildTransactionFilter(filter TransactionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.StartDate != nil {
		add("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("date <= $%d", *filter.EndDate)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Source != "" {
		add("source = $%d", filter.Source)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Company != "" {
		add("company = $%d", filter.Company)
	}
	if filter.MinAmount != nil {
		add("amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d", *filter.MaxAmount)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(description ILIKE $%d OR merchant ILIKE $%d)", len(args), len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (d Datasource) ListTransactions(ctx context.Context, filter TransactionFilter, limit, offset int) ([]*model.Transaction, error) {
	where, args := buildTransactionFilter(filter)
	args = append(args, limit, offset)

	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM transactions%s
		ORDER BY date DESC
		LIMIT $%d OFFSET $%d
	`, transactionColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

func (d Datasource) CountTransactions(ctx context.Context, filter TransactionFilter) (int64, error) {
	where, args := buildTransactionFilter(filter)

	var count int64
	err := d.Conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count transactions", err)
	}
	return count, nil
}

// UpdateAllocation persists the allocation fields of a transaction after an
// AllocateTo or SplitBetween mutation.
func (d Datasource) UpdateAllocation(ctx context.Context, txn *model.Transaction) error {
	splitJSON, err := json.Marshal(txn.SplitAllocations)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal split allocations", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE transactions
		SET company = $2, allocation_percentage = $3, split_allocations = $4, updated_at = $5
		WHERE transaction_id = $1
	`, txn.TransactionID, txn.Company, txn.AllocationPercentage, splitJSON, txn.UpdatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update allocation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update allocation", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", txn.TransactionID), nil)
	}
	return nil
}

// BulkAllocate assigns every listed transaction wholly to one company and
// returns how many rows were actually modified. Ids that do not exist are
// skipped, not failed.
func (d Datasource) BulkAllocate(ctx context.Context, transactionIDs []string, company string) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE transactions
		SET company = $2, allocation_percentage = 100, split_allocations = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE transaction_id = ANY($1)
	`, pq.Array(transactionIDs), company)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to bulk allocate transactions", err)
	}
	return result.RowsAffected()
}

func (d Datasource) DeleteTransaction(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete transaction", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete transaction", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
	}
	return nil
}

// DailyDebitTotal sums the debit transactions dated within the given day.
func (d Datasource) DailyDebitTotal(ctx context.Context, date time.Time) (float64, int, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	var total float64
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE type = 'debit' AND date >= $1 AND date < $2
	`, start, end).Scan(&total, &count)
	if err != nil {
		return 0, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute daily total", err)
	}
	return total, count, nil
}

func (d Datasource) CategoryBreakdown(ctx context.Context, start, end time.Time) ([]CategoryTotal, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*), COALESCE(AVG(amount), 0)
		FROM transactions
		WHERE type = 'debit' AND date >= $1 AND date <= $2
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`, start, end)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute category breakdown", err)
	}
	defer func() { _ = rows.Close() }()

	var breakdown []CategoryTotal
	for rows.Next() {
		var row CategoryTotal
		if err := rows.Scan(&row.Category, &row.Total, &row.Count, &row.AvgAmount); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan category breakdown", err)
		}
		breakdown = append(breakdown, row)
	}
	return breakdown, rows.Err()
}

func (d Datasource) GetCompanyStats(ctx context.Context, companyName string, start, end time.Time) (*CompanyStats, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE company = $1 AND date >= $2 AND date <= $3
		GROUP BY type
	`, companyName, start, end)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute company stats", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &CompanyStats{}
	for rows.Next() {
		var txnType string
		var total float64
		var count int
		if err := rows.Scan(&txnType, &total, &count); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan company stats", err)
		}
		switch txnType {
		case model.TypeDebit:
			stats.Expenses = total
		case model.TypeCredit:
			stats.Income = total
		}
		stats.TransactionCount += count
	}
	stats.Profit = stats.Income - stats.Expenses
	return stats, rows.Err()
}

func (d Datasource) GetCompanyCategoryExpenses(ctx context.Context, companyName string, start, end time.Time) ([]CategoryTotal, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*), COALESCE(AVG(amount), 0)
		FROM transactions
		WHERE company = $1 AND type = 'debit' AND date >= $2 AND date <= $3
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`, companyName, start, end)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute company expenses", err)
	}
	defer func() { _ = rows.Close() }()

	var breakdown []CategoryTotal
	for rows.Next() {
		var row CategoryTotal
		if err := rows.Scan(&row.Category, &row.Total, &row.Count, &row.AvgAmount); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan company expenses", err)
		}
		breakdown = append(breakdown, row)
	}
	return breakdown, rows.Err()
}

func (d Datasource) GetTransactionStats(ctx context.Context, start, end time.Time) (*TransactionStats, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE date >= $1 AND date <= $2
		GROUP BY type
	`, start, end)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute transaction stats", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &TransactionStats{BySource: make(map[string]int)}
	for rows.Next() {
		var txnType string
		var total float64
		var count int
		if err := rows.Scan(&txnType, &total, &count); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction stats", err)
		}
		switch txnType {
		case model.TypeDebit:
			stats.Expenses = total
			stats.ExpenseCount = count
		case model.TypeCredit:
			stats.Income = total
			stats.IncomeCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.NetFlow = stats.Income - stats.Expenses

	sourceRows, err := d.Conn.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM transactions
		WHERE date >= $1 AND date <= $2
		GROUP BY source
	`, start, end)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute source counts", err)
	}
	defer func() { _ = sourceRows.Close() }()

	for sourceRows.Next() {
		var source string
		var count int
		if err := sourceRows.Scan(&source, &count); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan source counts", err)
		}
		stats.BySource[source] = count
	}
	return stats, sourceRows.Err()
}
