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
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

func debtRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"debt_id", "name", "type", "source", "account_id", "current_balance", "original_balance", "credit_limit",
		"minimum_payment", "apr", "due_date", "due_date_day", "payment_history", "is_active", "meta_data", "last_updated", "created_at",
	})
}

func debtRowValues(debtID string, balance float64, dueDay int) []driver.Value {
	now := time.Now()
	return []driver.Value{
		debtID, "Chase Sapphire", model.DebtCreditCard, model.SourceSheets, "", balance, 5000.0, 8000.0,
		150.0, 21.99, "15th", dueDay, []byte("[]"), true, []byte("null"), now, now,
	}
}

func TestRecordDebtPayment_DecrementsAndAppends(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM debts WHERE debt_id = \\$1 FOR UPDATE").
		WithArgs("debt_1").
		WillReturnRows(debtRows().AddRow(debtRowValues("debt_1", 500.0, 15)...))
	mock.ExpectExec("UPDATE debts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	debt, err := ds.RecordDebtPayment(context.Background(), "debt_1", 100.0, "august payment")
	assert.NoError(t, err)
	assert.Equal(t, 400.0, debt.CurrentBalance)
	assert.Len(t, debt.PaymentHistory, 1)
	assert.Equal(t, 100.0, debt.PaymentHistory[0].Amount)
	assert.Equal(t, 400.0, debt.PaymentHistory[0].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDebtPayment_OverpaymentGoesNegative(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM debts WHERE debt_id = \\$1 FOR UPDATE").
		WithArgs("debt_1").
		WillReturnRows(debtRows().AddRow(debtRowValues("debt_1", 70.0, 15)...))
	mock.ExpectExec("UPDATE debts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	debt, err := ds.RecordDebtPayment(context.Background(), "debt_1", 100.0, "final payoff")
	assert.NoError(t, err)
	assert.Equal(t, -30.0, debt.CurrentBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDebtPayment_RejectsNonPositive(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	_, err = ds.RecordDebtPayment(context.Background(), "debt_1", 0, "")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrValidation, apiErr.Code)
}

func TestRecordDebtPayment_NotFoundRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM debts WHERE debt_id = \\$1 FOR UPDATE").
		WithArgs("debt_missing").
		WillReturnRows(debtRows())
	mock.ExpectRollback()

	_, err = ds.RecordDebtPayment(context.Background(), "debt_missing", 50.0, "")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTotalDebt(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(current_balance\\), 0\\), COUNT\\(\\*\\)").
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(12500.0, 3))

	total, count, err := ds.TotalDebt(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 12500.0, total)
	assert.Equal(t, 3, count)
}

func TestDebtSummaryByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT type, COALESCE\\(SUM\\(current_balance\\), 0\\)").
		WillReturnRows(sqlmock.NewRows([]string{"type", "sum", "count", "avg"}).
			AddRow(model.DebtSBALoan, 45000.0, 1, 45000.0).
			AddRow(model.DebtCreditCard, 3200.0, 2, 1600.0))

	summary, err := ds.DebtSummaryByType(context.Background())
	assert.NoError(t, err)
	assert.Len(t, summary, 2)
	assert.Equal(t, model.DebtSBALoan, summary[0].Type)
	assert.Equal(t, 45000.0, summary[0].Total)
}

func TestNextDueDate_ClampsShortMonths(t *testing.T) {
	// The 31st in June falls on the 30th.
	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	due := nextDueDate(from, 31)
	assert.Equal(t, 30, due.Day())
	assert.Equal(t, time.June, due.Month())
}

func TestNextDueDate_RollsToNextMonth(t *testing.T) {
	from := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	due := nextDueDate(from, 5)
	assert.Equal(t, 5, due.Day())
	assert.Equal(t, time.September, due.Month())
}
