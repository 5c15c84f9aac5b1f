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

package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tallyhq/tally/config"
	"github.com/tallyhq/tally/internal/request"
	"github.com/tallyhq/tally/model"
)

// Sheets is the spreadsheet-ledger adapter: debts are read from a Debts
// range, daily spending summaries appended to a reporting range. It speaks
// plain HTTP to the values API with a bearer credential.
type Sheets struct {
	conf    config.SheetsConfig
	baseURL string
	client  *http.Client
}

func NewSheets(conf config.SheetsConfig) *Sheets {
	return &Sheets{
		conf:    conf,
		baseURL: "https://sheets.googleapis.com/v4/spreadsheets",
		client:  httpClient(),
	}
}

func (s *Sheets) Source() string { return model.SourceSheets }

func (s *Sheets) valuesURL(rng string) string {
	return fmt.Sprintf("%s/%s/values/%s", s.baseURL, s.conf.SpreadsheetID, url.PathEscape(rng))
}

func (s *Sheets) getRange(ctx context.Context, rng string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.valuesURL(rng), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.conf.AccessToken)

	var response struct {
		Values [][]string `json:"values"`
	}
	resp, err := request.CallWithClient(s.client, req, &response)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d reading range %s", resp.StatusCode, rng)
	}
	return response.Values, nil
}

func (s *Sheets) appendRange(ctx context.Context, rng string, row []interface{}) error {
	payload := map[string]interface{}{"values": [][]interface{}{row}}
	body, err := request.ToJsonReq(payload)
	if err != nil {
		return err
	}

	endpoint := s.valuesURL(rng) + ":append?valueInputOption=RAW&insertDataOption=INSERT_ROWS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.conf.AccessToken)

	var response struct{}
	resp, err := request.CallWithClient(s.client, req, &response)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d appending to range %s", resp.StatusCode, rng)
	}
	return nil
}

var headerCleaner = regexp.MustCompile(`[^a-z0-9_]`)

// normalizeHeader turns a human column title into a stable key: lowercase,
// spaces to underscores, punctuation dropped.
func normalizeHeader(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = strings.ReplaceAll(key, " ", "_")
	return headerCleaner.ReplaceAllString(key, "")
}

// FetchDebts reads the Debts range and maps header-keyed rows onto canonical
// debts. Column titles vary between sheets, so each field accepts a couple of
// common spellings.
func (s *Sheets) FetchDebts(ctx context.Context) ([]*model.Debt, error) {
	rows, err := s.getRange(ctx, "Debts!A:F")
	if err != nil {
		return nil, providerError(s.Source(), "debts fetch", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = normalizeHeader(header)
	}

	var debts []*model.Debt
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = strings.TrimSpace(row[i])
			}
		}

		debt := debtFromRecord(record)
		if debt.Name == "" {
			continue
		}
		debts = append(debts, debt)
	}
	return debts, nil
}

func debtFromRecord(record map[string]string) *model.Debt {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if record[key] != "" {
				return record[key]
			}
		}
		return ""
	}
	parse := func(keys ...string) float64 {
		raw := strings.NewReplacer("$", "", ",", "").Replace(pick(keys...))
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}

	kind := pick("type")
	if kind == "" {
		kind = model.DebtCreditCard
	}

	debt := &model.Debt{
		Name:           pick("creditor", "name"),
		Type:           kind,
		Source:         model.SourceSheets,
		CurrentBalance: parse("current_balance", "balance"),
		MinimumPayment: parse("minimum_payment", "min_payment"),
		DueDate:        pick("due_date"),
		IsActive:       true,
	}
	if limit := parse("credit_limit", "limit"); limit > 0 {
		debt.CreditLimit = &limit
	}
	if apr := parse("apr", "interest_rate"); apr > 0 {
		debt.APR = &apr
	}
	if day, err := strconv.Atoi(strings.TrimSuffix(debt.DueDate, "th")); err == nil {
		debt.DueDateDay = day
	}
	return debt
}

// AppendDailySummary writes one summary row to the reporting range.
func (s *Sheets) AppendDailySummary(ctx context.Context, summary *model.DailySummary) error {
	row := []interface{}{
		summary.Date,
		summary.TotalSpent,
		summary.TransactionCount,
		summary.TopCategory,
		summary.AverageTransaction,
	}
	if err := s.appendRange(ctx, "DailySummary!A:E", row); err != nil {
		return providerError(s.Source(), "summary append", err)
	}
	return nil
}

// AppendTransaction writes a manual transaction to the ledger's Transactions
// range, mirroring it for spreadsheet-side visibility.
func (s *Sheets) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	row := []interface{}{
		txn.Date.Format("2006-01-02T15:04:05Z07:00"),
		txn.Description,
		txn.Amount,
		txn.Category,
		txn.Source,
		txn.Merchant,
	}
	if err := s.appendRange(ctx, "Transactions!A:F", row); err != nil {
		return providerError(s.Source(), "transaction append", err)
	}
	return nil
}

// BudgetLine is one row of the spreadsheet's Budget range.
type BudgetLine struct {
	Category string  `json:"category"`
	Budgeted float64 `json:"budgeted"`
	Spent    float64 `json:"spent"`
}

// FetchMonthlyBudget reads the Budget range.
func (s *Sheets) FetchMonthlyBudget(ctx context.Context) ([]BudgetLine, error) {
	rows, err := s.getRange(ctx, "Budget!A:C")
	if err != nil {
		return nil, providerError(s.Source(), "budget fetch", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	var lines []BudgetLine
	for _, row := range rows[1:] {
		line := BudgetLine{}
		if len(row) > 0 {
			line.Category = row[0]
		}
		if len(row) > 1 {
			line.Budgeted, _ = strconv.ParseFloat(strings.ReplaceAll(row[1], "$", ""), 64)
		}
		if len(row) > 2 {
			line.Spent, _ = strconv.ParseFloat(strings.ReplaceAll(row[2], "$", ""), 64)
		}
		if line.Category != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
