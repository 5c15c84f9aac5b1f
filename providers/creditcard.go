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
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

// CardIssuer describes one supported card issuer and how it connects: via
// the banking feed (institution id) or manual tracking with statement
// imports.
type CardIssuer struct {
	Key                string   `json:"key"`
	Name               string   `json:"name"`
	SupportedCards     []string `json:"supported_cards"`
	PlaidInstitutionID string   `json:"plaid_institution_id,omitempty"`
	ManualEntry        bool     `json:"manual_entry"`
}

// CardIssuers is the supported issuer catalog.
var CardIssuers = []CardIssuer{
	{Key: "chase", Name: "Chase", SupportedCards: []string{"Sapphire Preferred", "Sapphire Reserve", "Freedom", "Ink Business"}, PlaidInstitutionID: "ins_56"},
	{Key: "americanExpress", Name: "American Express", SupportedCards: []string{"Platinum", "Gold", "Blue Cash", "Business Platinum"}, PlaidInstitutionID: "ins_11"},
	{Key: "capitalOne", Name: "Capital One", SupportedCards: []string{"Venture", "Savor", "Quicksilver", "Spark Business"}, PlaidInstitutionID: "ins_128026"},
	{Key: "bankOfAmerica", Name: "Bank of America", SupportedCards: []string{"Cash Rewards", "Travel Rewards", "Premium Rewards"}, PlaidInstitutionID: "ins_4"},
	{Key: "barclays", Name: "Barclays", SupportedCards: []string{"Barclays Arrival Plus", "Barclays AAdvantage", "Barclays View"}, PlaidInstitutionID: "ins_3", ManualEntry: true},
}

// LookupIssuer finds an issuer by key.
func LookupIssuer(key string) (CardIssuer, bool) {
	for _, issuer := range CardIssuers {
		if issuer.Key == key {
			return issuer, true
		}
	}
	return CardIssuer{}, false
}

// ManualCardDetails is the caller-supplied shape for a manually tracked card.
type ManualCardDetails struct {
	LastFourDigits string  `json:"last_four_digits"`
	CardType       string  `json:"card_type"`
	CreditLimit    float64 `json:"credit_limit"`
	CurrentBalance float64 `json:"current_balance"`
	DueDate        string  `json:"due_date"`
	MinimumPayment float64 `json:"minimum_payment"`
}

// NewManualCardAccount builds a manually tracked card account. There is no
// feed; balances and transactions arrive through statement imports or direct
// entry.
func NewManualCardAccount(issuerKey string, details ManualCardDetails) (*model.Account, error) {
	issuer, ok := LookupIssuer(issuerKey)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Card issuer '%s' is not supported", issuerKey), nil)
	}

	limit := details.CreditLimit
	account := &model.Account{
		Source:          model.SourceCreditCard,
		SourceAccountID: fmt.Sprintf("card_%s_%s", issuer.Key, details.LastFourDigits),
		InstitutionName: issuer.Name,
		AccountName:     fmt.Sprintf("%s ••%s", issuer.Name, details.LastFourDigits),
		AccountType:     model.AccountCredit,
		AccountSubtype:  details.CardType,
		Mask:            details.LastFourDigits,
		CurrentBalance:  details.CurrentBalance,
		CreditLimit:     &limit,
		Currency:        "USD",
		IsActive:        true,
		MetaData: map[string]interface{}{
			"manual_entry":    true,
			"due_date":        details.DueDate,
			"minimum_payment": details.MinimumPayment,
		},
	}
	return account, nil
}

// ImportCSV parses a card statement export into canonical transactions. The
// header row names the columns; common spellings are accepted. Rows with an
// unparseable date or a zero amount are skipped, not failed — statement
// exports routinely carry header repetitions and summary lines.
func ImportCSV(r io.Reader, issuerKey string) ([]*model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Failed to parse CSV statement", err)
	}
	if len(records) < 2 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "CSV statement has no data rows", nil)
	}

	headers := make([]string, len(records[0]))
	for i, header := range records[0] {
		headers[i] = normalizeHeader(header)
	}

	var transactions []*model.Transaction
	for ordinal, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			}
		}

		txn := csvRowToTransaction(row, issuerKey, ordinal)
		if txn != nil {
			transactions = append(transactions, txn)
		}
	}
	return transactions, nil
}

var csvDateFormats = []string{"2006-01-02", "01/02/2006", "1/2/2006", "01/02/06"}

// statementRowID derives a stable identifier for a statement row so the same
// export can be imported more than once without duplicating transactions. The
// row's ordinal keeps genuinely identical lines within one file distinct.
func statementRowID(issuerKey string, date time.Time, amount float64, description string, ordinal int) string {
	data := fmt.Sprintf("%s%s%f%s%d", issuerKey, date.Format("2006-01-02"), amount, description, ordinal)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func csvRowToTransaction(row map[string]string, issuerKey string, ordinal int) *model.Transaction {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if row[key] != "" {
				return row[key]
			}
		}
		return ""
	}

	rawDate := pick("date", "transaction_date", "posted_date")
	var date time.Time
	var err error
	for _, format := range csvDateFormats {
		date, err = time.Parse(format, rawDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}

	rawAmount := strings.NewReplacer("$", "", ",", "").Replace(pick("amount", "debit", "charge"))
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil || amount == 0 {
		return nil
	}

	txnType := model.TypeDebit
	if amount < 0 {
		txnType = model.TypeCredit
	}

	description := pick("description", "merchant")
	category := pick("category")
	if category == "" {
		category = "Other"
	}

	return &model.Transaction{
		Source:       model.SourceCreditCard,
		SourceID:     fmt.Sprintf("%s_csv_%s", issuerKey, statementRowID(issuerKey, date, amount, description, ordinal)),
		Company:      model.CompanyUnallocated,
		Date:         date,
		Amount:       abs(amount),
		Currency:     "USD",
		Description:  description,
		Merchant:     pick("merchant", "description"),
		Category:     category,
		Type:         txnType,
		CardProvider: issuerKey,
	}
}
