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

package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Provider source identifiers. A transaction or account carries exactly one of
// these; it decides which adapter owns the record during sync.
const (
	SourcePlaid      = "plaid"
	SourcePayPal     = "paypal"
	SourceSheets     = "google_sheets"
	SourceQuickBooks = "quickbooks"
	SourceSBA        = "sba_api"
	SourceCreditCard = "credit_card"
	SourceManual     = "manual"
)

// Transaction direction. Amounts are stored as non-negative magnitudes; the
// cash-flow sign is carried here, never by the amount itself.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// Account kinds.
const (
	AccountChecking   = "checking"
	AccountSavings    = "savings"
	AccountCredit     = "credit"
	AccountLoan       = "loan"
	AccountInvestment = "investment"
	AccountPayPal     = "paypal"
)

// CompanyUnallocated is the sentinel allocation target a freshly synced
// transaction carries until a human assigns it.
const CompanyUnallocated = "Unallocated"

// CompanyNames is the closed set of valid allocation targets.
var CompanyNames = []string{"ClayGenius", "RecruitCloud", "DataLabs", "Swyft Advance", "Personal"}

// IsValidCompany reports whether name is in the closed company set.
// Unallocated is not a company; it is only a transaction placeholder.
func IsValidCompany(name string) bool {
	for _, c := range CompanyNames {
		if c == name {
			return true
		}
	}
	return false
}

func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}
