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

import "time"

// Account is one financial account at one provider. SourceAccountID is the
// provider-native account id and is globally unique; it is the idempotency
// boundary for balance updates. Accounts are soft-deleted (IsActive=false)
// so historical transactions stay valid.
type Account struct {
	ID               int64                  `json:"-"`
	AccountID        string                 `json:"id"`
	Source           string                 `json:"source"`
	SourceAccountID  string                 `json:"source_account_id"`
	AccessToken      string                 `json:"-"`
	InstitutionName  string                 `json:"institution_name"`
	AccountName      string                 `json:"account_name"`
	AccountType      string                 `json:"account_type"`
	AccountSubtype   string                 `json:"account_subtype,omitempty"`
	Mask             string                 `json:"mask,omitempty"`
	CurrentBalance   float64                `json:"current_balance"`
	AvailableBalance float64                `json:"available_balance"`
	CreditLimit      *float64               `json:"credit_limit,omitempty"`
	Currency         string                 `json:"currency"`
	IsActive         bool                   `json:"is_active"`
	LastSynced       time.Time              `json:"last_synced"`
	SyncError        string                 `json:"sync_error,omitempty"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// UpdateBalance applies the freshest provider figures. When the provider does
// not distinguish an available balance, the current balance stands in for it.
// The sync timestamp is refreshed and any previous sync error cleared.
func (a *Account) UpdateBalance(current float64, available *float64) {
	a.CurrentBalance = current
	if available != nil {
		a.AvailableBalance = *available
	} else {
		a.AvailableBalance = current
	}
	a.LastSynced = time.Now()
	a.SyncError = ""
}

// MarkSyncError records a failed sync attempt with a timestamp.
func (a *Account) MarkSyncError(message string) {
	a.SyncError = message
	a.LastSynced = time.Now()
}
