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

// BudgetCategory is a per-company spend bucket with a limit and running total.
type BudgetCategory struct {
	Name         string  `json:"name"`
	BudgetLimit  float64 `json:"budget_limit"`
	CurrentSpend float64 `json:"current_spend"`
	Period       string  `json:"period"` // monthly, quarterly, yearly
}

// Company is a business entity used as an allocation target for partitioning
// transactions in reporting. The set of valid names is closed; see
// CompanyNames in model.go.
type Company struct {
	ID          int64            `json:"-"`
	CompanyID   string           `json:"id"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Type        string           `json:"type"` // business or personal
	TaxID       string           `json:"tax_id,omitempty"`
	Categories  []BudgetCategory `json:"categories,omitempty"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DefaultCompanies returns the fixed company set used to seed storage.
func DefaultCompanies() []Company {
	now := time.Now()
	companies := make([]Company, 0, len(CompanyNames))
	for _, name := range CompanyNames {
		kind := "business"
		if name == "Personal" {
			kind = "personal"
		}
		companies = append(companies, Company{
			CompanyID:   GenerateUUIDWithSuffix("comp"),
			Name:        name,
			DisplayName: name,
			Type:        kind,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return companies
}
