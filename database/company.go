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

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

const companyColumns = `company_id, name, display_name, type, tax_id, categories, is_active, created_at, updated_at`

// SeedCompanies inserts the fixed company set; names already present are left
// untouched, so seeding on every boot is safe.
func (d Datasource) SeedCompanies(ctx context.Context) error {
	for _, company := range model.DefaultCompanies() {
		categoriesJSON, err := json.Marshal(company.Categories)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal budget categories", err)
		}
		_, err = d.Conn.ExecContext(ctx, `
			INSERT INTO companies (`+companyColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (name) DO NOTHING
		`,
			company.CompanyID, company.Name, company.DisplayName, company.Type, company.TaxID,
			categoriesJSON, company.IsActive, company.CreatedAt, company.UpdatedAt,
		)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to seed companies", err)
		}
	}
	return nil
}

func scanCompany(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Company, error) {
	company := &model.Company{}
	var categoriesJSON []byte
	var taxID sql.NullString

	err := scanner.Scan(
		&company.CompanyID, &company.Name, &company.DisplayName, &company.Type, &taxID,
		&categoriesJSON, &company.IsActive, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	company.TaxID = taxID.String
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &company.Categories); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal budget categories", err)
		}
	}
	return company, nil
}

func (d Datasource) GetCompanies(ctx context.Context) ([]*model.Company, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE is_active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list companies", err)
	}
	defer func() { _ = rows.Close() }()

	var companies []*model.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan company", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

func (d Datasource) GetCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE name = $1
	`, name)

	company, err := scanCompany(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Company '%s' not found", name), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve company", err)
	}
	return company, nil
}

// UpdateBudgetSpend adds spend to the named category's running total. A
// company with no matching category is a no-op, not an error — budgets are
// opt-in per category.
func (d Datasource) UpdateBudgetSpend(ctx context.Context, companyName, category string, amount float64) error {
	company, err := d.GetCompanyByName(ctx, companyName)
	if err != nil {
		return err
	}

	updated := false
	for i := range company.Categories {
		if company.Categories[i].Name == category {
			company.Categories[i].CurrentSpend += amount
			updated = true
			break
		}
	}
	if !updated {
		return nil
	}

	categoriesJSON, err := json.Marshal(company.Categories)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal budget categories", err)
	}
	_, err = d.Conn.ExecContext(ctx, `
		UPDATE companies
		SET categories = $2, updated_at = CURRENT_TIMESTAMP
		WHERE name = $1
	`, companyName, categoriesJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update budget spend", err)
	}
	return nil
}
