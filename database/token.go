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
	"fmt"
	"time"

	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

// SaveProviderToken upserts a credential keyed by (provider, realm_id).
// Tokens survive process restarts, so a relink is only needed when the
// refresh token itself lapses.
func (d Datasource) SaveProviderToken(ctx context.Context, token *model.ProviderToken) error {
	if token.RealmID == "" {
		token.RealmID = "default"
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	token.UpdatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO provider_tokens (provider, realm_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (provider, realm_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, token.Provider, token.RealmID, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.CreatedAt, token.UpdatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save provider token", err)
	}
	return nil
}

func (d Datasource) GetProviderToken(ctx context.Context, provider, realmID string) (*model.ProviderToken, error) {
	if realmID == "" {
		realmID = "default"
	}

	token := &model.ProviderToken{}
	var refreshToken sql.NullString
	var expiresAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT provider, realm_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM provider_tokens
		WHERE provider = $1 AND realm_id = $2
	`, provider, realmID).Scan(&token.Provider, &token.RealmID, &token.AccessToken, &refreshToken, &expiresAt, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No token for provider '%s' realm '%s'", provider, realmID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve provider token", err)
	}

	token.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		token.ExpiresAt = expiresAt.Time
	}
	return token, nil
}

func (d Datasource) ListProviderTokens(ctx context.Context, provider string) ([]*model.ProviderToken, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT provider, realm_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM provider_tokens
		WHERE provider = $1
		ORDER BY realm_id
	`, provider)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list provider tokens", err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []*model.ProviderToken
	for rows.Next() {
		token := &model.ProviderToken{}
		var refreshToken sql.NullString
		var expiresAt sql.NullTime
		if err := rows.Scan(&token.Provider, &token.RealmID, &token.AccessToken, &refreshToken, &expiresAt, &token.CreatedAt, &token.UpdatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan provider token", err)
		}
		token.RefreshToken = refreshToken.String
		if expiresAt.Valid {
			token.ExpiresAt = expiresAt.Time
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (d Datasource) DeleteProviderToken(ctx context.Context, provider, realmID string) error {
	if realmID == "" {
		realmID = "default"
	}
	_, err := d.Conn.ExecContext(ctx, `
		DELETE FROM provider_tokens
		WHERE provider = $1 AND realm_id = $2
	`, provider, realmID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete provider token", err)
	}
	return nil
}
