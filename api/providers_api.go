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
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/tallyhq/tally/api/model"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/providers"
)

// ListProviders returns the registered provider sources in sync order.
func (a Api) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": a.tally.Registry().Sources()})
}

// CreatePlaidLinkToken starts the hosted Link flow. Only the banking
// provider issues link tokens.
func (a Api) CreatePlaidLinkToken(c *gin.Context) {
	source := c.Param("source")
	p, err := a.tally.Registry().Get(source)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	plaid, ok := p.(*providers.Plaid)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider does not issue link tokens"})
		return
	}

	userID := c.DefaultQuery("user_id", "tally-user")
	token, err := plaid.CreateLinkToken(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link_token": token})
}

// LinkProvider exchanges a handoff credential (public token, OAuth code) for
// live accounts.
func (a Api) LinkProvider(c *gin.Context) {
	source := c.Param("source")

	var body model2.LinkProvider
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accounts, err := a.tally.LinkProvider(c.Request.Context(), source, body.Code, body.RealmID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "accounts": accounts})
}

// QuickBooksConnect redirects the user to the accounting provider's consent
// page.
func (a Api) QuickBooksConnect(c *gin.Context) {
	p, err := a.tally.Registry().Get(c.Param("source"))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	qb, ok := p.(*providers.QuickBooks)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider has no consent flow"})
		return
	}
	c.Redirect(http.StatusFound, qb.AuthorizationURL(c.DefaultQuery("state", "tally")))
}

// QuickBooksCompanies lists the accounting realms with a live credential.
func (a Api) QuickBooksCompanies(c *gin.Context) {
	p, err := a.tally.Registry().Get(c.Param("source"))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	qb, ok := p.(*providers.QuickBooks)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider has no linked companies"})
		return
	}

	tokens, err := qb.LinkedCompanies(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": tokens})
}

// QuickBooksCallback completes the OAuth consent flow. The provider posts
// code and realmId as query parameters.
func (a Api) QuickBooksCallback(c *gin.Context) {
	code := c.Query("code")
	realmID := c.Query("realmId")
	if code == "" || realmID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and realmId are required"})
		return
	}

	accounts, err := a.tally.LinkProvider(c.Request.Context(), c.Param("source"), code, realmID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "accounts": accounts})
}

// ListCardIssuers returns the supported card issuer catalog.
func (a Api) ListCardIssuers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"issuers": providers.CardIssuers})
}

// ConnectCard registers a manually tracked credit card.
func (a Api) ConnectCard(c *gin.Context) {
	var body model2.ConnectCard
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateConnectCard(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	account, err := a.tally.ConnectManualCard(c.Request.Context(), body.Issuer, providers.ManualCardDetails{
		LastFourDigits: body.LastFourDigits,
		CardType:       body.CardType,
		CreditLimit:    body.CreditLimit,
		CurrentBalance: body.CurrentBalance,
		DueDate:        body.DueDate,
		MinimumPayment: body.MinimumPayment,
	})
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// ImportCardStatement ingests a CSV statement export for one issuer.
func (a Api) ImportCardStatement(c *gin.Context) {
	issuer, passed := c.Params.Get("issuer")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issuer is required. pass it in the route /:issuer"})
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required in the 'file' form field"})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	count, err := a.tally.ImportCardStatement(c.Request.Context(), issuer, file)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imported": count})
}

// GetAccounts lists the active linked accounts.
func (a Api) GetAccounts(c *gin.Context) {
	accounts, err := a.tally.GetAccounts(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// UnlinkAccount revokes provider access where supported and deactivates the
// account. History is kept.
func (a Api) UnlinkAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	if err := a.tally.UnlinkAccount(c.Request.Context(), id); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Synchronize runs a full sync pass inline and returns the per-provider
// results.
func (a Api) Synchronize(c *gin.Context) {
	results := a.tally.Synchronize(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

// SyncProvider runs one provider's sync inline.
func (a Api) SyncProvider(c *gin.Context) {
	result, err := a.tally.SyncProvider(c.Request.Context(), c.Param("source"))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// QueueSynchronize hands the sync run to the worker pool instead of running
// it inline.
func (a Api) QueueSynchronize(c *gin.Context) {
	if err := a.tally.QueueSync(); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "queued": true})
}
